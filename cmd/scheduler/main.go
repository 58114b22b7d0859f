package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/client"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
	"github.com/segyhp/loan-ledger/pkg/logger"
)

// pruneSchedule runs after the nightly sweep has settled.
const pruneSchedule = "30 3 * * *"

const jobTimeout = 5 * time.Minute

type maintainer interface {
	SweepStale(ctx context.Context) (int, error)
	PruneStore(ctx context.Context, retention time.Duration) (int64, error)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	log.Info("Starting ledger scheduler...")

	db, err := repository.Connect(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redisClient.Close()

	lendingAPI := client.New(client.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.GetUpstreamTimeout(),
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryDelay: cfg.GetRetryDelay(),
	}, log)

	ledgerService := service.NewLedgerService(
		lendingAPI,
		cache.New(redisClient, cfg.GetSnapshotTTL()),
		repository.NewLoanRepository(db),
		repository.NewLineRepository(db),
		log,
		cfg.Business.OverdueThresholdDays,
	)

	c := newCron(cfg, log)
	if err := setupCronJobs(c, ledgerService, cfg, log); err != nil {
		log.WithError(err).Fatal("Failed to schedule jobs")
	}

	c.Start()
	log.WithField("timezone", cfg.Scheduler.Timezone).Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func newCron(cfg *config.Config, log *logrus.Logger) *cron.Cron {
	cronLogger := cron.PrintfLogger(log)
	return cron.New(
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}

func setupCronJobs(c *cron.Cron, m maintainer, cfg *config.Config, log *logrus.Logger) error {
	// Overdue days move at midnight, so every cached line listing goes stale.
	if _, err := c.AddFunc(cfg.Scheduler.SweepSchedule, func() {
		sweepStale(m, log)
	}); err != nil {
		return err
	}

	retention := cfg.GetStoreRetention()
	if _, err := c.AddFunc(pruneSchedule, func() {
		pruneStore(m, retention, log)
	}); err != nil {
		return err
	}

	log.Info("Cron jobs scheduled successfully")
	return nil
}

func sweepStale(m maintainer, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := m.SweepStale(ctx); err != nil {
		log.WithError(err).Error("Stale sweep failed")
	}
}

func pruneStore(m maintainer, retention time.Duration, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := m.PruneStore(ctx, retention); err != nil {
		log.WithError(err).Error("Snapshot pruning failed")
	}
}
