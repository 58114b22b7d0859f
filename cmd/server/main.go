package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/client"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/handler"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
	"github.com/segyhp/loan-ledger/pkg/logger"
)

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

	// Initialize database
	db, err := initDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redisClient.Close()

	snapshots := cache.New(redisClient, cfg.GetSnapshotTTL())

	lendingAPI := client.New(client.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.GetUpstreamTimeout(),
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryDelay: cfg.GetRetryDelay(),
	}, log)

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	lineRepo := repository.NewLineRepository(db)

	// Initialize service
	ledgerService := service.NewLedgerService(lendingAPI, snapshots, loanRepo, lineRepo, log, cfg.Business.OverdueThresholdDays).
		WithMoneyPlaces(cfg.Business.MoneyPlaces)

	ledgerHandler := handler.NewLedgerHandler(ledgerService, log, cfg.GetLedgerLocation())
	healthHandler := handler.NewHealthHandler(cfg.GetHealthTimeout(),
		handler.Check{Name: "database", Ping: db.PingContext},
		handler.Check{Name: "redis", Ping: snapshots.Ping},
	)

	if cfg.IsProduction() && slices.Contains(cfg.GetAllowedOrigins(), "*") {
		log.Warn("CORS_ALLOWED_ORIGINS allows every origin")
	}

	router := handler.NewRouter(ledgerHandler, healthHandler, auth.NewVerifier(cfg.Auth.JWTSecret), log, cfg.GetAllowedOrigins())

	// Start server
	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func initDB(cfg *config.Config, log *logrus.Logger) (*sqlx.DB, error) {
	// Development databases are always brought up to date.
	if cfg.Database.RunMigrations || cfg.IsDevelopment() {
		version, err := repository.Migrate(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		log.WithField("version", version).Info("Database migrated")
	}

	return repository.Connect(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	defer cancel()

	return cache.Connect(ctx, cfg.Redis.URL, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
}
