package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Upstream  UpstreamConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Env            string
	ReadTimeout    string
	WriteTimeout   string
	AllowedOrigins string
}

type DatabaseConfig struct {
	URL           string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	URL         string
	Host        string
	Port        string
	Password    string
	DB          int
	SnapshotTTL string
}

// UpstreamConfig points at the lending api that owns loans and customers.
type UpstreamConfig struct {
	BaseURL    string
	Timeout    string
	MaxRetries int
	RetryDelay string
}

// AuthConfig holds the secret the lending api signs access tokens with.
type AuthConfig struct {
	JWTSecret string
}

type SchedulerConfig struct {
	SweepSchedule  string
	Timezone       string
	StoreRetention string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	OverdueThresholdDays int
	MoneyPlaces          int
	Timezone             string
}

type HealthConfig struct {
	Timeout string
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (*Config, error) {
	return LoadFrom(".env", "deployments/.env")
}

// LoadFrom is Load with explicit .env paths. Missing files are skipped and
// variables already set in the environment win.
func LoadFrom(envFiles ...string) (*Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	config := Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			Env:            v.GetString("ENV"),
			ReadTimeout:    v.GetString("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetString("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			MaxOpenConns:  v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:  v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			RunMigrations: v.GetBool("DATABASE_RUN_MIGRATIONS"),
		},
		Redis: RedisConfig{
			URL:         v.GetString("REDIS_URL"),
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetString("REDIS_PORT"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			SnapshotTTL: v.GetString("REDIS_SNAPSHOT_TTL"),
		},
		Upstream: UpstreamConfig{
			BaseURL:    v.GetString("LENDING_API_URL"),
			Timeout:    v.GetString("LENDING_API_TIMEOUT"),
			MaxRetries: v.GetInt("LENDING_API_MAX_RETRIES"),
			RetryDelay: v.GetString("LENDING_API_RETRY_DELAY"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Scheduler: SchedulerConfig{
			SweepSchedule:  v.GetString("SCHEDULER_SWEEP_SCHEDULE"),
			Timezone:       v.GetString("SCHEDULER_TIMEZONE"),
			StoreRetention: v.GetString("SCHEDULER_STORE_RETENTION"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			OverdueThresholdDays: v.GetInt("OVERDUE_THRESHOLD_DAYS"),
			MoneyPlaces:          v.GetInt("MONEY_DECIMAL_PLACES"),
			Timezone:             v.GetString("LEDGER_TIMEZONE"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_RUN_MIGRATIONS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SNAPSHOT_TTL", "24h")
	v.SetDefault("LENDING_API_TIMEOUT", "10s")
	v.SetDefault("LENDING_API_MAX_RETRIES", 3)
	v.SetDefault("LENDING_API_RETRY_DELAY", "2s")
	v.SetDefault("SCHEDULER_SWEEP_SCHEDULE", "5 0 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SCHEDULER_STORE_RETENTION", "720h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OVERDUE_THRESHOLD_DAYS", 30)
	v.SetDefault("MONEY_DECIMAL_PLACES", 2)
	v.SetDefault("LEDGER_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("LENDING_API_URL is required")
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LENDING_API_URL must be an absolute url")
	}

	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("LENDING_API_MAX_RETRIES must not be negative")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Business.OverdueThresholdDays <= 0 {
		return fmt.Errorf("OVERDUE_THRESHOLD_DAYS must be greater than 0")
	}

	if c.Business.MoneyPlaces < 0 {
		return fmt.Errorf("MONEY_DECIMAL_PLACES must not be negative")
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":     c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    c.Server.WriteTimeout,
		"REDIS_SNAPSHOT_TTL":      c.Redis.SnapshotTTL,
		"LENDING_API_TIMEOUT":     c.Upstream.Timeout,
		"LENDING_API_RETRY_DELAY": c.Upstream.RetryDelay,
		"HEALTH_CHECK_TIMEOUT":    c.Health.Timeout,

		"SCHEDULER_STORE_RETENTION": c.Scheduler.StoreRetention,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	if _, err := cron.ParseStandard(c.Scheduler.SweepSchedule); err != nil {
		return fmt.Errorf("SCHEDULER_SWEEP_SCHEDULE must be a valid cron spec: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid timezone: %w", err)
	}

	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("LEDGER_TIMEZONE must be a valid timezone: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetServerAddr returns host:port for the http listener
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetAllowedOrigins splits CORS_ALLOWED_ORIGINS on commas
func (c *Config) GetAllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.Server.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) GetReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

// GetRedisAddr returns host:port. A non-empty REDIS_URL takes precedence.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetSnapshotTTL returns how long cached snapshots live in redis
func (c *Config) GetSnapshotTTL() time.Duration {
	return mustDuration(c.Redis.SnapshotTTL)
}

// GetUpstreamTimeout returns the per-request lending api timeout
func (c *Config) GetUpstreamTimeout() time.Duration {
	return mustDuration(c.Upstream.Timeout)
}

// GetRetryDelay returns the pause between retried lending api requests
func (c *Config) GetRetryDelay() time.Duration {
	return mustDuration(c.Upstream.RetryDelay)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetSchedulerLocation returns the timezone cron schedules run in
func (c *Config) GetSchedulerLocation() *time.Location {
	return mustLocation(c.Scheduler.Timezone)
}

// GetStoreRetention returns how long stored snapshots are kept
func (c *Config) GetStoreRetention() time.Duration {
	return mustDuration(c.Scheduler.StoreRetention)
}

// GetLedgerLocation returns the timezone that decides "today" for ledger figures
func (c *Config) GetLedgerLocation() *time.Location {
	return mustLocation(c.Business.Timezone)
}

// Validate has already checked these values.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
