package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Planner    PlannerConfig    `yaml:"planner"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" env:"PLANNER_WORKER_POOL_SIZE"`
}

// PushConfig holds the VAPID keys for web push notifications. Push is
// disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"PLANNER_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"PLANNER_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"PLANNER_VAPID_SUBJECT"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"PLANNER_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"PLANNER_DB_DRIVER"`
	DSN                    string `yaml:"dsn" env:"PLANNER_DB_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql" env:"PLANNER_DB_LOG_SQL"`
	// TransactionalSagas wraps every coordinator command in one database
	// transaction. When false only the compensation stack cleans up.
	TransactionalSagas *bool `yaml:"transactional_sagas"`
	// EnableExclusionConstraint installs the btree_gist overlap constraint on
	// postgres. Ignored for sqlite.
	EnableExclusionConstraint bool `yaml:"enable_exclusion_constraint"`
}

// Transactional reports whether coordinator commands run inside a transaction.
func (d DatabaseConfig) Transactional() bool {
	return d.TransactionalSagas == nil || *d.TransactionalSagas
}

// PlannerConfig holds the scheduling rules.
type PlannerConfig struct {
	ConfirmationDays int      `yaml:"confirmation_days" env:"PLANNER_CONFIRMATION_DAYS"`
	WarningDays      int      `yaml:"warning_days"`
	TrainingTypes    []string `yaml:"training_types"`
	Timezone         string   `yaml:"timezone" env:"PLANNER_TIMEZONE"`
}

// JobsConfig holds the scheduled job configuration.
type JobsConfig struct {
	Enabled          bool   `yaml:"enabled" env:"PLANNER_JOBS_ENABLED"`
	WarningsSchedule string `yaml:"warnings_schedule"`
}

// Load reads the configuration from the given path, then applies overrides
// from a local .env file and the process environment.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using process environment")
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "planner.db"
	}

	if cfg.Planner.ConfirmationDays <= 0 {
		cfg.Planner.ConfirmationDays = 7
	}
	if cfg.Planner.WarningDays <= 0 {
		cfg.Planner.WarningDays = 3
	}
	if len(cfg.Planner.TrainingTypes) == 0 {
		cfg.Planner.TrainingTypes = []string{"Training P", "Training I"}
	}
	if cfg.Planner.Timezone == "" {
		cfg.Planner.Timezone = "UTC"
	}

	if cfg.Jobs.WarningsSchedule == "" {
		cfg.Jobs.WarningsSchedule = "@daily"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		slog.Info("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
