package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for review-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, the API token) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// APIToken is the opaque bearer value clients present on every request.
	// Empty disables the check (local development).
	APIToken string `yaml:"-" env:"API_TOKEN"` // Secret - not in YAML

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional comment-count cache)
	Redis RedisConfig `yaml:"redis"`

	// Review workflow tunables
	Review ReviewConfig `yaml:"review"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"review"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"review_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds the optional Redis cache configuration. An empty host
// disables caching entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ReviewConfig holds the review workflow tunables.
type ReviewConfig struct {
	// SampleRows caps the rows in a bucket sample CSV download.
	SampleRows int `yaml:"sample_rows" env:"REVIEW_SAMPLE_ROWS" env-default:"100"`
	// PageSize is the null-record browser page size.
	PageSize int `yaml:"page_size" env:"REVIEW_PAGE_SIZE" env-default:"7"`
	// CommentMaxLen is the maximum accepted comment length in characters.
	CommentMaxLen int `yaml:"comment_max_len" env:"REVIEW_COMMENT_MAX_LEN" env-default:"150"`
	// CommentPollInterval is how often clients poll comment counts, and the
	// TTL of the server-side count cache.
	CommentPollInterval time.Duration `yaml:"comment_poll_interval" env:"REVIEW_COMMENT_POLL_INTERVAL" env-default:"1s"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Review.SampleRows <= 0 {
		return fmt.Errorf("review.sample_rows must be positive")
	}
	if c.Review.PageSize <= 0 {
		return fmt.Errorf("review.page_size must be positive")
	}
	if c.Review.CommentMaxLen <= 0 {
		return fmt.Errorf("review.comment_max_len must be positive")
	}
	if c.Review.CommentPollInterval <= 0 {
		return fmt.Errorf("review.comment_poll_interval must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
