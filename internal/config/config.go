package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// StoreConfig holds the settings every binary needs to reach the database
type StoreConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings (supports sqlite, postgres, mysql)
	DatabaseType     string `env:"DB_TYPE" envDefault:"postgres"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabasePath     string `env:"DB_PATH" envDefault:"./familycart.db"`
	DatabaseMaxConns int    `env:"DB_MAX_CONNS" envDefault:"5"`
}

// Config holds the API server configuration
type Config struct {
	StoreConfig

	ServerPort   string `env:"PORT" envDefault:"4000"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Zero disables the expired invite purge
	InviteCleanupInterval time.Duration `env:"INVITE_CLEANUP_INTERVAL" envDefault:"1h"`
	MetricsEnabled        bool          `env:"METRICS_ENABLED" envDefault:"true"`

	// Login and register attempts allowed per client IP per window; zero disables
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return Parse()
}

// LoadStore is Load for tools that only open the database
func LoadStore() (*StoreConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return ParseStore()
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Parse builds a Config from the current environment without touching .env
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.StoreConfig.validate(); err != nil {
		return nil, err
	}

	if cfg.AuthRateLimit < 0 {
		return nil, fmt.Errorf("AUTH_RATE_LIMIT must not be negative, got %d", cfg.AuthRateLimit)
	}
	if cfg.AuthRateLimit > 0 && cfg.AuthRateWindow <= 0 {
		return nil, fmt.Errorf("AUTH_RATE_WINDOW must be positive when AUTH_RATE_LIMIT is set")
	}

	return cfg, nil
}

// ParseStore builds a StoreConfig from the current environment. Server-only
// settings such as JWT_SECRET are neither read nor required.
func ParseStore() (*StoreConfig, error) {
	cfg := &StoreConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *StoreConfig) validate() error {
	c.DatabaseType = strings.ToLower(c.DatabaseType)
	switch c.DatabaseType {
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for %s", c.DatabaseType)
		}
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", c.DatabaseType)
	}

	if c.DatabaseMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DatabaseMaxConns)
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
