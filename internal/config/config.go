// Package config loads habitpact settings. Values come from the YAML
// config file, then a .env file, then HABITPACT_* environment variables,
// each layer overriding the one before. The PostgreSQL connection string
// may also live in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/storage/postgres"
	"github.com/julianstephens/habitpact/internal/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// URL must not carry a password; put credentialed strings in the
	// keyring or HABITPACT_DATABASE_URL.
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type RolloverConfig struct {
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type NotifyConfig struct {
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"-"`
}

type Config struct {
	Timezone string         `yaml:"timezone"`
	LogDir   string         `yaml:"log_dir"`
	Debug    bool           `yaml:"debug"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Rollover RolloverConfig `yaml:"rollover"`
	Notify   NotifyConfig   `yaml:"notify"`

	// envURL records a connection string taken from the environment
	envURL string
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Timezone: "UTC",
		LogDir:   "~/.config/habitpact/logs",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   constants.DefaultDBPath,
		},
		Server: ServerConfig{
			Addr:           constants.DefaultServerAddr,
			RequestTimeout: constants.DefaultRequestTimeout,
		},
		Rollover: RolloverConfig{
			Workers:     constants.DefaultRolloverWorkers,
			MaxAttempts: constants.RolloverMaxAttempts,
			RetryDelay:  constants.RolloverRetryDelay,
		},
	}
}

// Load builds the configuration from path, dotenv and the environment. A
// missing config file is not an error; the defaults apply.
func Load(path, dotenv string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if dotenv != "" {
		// godotenv.Load never overrides variables already set
		if err := godotenv.Load(ExpandPath(dotenv)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.LogDir = ExpandPath(cfg.LogDir)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(constants.EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("TIMEZONE", &c.Timezone)
	str("LOG_DIR", &c.LogDir)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_PATH", &c.Database.Path)
	str("DATABASE_URL", &c.envURL)
	str("SERVER_ADDR", &c.Server.Addr)
	str("WEBHOOK_URL", &c.Notify.WebhookURL)
	str("WEBHOOK_SECRET", &c.Notify.WebhookSecret)

	if v := os.Getenv(constants.EnvPrefix + "DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBUG %q: %w", constants.EnvPrefix, v, err)
		}
		c.Debug = b
	}
	if v := os.Getenv(constants.EnvPrefix + "ROLLOVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sROLLOVER_WORKERS %q: %w", constants.EnvPrefix, v, err)
		}
		c.Rollover.Workers = n
	}
	if c.envURL != "" && c.Database.Driver == DriverSQLite && os.Getenv(constants.EnvPrefix+"DB_DRIVER") == "" {
		c.Database.Driver = DriverPostgres
	}
	return nil
}

// Validate checks the configuration for values no component can run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL != "" {
			if _, err := postgres.ValidateConnString(c.Database.URL); err != nil {
				return fmt.Errorf("database.url: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown database driver %q (want %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}

	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if c.Rollover.Workers < 1 {
		return fmt.Errorf("rollover.workers must be at least 1, got %d", c.Rollover.Workers)
	}
	if c.Rollover.MaxAttempts < 1 {
		return fmt.Errorf("rollover.max_attempts must be at least 1, got %d", c.Rollover.MaxAttempts)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	return nil
}

// ConnectionString resolves the PostgreSQL connection string from the
// environment, then the OS keyring, then the config file.
func (c *Config) ConnectionString() (string, error) {
	if c.envURL != "" {
		return c.envURL, nil
	}
	connStr, err := GetConnectionString()
	if err == nil {
		return connStr, nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrKeyringUnavailable) {
		return "", err
	}
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	return "", fmt.Errorf("no PostgreSQL connection string: set %sDATABASE_URL, store one in the keyring, or set database.url", constants.EnvPrefix)
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DataDir is the directory holding the sqlite database and the rollover
// lock.
func (c *Config) DataDir() string {
	if c.Database.Driver == DriverSQLite {
		return filepath.Dir(c.Database.Path)
	}
	return filepath.Dir(ExpandPath(constants.DefaultDBPath))
}
