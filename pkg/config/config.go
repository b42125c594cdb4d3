// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Database connection
	Driver   Driver
	SQLite   *SQLiteConfig
	Postgres *PostgresConfig

	// Import settings
	QueueCapacity int
	RetryAttempts int
	RetryDelay    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. Values from a
// .env file in the working directory are applied first when present; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("failed to load .env file: " + err.Error())
	}
	return loadFromEnv()
}

// LoadConfigFile loads configuration from the given env files, then the environment
func LoadConfigFile(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil {
		return nil, errors.New("failed to load env file: " + err.Error())
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	cfg := &Config{
		// Default values
		Driver:        Driver(getEnv("DB_DRIVER", string(DriverSQLite))),
		QueueCapacity: getEnvAsInt("IMPORT_QUEUE_CAPACITY", 256),
		RetryAttempts: getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryDelay:    time.Duration(getEnvAsInt("RETRY_DELAY_MS", 50)) * time.Millisecond,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	// Load the configuration of the selected database only
	switch cfg.Driver {
	case DriverSQLite:
		cfg.SQLite = LoadSQLiteConfig()
	case DriverPostgres:
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UseDriver switches c to driver, loading that driver's settings from the
// environment when c does not carry them yet
func (c *Config) UseDriver(driver Driver) error {
	c.Driver = driver
	switch driver {
	case DriverSQLite:
		if c.SQLite == nil {
			c.SQLite = LoadSQLiteConfig()
		}
	case DriverPostgres:
		if c.Postgres == nil {
			pgConfig, err := LoadPostgresConfig()
			if err != nil {
				return errors.New("failed to load PostgreSQL configuration: " + err.Error())
			}
			c.Postgres = pgConfig
		}
	default:
		return errors.New("unsupported database driver: " + string(driver))
	}
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLite == nil {
			return errors.New("sqlite configuration is required")
		}
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required")
		}
	default:
		return errors.New("unsupported database driver: " + string(c.Driver))
	}

	if c.QueueCapacity <= 0 {
		return errors.New("queue capacity must be positive")
	}

	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.New("log format must be json or console")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
