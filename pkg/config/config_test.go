package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "SQLITE_PATH", "SQLITE_BUSY_TIMEOUT_MS", "SQLITE_FOREIGN_KEYS",
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT",
		"POSTGRES_STATEMENT_TIMEOUT_SECONDS", "IMPORT_QUEUE_CAPACITY", "RETRY_ATTEMPTS", "RETRY_DELAY_MS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	require.NotNil(t, cfg.SQLite)
	assert.Equal(t, "./crm.db", cfg.SQLite.Path)
	assert.Equal(t, 5*time.Second, cfg.SQLite.BusyTimeout)
	assert.Equal(t, 256, cfg.QueueCapacity)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Nil(t, cfg.Postgres)
}

func TestLoadConfigPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := LoadConfig()
	require.Error(t, err, "postgres credentials are required")

	t.Setenv("POSTGRES_USER", "crm")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "crm")
	t.Setenv("POSTGRES_PORT", "6543")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, "host=localhost port=6543 user=crm password=secret dbname=crm sslmode=disable statement_timeout=30000",
		cfg.Postgres.ConnectionString())
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	// Empty values set by clearEnv count as unset for godotenv
	for _, key := range []string{"SQLITE_PATH", "IMPORT_QUEUE_CAPACITY"} {
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), "import.env")
	require.NoError(t, os.WriteFile(path, []byte("SQLITE_PATH=/tmp/x.db\nIMPORT_QUEUE_CAPACITY=8\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.SQLite.Path)
	assert.Equal(t, 8, cfg.QueueCapacity)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Driver:        DriverSQLite,
			SQLite:        &SQLiteConfig{Path: ":memory:"},
			QueueCapacity: 1,
			LogFormat:     "console",
		}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Driver = "mysql"
	assert.Error(t, c.Validate())

	c = base()
	c.QueueCapacity = 0
	assert.Error(t, c.Validate())

	c = base()
	c.RetryAttempts = -1
	assert.Error(t, c.Validate())

	c = base()
	c.LogFormat = "xml"
	assert.Error(t, c.Validate())
}

func TestSQLiteDSN(t *testing.T) {
	c := &SQLiteConfig{Path: "crm.db", BusyTimeout: 250 * time.Millisecond, ForeignKeys: true}
	assert.Equal(t, "file:crm.db?_busy_timeout=250&_foreign_keys=on", c.DSN())
}

func TestUseDriver(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Error(t, cfg.UseDriver(DriverPostgres), "postgres credentials are required")

	t.Setenv("POSTGRES_USER", "crm")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "crm")
	require.NoError(t, cfg.UseDriver(DriverPostgres))
	assert.Equal(t, DriverPostgres, cfg.Driver)
	require.NotNil(t, cfg.Postgres)
	require.NoError(t, cfg.Validate())

	cfg.SQLite = nil
	require.NoError(t, cfg.UseDriver(DriverSQLite))
	assert.Equal(t, "./crm.db", cfg.SQLite.Path)

	assert.Error(t, cfg.UseDriver("mysql"))
}
