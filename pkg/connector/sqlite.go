// pkg/connector/sqlite.go
package connector

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/config"
)

// SQLiteDriverName is the database/sql name registered by go-sqlite3
const SQLiteDriverName = "sqlite3"

// SQLiteConnector is a DatabaseConnector for a SQLite file
type SQLiteConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SQLiteConfig
}

// NewSQLiteConnector opens the SQLite database described by cfg
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteConnector, error) {
	logger := zap.L().Named("sqlite-connector")
	logger.Info("Opening SQLite database",
		zap.String("path", cfg.Path),
		zap.Duration("busyTimeout", cfg.BusyTimeout))

	// One handle serializes writers and keeps :memory: databases shared
	db, err := openDB(ctx, SQLiteDriverName, cfg.DSN(), PoolSettings{MaxOpen: 1, MaxIdle: 1})
	if err != nil {
		return nil, err
	}

	LogConnectionStats(logger, cfg.Path, db)
	return &SQLiteConnector{db: db, logger: logger, cfg: cfg}, nil
}

func (c *SQLiteConnector) DB() *sql.DB {
	return c.db
}

func (c *SQLiteConnector) DriverName() string {
	return SQLiteDriverName
}

// Validate checks the SQLite version and that the database is writable
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return errors.Wrap(err, "failed to query SQLite version")
	}
	c.logger.Info("Connected to SQLite", zap.String("version", version))

	var readOnly int
	if err := c.db.QueryRowContext(ctx, "PRAGMA query_only").Scan(&readOnly); err != nil {
		return errors.Wrap(err, "failed to read query_only pragma")
	}
	if readOnly != 0 {
		return errors.Newf("SQLite database %s is read-only", c.cfg.Path)
	}
	return nil
}

func (c *SQLiteConnector) Close() error {
	LogConnectionStats(c.logger, c.cfg.Path, c.db)
	return c.db.Close()
}
