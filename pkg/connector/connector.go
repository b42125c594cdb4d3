// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DatabaseConnector is an open import database
type DatabaseConnector interface {
	DB() *sql.DB

	// DriverName is the database/sql driver the handle was opened with
	DriverName() string

	// Validate checks that the database accepts the import's writes
	Validate(ctx context.Context) error

	Close() error
}

// PoolSettings bounds a connection pool. Zero values keep the database/sql defaults.
type PoolSettings struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Apply configures db with the non-zero settings
func (p PoolSettings) Apply(db *sql.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}

const pingTimeout = 5 * time.Second

// openDB opens dsn with driver, applies pool and waits for the first ping
func openDB(ctx context.Context, driver, dsn string, pool PoolSettings) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	pool.Apply(db)

	if err := PingWithTimeout(ctx, db, pingTimeout); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connect to %s database", driver)
	}
	return db, nil
}

// PingWithTimeout pings db, giving up after timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(err, "no response within %v", timeout)
	}
	return err
}

// LogConnectionStats writes the pool counters of db at debug level
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open", stats.OpenConnections),
		zap.Int("inUse", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("maxOpen", stats.MaxOpenConnections),
		zap.Int64("waitCount", stats.WaitCount),
		zap.Duration("waitDuration", stats.WaitDuration))
}
