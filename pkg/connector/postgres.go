// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/config"
)

// PostgresDriverName is the database/sql name registered by pgx
const PostgresDriverName = "pgx"

// PostgresConnector is a DatabaseConnector for a PostgreSQL database
type PostgresConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresConnector connects to the database described by cfg
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := openDB(ctx, PostgresDriverName, cfg.ConnectionString(), PoolSettings{
		MaxOpen:     cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxLifetime: cfg.ConnMaxLifetime,
		MaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	LogConnectionStats(logger, cfg.Database, db)
	return &PostgresConnector{db: db, logger: logger, cfg: cfg}, nil
}

func (c *PostgresConnector) DB() *sql.DB {
	return c.db
}

func (c *PostgresConnector) DriverName() string {
	return PostgresDriverName
}

// Validate checks that the session is writable and may create the import tables
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var (
		version   string
		readOnly  string
		canCreate bool
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT version(),
		       current_setting('transaction_read_only'),
		       has_schema_privilege(current_schema(), 'CREATE')`).
		Scan(&version, &readOnly, &canCreate)
	if err != nil {
		return errors.Wrap(err, "failed to query PostgreSQL session")
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	if readOnly == "on" {
		return errors.Newf("PostgreSQL database %s is read-only", c.cfg.Database)
	}
	if !canCreate {
		return errors.Newf("user %s cannot create tables in database %s", c.cfg.User, c.cfg.Database)
	}
	return nil
}

func (c *PostgresConnector) Close() error {
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}
