// pkg/connector/factory.go
package connector

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Create opens a connector for the configured driver
func (f *ConnectorFactory) Create(ctx context.Context) (DatabaseConnector, error) {
	switch f.cfg.Driver {
	case config.DriverSQLite:
		return f.CreateSQLiteConnector(ctx)
	case config.DriverPostgres:
		return f.CreatePostgresConnector(ctx)
	default:
		return nil, errors.Newf("unsupported database driver %q", f.cfg.Driver)
	}
}

// CreateSQLiteConnector creates a new SQLite connector
func (f *ConnectorFactory) CreateSQLiteConnector(ctx context.Context) (*SQLiteConnector, error) {
	f.logger.Info("Creating SQLite connector")

	if f.cfg.SQLite == nil {
		return nil, errors.New("sqlite configuration is missing")
	}
	connector, err := NewSQLiteConnector(ctx, f.cfg.SQLite)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SQLite connector")
	}

	return connector, nil
}

// CreatePostgresConnector creates a new PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	if f.cfg.Postgres == nil {
		return nil, errors.New("postgres configuration is missing")
	}
	connector, err := NewPostgresConnector(ctx, f.cfg.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL connector")
	}

	return connector, nil
}
