package connector

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/config"
)

func TestSQLiteConnector(t *testing.T) {
	ctx := context.Background()
	cfg := &config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "crm.db"),
		BusyTimeout: time.Second,
		ForeignKeys: true,
	}

	conn, err := NewSQLiteConnector(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, SQLiteDriverName, conn.DriverName())
	require.NoError(t, conn.Validate(ctx))
	assert.Equal(t, 1, conn.DB().Stats().MaxOpenConnections)
}

func TestPoolSettings(t *testing.T) {
	db, err := sql.Open(SQLiteDriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	PoolSettings{MaxOpen: 3}.Apply(db)
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)

	PoolSettings{}.Apply(db)
	assert.Equal(t, 3, db.Stats().MaxOpenConnections, "zero values keep the current setting")
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the configured driver", func(t *testing.T) {
		f := NewConnectorFactory(&config.Config{
			Driver: config.DriverSQLite,
			SQLite: &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "crm.db")},
		}, zap.NewNop())

		conn, err := f.Create(ctx)
		require.NoError(t, err)
		defer conn.Close()
		assert.IsType(t, &SQLiteConnector{}, conn)
	})

	t.Run("rejects unknown drivers", func(t *testing.T) {
		f := NewConnectorFactory(&config.Config{Driver: "oracle"}, zap.NewNop())
		_, err := f.Create(ctx)
		assert.Error(t, err)
	})

	t.Run("requires driver configuration", func(t *testing.T) {
		f := NewConnectorFactory(&config.Config{Driver: config.DriverPostgres}, zap.NewNop())
		_, err := f.Create(ctx)
		assert.Error(t, err)
	})
}
