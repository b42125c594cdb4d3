// pkg/store/store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/model"
)

// Store is the storage surface the import pipeline writes through
type Store interface {
	// InsertEntity persists a normalized entity and returns its id
	InsertEntity(ctx context.Context, e *model.Entity) (int64, error)

	// GetOrCreateTag returns the id of the tag with this exact name, creating it when absent
	GetOrCreateTag(ctx context.Context, name string) (int64, error)

	// LinkEntityTag associates a tag with an entity. Existing links are left untouched.
	LinkEntityTag(ctx context.Context, kind model.Kind, entityID, tagID int64) error

	// FindEntityByName returns the lowest id of an entity named name
	FindEntityByName(ctx context.Context, kind model.Kind, name string) (int64, bool, error)
}

// SQLStore implements Store over a single database/sql handle
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New wraps db, opened with driverName, in a SQLStore
func New(db *sql.DB, driverName string, logger *zap.Logger) (*SQLStore, error) {
	if sqlx.BindType(driverName) == sqlx.UNKNOWN {
		return nil, errors.Newf("unsupported driver %q", driverName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:     sqlx.NewDb(db, driverName),
		logger: logger.Named("store"),
	}, nil
}

// DB returns the underlying sqlx handle
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func metadata(kind model.Kind) (model.EntityMetadata, error) {
	md, ok := kind.Metadata()
	if !ok {
		return model.EntityMetadata{}, errors.Newf("unknown entity kind %q", kind)
	}
	return md, nil
}

// InsertEntity writes every field of the entity's kind plus contact_id when the kind has one
func (s *SQLStore) InsertEntity(ctx context.Context, e *model.Entity) (int64, error) {
	md, err := metadata(e.Kind)
	if err != nil {
		return 0, err
	}
	if e.Name() == "" {
		return 0, errors.New("name is required")
	}

	columns := make([]string, 0, len(md.Fields)+1)
	args := make([]interface{}, 0, len(md.Fields)+1)
	for _, f := range md.Fields {
		columns = append(columns, f)
		args = append(args, e.Fields.Get(f))
	}
	if md.HasContact {
		columns = append(columns, "contact_id")
		if e.ContactID != nil {
			args = append(args, *e.ContactID)
		} else {
			args = append(args, nil)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		md.Table, strings.Join(columns, ", "), placeholders))

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "insert %s", e.Kind)
	}

	s.logger.Debug("Inserted entity",
		zap.String("kind", string(e.Kind)),
		zap.Int64("id", id),
		zap.String("name", e.Name()))
	return id, nil
}

// GetOrCreateTag inserts the tag unless it exists, then reads its id back
func (s *SQLStore) GetOrCreateTag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("tag name is empty")
	}

	insert := s.db.Rebind("INSERT INTO tags (name) VALUES (?) ON CONFLICT (name) DO NOTHING")
	if _, err := s.db.ExecContext(ctx, insert, name); err != nil {
		return 0, errors.Wrap(err, "insert tag")
	}

	var id int64
	if err := s.db.GetContext(ctx, &id, s.db.Rebind("SELECT id FROM tags WHERE name = ?"), name); err != nil {
		return 0, errors.Wrap(err, "select tag")
	}
	return id, nil
}

// LinkEntityTag inserts into the kind's junction table, ignoring duplicates
func (s *SQLStore) LinkEntityTag(ctx context.Context, kind model.Kind, entityID, tagID int64) error {
	md, err := metadata(kind)
	if err != nil {
		return err
	}

	query := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		md.TagTable, md.ForeignKey))
	if _, err := s.db.ExecContext(ctx, query, entityID, tagID); err != nil {
		return errors.Wrap(err, "link tag")
	}
	return nil
}

// FindEntityByName looks an entity up by exact name
func (s *SQLStore) FindEntityByName(ctx context.Context, kind model.Kind, name string) (int64, bool, error) {
	md, err := metadata(kind)
	if err != nil {
		return 0, false, err
	}

	var id int64
	query := s.db.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE name = ? ORDER BY id LIMIT 1", md.Table))
	err = s.db.GetContext(ctx, &id, query, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, errors.Wrapf(err, "find %s", kind)
	}
	return id, true, nil
}
