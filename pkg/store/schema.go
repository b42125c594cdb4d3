// pkg/store/schema.go
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/model"
)

// columnTypes holds the per-dialect spellings used by the schema
type columnTypes struct {
	id        string
	timestamp string
}

func dialectTypes(bindType int) columnTypes {
	if bindType == sqlx.DOLLAR {
		return columnTypes{
			id:        "BIGSERIAL PRIMARY KEY",
			timestamp: "TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP",
		}
	}
	return columnTypes{
		id:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp: "DATETIME DEFAULT CURRENT_TIMESTAMP",
	}
}

// schemaStatements returns the CREATE TABLE statements for every entity kind,
// the tag vocabulary and the per-kind junction tables
func schemaStatements(bindType int) []string {
	types := dialectTypes(bindType)
	refType := "INTEGER"
	if bindType == sqlx.DOLLAR {
		refType = "BIGINT"
	}

	stmts := []string{}
	for _, kind := range model.Kinds() {
		md, _ := kind.Metadata()

		columnDefs := []string{"id " + types.id}
		for _, f := range md.Fields {
			if f == model.FieldName {
				columnDefs = append(columnDefs, "name TEXT NOT NULL")
				continue
			}
			columnDefs = append(columnDefs, f+" TEXT")
		}
		if md.HasContact {
			contactMD, _ := md.ContactKind.Metadata()
			columnDefs = append(columnDefs,
				fmt.Sprintf("contact_id %s REFERENCES %s(id)", refType, contactMD.Table))
		}
		columnDefs = append(columnDefs,
			"created_at "+types.timestamp,
			"updated_at "+types.timestamp)

		stmts = append(stmts, createTable(md.Table, columnDefs))
	}

	stmts = append(stmts, createTable("tags", []string{
		"id " + types.id,
		"name TEXT UNIQUE NOT NULL",
	}))

	for _, kind := range model.Kinds() {
		md, _ := kind.Metadata()
		stmts = append(stmts, createTable(md.TagTable, []string{
			fmt.Sprintf("%s %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE", md.ForeignKey, refType, md.Table),
			fmt.Sprintf("tag_id %s NOT NULL REFERENCES tags(id) ON DELETE CASCADE", refType),
			fmt.Sprintf("PRIMARY KEY (%s, tag_id)", md.ForeignKey),
		}))
	}

	return stmts
}

func createTable(table string, columnDefs []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(columnDefs, ",\n\t"))
}

// EnsureSchema creates any missing table. Existing tables are not altered.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(sqlx.BindType(s.db.DriverName())) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "ensure schema: %s", firstLine(stmt))
		}
	}
	s.logger.Info("Schema ready", zap.String("driver", s.db.DriverName()))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSuffix(s[:i], " (")
	}
	return s
}
