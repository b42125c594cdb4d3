// pkg/store/errors.go
package store

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Postgres SQLSTATE codes worth retrying
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P01": true, // admin_shutdown
}

// IsTransient reports whether err is a storage failure that may succeed on
// retry. Only failures where the statement certainly did not apply qualify:
// lost connections and timeouts leave an INSERT's outcome unknown.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code]
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "database is locked")
}
