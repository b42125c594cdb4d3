package importer

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/store"
)

// ErrEmptyInput is returned when the input has no data rows
var ErrEmptyInput = errors.New("no rows in input")

// ErrorCategory defines categories of errors during an import
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	// CategoryRowLevel covers a failed entity insert
	CategoryRowLevel
	// CategoryLookup covers a failed related-contact lookup
	CategoryLookup
	// CategoryTag covers a failed tag resolution or link
	CategoryTag
	// CategoryTransient covers storage errors that were retried
	CategoryTransient
	// CategoryStructural covers unreadable input; it aborts the run
	CategoryStructural
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case CategoryNone:
		return "None"
	case CategoryRowLevel:
		return "RowLevel"
	case CategoryLookup:
		return "Lookup"
	case CategoryTag:
		return "Tag"
	case CategoryTransient:
		return "Transient"
	case CategoryStructural:
		return "Structural"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// MarshalText lets categories key JSON objects by name
func (ec ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(ec.String()), nil
}

// RowError is a per-row failure reported in the import result
type RowError struct {
	Row      int           // 1-based position of the row among all data rows
	Category ErrorCategory // RowLevel, Transient, Lookup or Tag
	Subject  string        // Tag or contact name for Tag and Lookup errors
	Err      error
}

func (e *RowError) Error() string {
	switch e.Category {
	case CategoryTag:
		return fmt.Sprintf("Row %d: tag %q: %s", e.Row, e.Subject, e.Err)
	case CategoryLookup:
		return fmt.Sprintf("Row %d: contact %q: %s", e.Row, e.Subject, e.Err)
	default:
		return fmt.Sprintf("Row %d: %s", e.Row, e.Err)
	}
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// AbortError ends a run without a result
type AbortError struct {
	Line int // Input line of a structural error, 0 when unknown
	Err  error
}

func (e *AbortError) Error() string {
	return "import aborted: " + e.Err.Error()
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// newAbortError wraps a stream failure, keeping the line of decode errors
func newAbortError(err error) *AbortError {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort
	}
	a := &AbortError{Err: err}
	var decodeErr *ingest.DecodeError
	if errors.As(err, &decodeErr) {
		a.Line = decodeErr.Line
	}
	return a
}

// CategorizeError determines the category of an error. Storage failures that
// are still transient after the queue's retries are CategoryTransient.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var rowErr *RowError
	var decodeErr *ingest.DecodeError
	switch {
	case errors.As(err, &rowErr):
		return rowErr.Category
	case errors.As(err, &decodeErr):
		return CategoryStructural
	case IsRetryableError(err):
		return CategoryTransient
	default:
		return CategoryRowLevel
	}
}

// IsRetryableError checks if a storage error should be retried
func IsRetryableError(err error) bool {
	return store.IsTransient(err)
}
