// pkg/model/result.go
package model

// ImportResult is the aggregated outcome of one import run
type ImportResult struct {
	Total    int      `json:"total"`    // Data rows observed, including skipped rows
	Imported int      `json:"imported"` // Entities persisted
	Errors   []string `json:"errors"`   // Ordered per-row failure descriptions
}

// NewImportResult initializes an empty result
func NewImportResult() *ImportResult {
	return &ImportResult{
		Errors: make([]string, 0),
	}
}

// AddError appends a row-level failure description
func (r *ImportResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HasErrors checks if any row failed
func (r *ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Clone returns a copy that shares nothing with r
func (r *ImportResult) Clone() *ImportResult {
	errs := make([]string, len(r.Errors))
	copy(errs, r.Errors)
	return &ImportResult{
		Total:    r.Total,
		Imported: r.Imported,
		Errors:   errs,
	}
}
