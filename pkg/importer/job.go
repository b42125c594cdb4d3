package importer

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/David-Botos/crm-import/pkg/converter"
	"github.com/David-Botos/crm-import/pkg/model"
)

// Request describes one import run
type Request struct {
	Kind         model.Kind        // Entity kind every row becomes
	Source       converter.Source  // Column layout of the file
	SkipFirstRow bool              // Discard the first data row unconditionally
	Mapping      converter.Mapping // Field to column mapping for custom sources
	Input        io.Reader         // Delimited text; removed on success when it implements Remove() error
}

// Validate checks the request before any row is read
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return errors.Newf("unknown entity kind %q", r.Kind)
	}
	if r.Input == nil {
		return errors.New("input is required")
	}
	if r.Source == "" || r.Source == converter.SourceCustom {
		if err := r.Mapping.Validate(r.Kind); err != nil {
			return err
		}
	}
	return nil
}

// ImportJob identifies a running import
type ImportJob struct {
	ID        string    // Unique job identifier
	Request   Request   // What to import
	CreatedAt time.Time // Job creation timestamp
}

// NewImportJob creates a job for req
func NewImportJob(req Request) ImportJob {
	if req.Source == "" {
		req.Source = converter.SourceCustom
	}
	return ImportJob{
		ID:        uuid.New().String(),
		Request:   req,
		CreatedAt: time.Now(),
	}
}

// remove deletes the job's input when it supports removal
func (j ImportJob) remove() (bool, error) {
	remover, ok := j.Request.Input.(interface{ Remove() error })
	if !ok {
		return false, nil
	}
	return true, remover.Remove()
}
