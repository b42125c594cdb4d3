package importer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/crm-import/pkg/converter"
	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/model"
	"github.com/David-Botos/crm-import/pkg/store"
)

// State is the lifecycle state of one import run
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateDraining  State = "draining"
	StateDone      State = "done"
	StateAborted   State = "aborted"
)

// Options configures an Importer
type Options struct {
	QueueCapacity int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		QueueCapacity: 256,
		RetryAttempts: 3,
		RetryDelay:    50 * time.Millisecond,
	}
}

// Importer turns delimited files into stored entities
type Importer struct {
	store  store.Store
	logger *zap.Logger
	opts   Options
}

// New creates an Importer writing through s
func New(s store.Store, logger *zap.Logger, opts Options) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultOptions().QueueCapacity
	}
	return &Importer{
		store:  s,
		logger: logger.Named("importer"),
		opts:   opts,
	}
}

// run holds the state of a single Import call
type run struct {
	job         ImportJob
	store       store.Store
	transformer converter.Transformer
	tags        *TagReconciler
	queue       *Queue
	metrics     *Metrics
	logger      *zap.Logger

	mu     sync.Mutex
	state  State
	result *model.ImportResult
}

// Import reads every row of req.Input and persists the entities it produces.
// Row failures are reported in the result. Structural input errors and context
// cancellation return an *AbortError and no result; the input is kept. An input
// without data rows returns ErrEmptyInput.
func (im *Importer) Import(ctx context.Context, req Request) (*model.ImportResult, error) {
	r, err := im.newRun(req)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx)
}

// ImportWithMetrics is Import that also returns the run's metrics
func (im *Importer) ImportWithMetrics(ctx context.Context, req Request) (*model.ImportResult, *Metrics, error) {
	r, err := im.newRun(req)
	if err != nil {
		return nil, nil, err
	}
	result, err := r.execute(ctx)
	return result, r.metrics, err
}

func (im *Importer) newRun(req Request) (*run, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid import request")
	}

	job := NewImportJob(req)
	logger := im.logger.With(
		zap.String("jobID", job.ID),
		zap.String("kind", string(job.Request.Kind)),
		zap.String("source", string(job.Request.Source)))

	transformer, err := converter.New(job.Request.Kind, job.Request.Source, job.Request.Mapping, logger)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(job, logger)
	return &run{
		job:         job,
		store:       im.store,
		transformer: transformer,
		tags:        NewTagReconciler(im.store),
		queue: NewQueue(im.opts.QueueCapacity, logger, QueueOptions{
			RetryAttempts: im.opts.RetryAttempts,
			RetryDelay:    im.opts.RetryDelay,
			Metrics:       metrics,
		}),
		metrics: metrics,
		logger:  logger,
		state:   StateIdle,
		result:  model.NewImportResult(),
	}, nil
}

// setState updates the run state
func (r *run) setState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prevState := r.state
	r.state = state

	if prevState != state {
		r.logger.Info("Import state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

func (r *run) execute(ctx context.Context) (*model.ImportResult, error) {
	r.setState(StateStreaming)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.queue.Run(gctx)
	})

	streamErr := r.stream(gctx)
	r.queue.Close()
	if streamErr == nil {
		r.setState(StateDraining)
	}

	// The executor returns only after Close and an empty continuation stack
	waitErr := g.Wait()
	if streamErr == nil {
		streamErr = waitErr
	}

	if streamErr != nil {
		r.setState(StateAborted)
		r.metrics.Complete(StateAborted)
		abort := newAbortError(streamErr)
		r.logger.Error("Import aborted",
			zap.Int("line", abort.Line),
			zap.Error(abort.Err))
		return nil, abort
	}

	r.setState(StateDone)
	r.metrics.Complete(StateDone)
	r.removeInput()

	r.mu.Lock()
	result := r.result.Clone()
	r.mu.Unlock()

	if result.Total == 0 {
		r.logger.Warn("Input has no data rows")
		return nil, ErrEmptyInput
	}

	r.logger.Info("Import completed",
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// stream reads rows and submits their operations until EOF
func (r *run) stream(ctx context.Context) error {
	reader := ingest.NewReader(r.job.Request.Input)

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return newAbortError(err)
		}

		index := r.countRow()
		if index == 1 && r.job.Request.SkipFirstRow {
			r.metrics.RecordSkip()
			continue
		}

		entity, ok := r.transformer.Transform(row, index)
		if !ok {
			r.metrics.RecordSkip()
			continue
		}

		if err := r.queue.Submit(ctx, r.rowOperation(index, entity)); err != nil {
			return err
		}
		r.metrics.RecordSubmit()
	}
}

// countRow increments the total and returns the 1-based position of the row
func (r *run) countRow() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.Total++
	r.metrics.RecordRow()
	return r.result.Total
}

func (r *run) addError(rowErr *RowError) {
	r.mu.Lock()
	r.result.AddError(rowErr.Error())
	r.mu.Unlock()

	r.metrics.RecordError(rowErr.Category)
	r.logger.Debug("Row error",
		zap.Int("row", rowErr.Row),
		zap.String("category", rowErr.Category.String()),
		zap.Error(rowErr.Err))
}

func (r *run) markImported() {
	r.mu.Lock()
	r.result.Imported++
	r.mu.Unlock()

	r.metrics.RecordImported()
}

// rowOperation returns the first operation of a row's plan: a contact lookup
// when the entity names one, otherwise the insert
func (r *run) rowOperation(index int, entity *model.Entity) Operation {
	insert := r.insertOperation(index, entity)
	md, _ := entity.Kind.Metadata()
	if !md.HasContact || entity.ContactName == "" || entity.ContactID != nil {
		return insert
	}

	name := entity.ContactName
	var (
		contactID int64
		found     bool
	)
	return Operation{
		Name: "lookup contact",
		Run: func(ctx context.Context) error {
			var err error
			contactID, found, err = r.store.FindEntityByName(ctx, md.ContactKind, name)
			return err
		},
		Done: func(err error) []Operation {
			switch {
			case err != nil:
				r.addError(&RowError{Row: index, Category: CategoryLookup, Subject: name, Err: err})
			case found:
				entity.ContactID = &contactID
			default:
				r.logger.Debug("Related contact not found",
					zap.Int("row", index),
					zap.String("contact", name))
			}
			return []Operation{insert}
		},
	}
}

func (r *run) insertOperation(index int, entity *model.Entity) Operation {
	var id int64
	return Operation{
		Name: "insert " + string(entity.Kind),
		Run: func(ctx context.Context) error {
			var err error
			id, err = r.store.InsertEntity(ctx, entity)
			return err
		},
		Done: func(err error) []Operation {
			if err != nil {
				r.addError(&RowError{Row: index, Category: CategorizeError(err), Err: err})
				return nil
			}
			r.markImported()
			return r.tags.Operations(entity.Kind, id, entity.Tags, func(tag string, err error) {
				r.addError(&RowError{Row: index, Category: CategoryTag, Subject: tag, Err: err})
			})
		},
	}
}

// removeInput deletes the input after a completed run
func (r *run) removeInput() {
	removable, err := r.job.remove()
	if !removable {
		return
	}
	if err != nil {
		r.logger.Warn("Failed to remove input", zap.Error(err))
		return
	}
	r.logger.Debug("Input removed")
}
