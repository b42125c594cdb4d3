package importer

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Submit after Close
var ErrQueueClosed = errors.New("queue is closed")

// Operation is one storage mutation and the continuation that observes its outcome
type Operation struct {
	Name string
	Run  func(ctx context.Context) error

	// Done receives the error returned by Run, nil on success. The operations
	// it returns run next, ahead of anything submitted later.
	Done func(err error) []Operation
}

// QueueOptions tunes retries of transient failures
type QueueOptions struct {
	RetryAttempts int              // Retries after the first attempt; 0 disables retrying
	RetryDelay    time.Duration    // Initial backoff interval
	Retryable     func(error) bool // Defaults to IsRetryableError
	Metrics       *Metrics         // Optional collector
}

// Queue executes operations one at a time in submission order
type Queue struct {
	ops    chan Operation
	logger *zap.Logger
	opts   QueueOptions

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue buffering at most capacity submitted operations
func NewQueue(capacity int, logger *zap.Logger, opts QueueOptions) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retryable == nil {
		opts.Retryable = IsRetryableError
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	return &Queue{
		ops:    make(chan Operation, capacity),
		logger: logger.Named("queue"),
		opts:   opts,
	}
}

// Submit enqueues op, blocking while the buffer is full
func (q *Queue) Submit(ctx context.Context, op Operation) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.ops <- op:
		if q.opts.Metrics != nil {
			q.opts.Metrics.RecordQueueDepth(len(q.ops))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends submission. Run returns once everything already submitted has executed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ops)
	}
}

// Run is the single executor loop. It returns nil after Close once every
// submitted operation and all follow-ups have completed, or ctx.Err() when
// ctx is cancelled first.
func (q *Queue) Run(ctx context.Context) error {
	// Follow-ups are kept on a stack so a parent's continuations run depth-first
	var pending []Operation

	for {
		if err := ctx.Err(); err != nil {
			q.logger.Warn("Queue stopping due to context cancellation",
				zap.Int("pending", len(pending)+len(q.ops)))
			return err
		}

		if n := len(pending); n > 0 {
			op := pending[n-1]
			pending = pending[:n-1]
			pending = q.execute(ctx, op, pending)
			continue
		}

		select {
		case op, ok := <-q.ops:
			if !ok {
				q.logger.Debug("Queue drained")
				return nil
			}
			pending = q.execute(ctx, op, pending)
		case <-ctx.Done():
		}
	}
}

// execute runs op and pushes its follow-ups so the first one is popped next
func (q *Queue) execute(ctx context.Context, op Operation, pending []Operation) []Operation {
	start := time.Now()
	retries, err := q.runWithRetry(ctx, op)

	if q.opts.Metrics != nil {
		q.opts.Metrics.RecordOperation(op.Name, time.Since(start), retries, err)
	}
	if err != nil {
		q.logger.Debug("Operation failed",
			zap.String("operation", op.Name),
			zap.Int("retries", retries),
			zap.Error(err))
	}

	if op.Done == nil {
		return pending
	}
	next := op.Done(err)
	for i := len(next) - 1; i >= 0; i-- {
		pending = append(pending, next[i])
	}
	return pending
}

// runWithRetry retries transient failures with exponential backoff
func (q *Queue) runWithRetry(ctx context.Context, op Operation) (int, error) {
	if op.Run == nil {
		return 0, nil
	}
	if q.opts.RetryAttempts <= 0 {
		return 0, op.Run(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.opts.RetryDelay
	bo.MaxInterval = 20 * q.opts.RetryDelay
	bo.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op.Run(ctx)
		if err == nil {
			return nil
		}
		if !q.opts.Retryable(err) {
			return backoff.Permanent(err)
		}
		q.logger.Debug("Retrying transient failure",
			zap.String("operation", op.Name),
			zap.Int("attempt", attempts),
			zap.Error(err))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(q.opts.RetryAttempts)), ctx))

	return attempts - 1, err
}
