package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/model"
)

// OperationMetrics aggregates executions of one operation name
type OperationMetrics struct {
	Count     int64
	Failures  int64
	Retries   int64
	TotalTime time.Duration
}

// Metrics tracks counters for one import run
type Metrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	JobID          string
	Kind           model.Kind
	StartTime      time.Time
	EndTime        time.Time
	FinalState     State
	RowsRead       int64
	RowsSkipped    int64
	RowsSubmitted  int64
	Imported       int64
	PeakQueueDepth int
	ErrorCounts    map[ErrorCategory]int
	Operations     map[string]*OperationMetrics
}

// NewMetrics creates a collector for job
func NewMetrics(job ImportJob, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{
		logger:      logger,
		JobID:       job.ID,
		Kind:        job.Request.Kind,
		StartTime:   time.Now(),
		ErrorCounts: make(map[ErrorCategory]int),
		Operations:  make(map[string]*OperationMetrics),
	}
}

// RecordRow counts a data row read from the input
func (m *Metrics) RecordRow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsRead++
}

// RecordSkip counts a row that produced no entity
func (m *Metrics) RecordSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsSkipped++
}

// RecordSubmit counts a row whose operations entered the queue
func (m *Metrics) RecordSubmit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsSubmitted++
}

// RecordImported counts a persisted entity
func (m *Metrics) RecordImported() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Imported++
}

// RecordQueueDepth keeps the highest observed queue depth
func (m *Metrics) RecordQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.PeakQueueDepth {
		m.PeakQueueDepth = depth
	}
}

// RecordError increments the count for a specific error category
func (m *Metrics) RecordError(category ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCounts[category]++
}

// RecordOperation records one executed queue operation
func (m *Metrics) RecordOperation(name string, d time.Duration, retries int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.Operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.Operations[name] = om
	}
	om.Count++
	om.Retries += int64(retries)
	om.TotalTime += d
	if err != nil {
		om.Failures++
	}
	if retries > 0 {
		m.ErrorCounts[CategoryTransient] += retries
	}
}

// Complete marks the run as finished in state
func (m *Metrics) Complete(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	m.FinalState = state

	m.logger.Info("Import metrics",
		zap.String("state", string(state)),
		zap.Duration("duration", m.duration()),
		zap.Int64("rowsRead", m.RowsRead),
		zap.Int64("rowsSkipped", m.RowsSkipped),
		zap.Int64("imported", m.Imported),
		zap.Int("peakQueueDepth", m.PeakQueueDepth),
		zap.Float64("throughput", m.throughput()))
}

func (m *Metrics) duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// throughput calculates rows read per second
func (m *Metrics) throughput() float64 {
	seconds := m.duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(m.RowsRead) / seconds
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Report creates a human-readable metrics report
func (m *Metrics) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := fmt.Sprintf(`
Import Metrics Report
=====================
Job:                     %s
Kind:                    %s
State:                   %s
Duration:                %s

Rows
----
Read:                    %d
Skipped:                 %d
Submitted:               %d
Imported:                %d
Throughput:              %.2f rows/sec
Peak Queue Depth:        %d
`,
		m.JobID,
		m.Kind,
		m.FinalState,
		formatDuration(m.duration()),
		m.RowsRead,
		m.RowsSkipped,
		m.RowsSubmitted,
		m.Imported,
		m.throughput(),
		m.PeakQueueDepth,
	)

	if len(m.Operations) > 0 {
		report += "\nOperations\n----------\n"
		names := make([]string, 0, len(m.Operations))
		for name := range m.Operations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			om := m.Operations[name]
			report += fmt.Sprintf("- %s: %d run, %d failed, %d retries, %s\n",
				name, om.Count, om.Failures, om.Retries, formatDuration(om.TotalTime))
		}
	}

	if len(m.ErrorCounts) > 0 {
		report += "\nError Distribution\n------------------\n"
		categories := make([]ErrorCategory, 0, len(m.ErrorCounts))
		for category := range m.ErrorCounts {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			report += fmt.Sprintf("- %s: %d\n", category, m.ErrorCounts[category])
		}
	}

	return report
}

// ToJSON serializes metrics to JSON
func (m *Metrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return json.Marshal(struct {
		JobID          string                `json:"jobId"`
		Kind           model.Kind            `json:"kind"`
		State          State                 `json:"state"`
		Duration       string                `json:"duration"`
		RowsRead       int64                 `json:"rowsRead"`
		RowsSkipped    int64                 `json:"rowsSkipped"`
		Imported       int64                 `json:"imported"`
		PeakQueueDepth int                   `json:"peakQueueDepth"`
		Throughput     float64               `json:"throughput"`
		ErrorCounts    map[ErrorCategory]int `json:"errorCounts"`
	}{
		JobID:          m.JobID,
		Kind:           m.Kind,
		State:          m.FinalState,
		Duration:       formatDuration(m.duration()),
		RowsRead:       m.RowsRead,
		RowsSkipped:    m.RowsSkipped,
		Imported:       m.Imported,
		PeakQueueDepth: m.PeakQueueDepth,
		Throughput:     m.throughput(),
		ErrorCounts:    m.ErrorCounts,
	})
}
