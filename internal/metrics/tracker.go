// Package metrics keeps a bounded history of query metrics plus ingest and error counters, and
// summarizes them with nearest-rank percentiles.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/ragcore/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultHistorySize is the number of queries kept.
	DefaultHistorySize = 1000
	// DefaultSlowQuery is the latency above which a query is logged as slow.
	DefaultSlowQuery = 5 * time.Second
	recentErrors     = 5
)

// Distribution is a percentile summary of one measure.
type Distribution struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// Summary describes the queries currently held in the history window.
type Summary struct {
	TotalQueries int          `json:"total_queries"`
	QueryTimeMs  Distribution `json:"query_time_ms"`
	Score        Distribution `json:"score"`
}

// IngestStats aggregates document processing.
type IngestStats struct {
	Documents         int64   `json:"documents"`
	Chunks            int64   `json:"chunks"`
	AvgChunksPerDoc   float64 `json:"avg_chunks_per_doc"`
	AvgProcessingMs   float64 `json:"avg_processing_ms"`
	AvgTimePerChunkMs float64 `json:"avg_time_per_chunk_ms"`
}

// ErrorRecord is one recorded failure.
type ErrorRecord struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorStats aggregates failures by kind.
type ErrorStats struct {
	Total  int64            `json:"total"`
	ByKind map[string]int64 `json:"by_kind"`
	Recent []ErrorRecord    `json:"recent"`
}

// Report is the full metrics snapshot.
type Report struct {
	Queries       Summary     `json:"queries"`
	QueriesServed int64       `json:"queries_served"`
	Ingest        IngestStats `json:"ingest"`
	Errors        ErrorStats  `json:"errors"`
	ErrorRate     float64     `json:"error_rate"` // failures over served queries, ingests and failures
	Since         time.Time   `json:"since"`
}

// Tracker records metrics. Appends hold a mutex briefly; summaries work on a copy.
type Tracker struct {
	mu        sync.Mutex
	history   []models.RetrievalMetrics
	next      int
	full      bool
	total     int64
	ingest    IngestStats
	ingestMs  float64
	chunkMs   float64
	errors    ErrorStats
	since     time.Time
	slowQuery time.Duration
	logger    *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSlowQuery sets the slow query warning threshold. Zero disables the warning.
func WithSlowQuery(d time.Duration) Option {
	return func(t *Tracker) { t.slowQuery = d }
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a Tracker keeping the last historySize queries.
func NewTracker(historySize int, opts ...Option) *Tracker {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	t := &Tracker{
		history:   make([]models.RetrievalMetrics, historySize),
		slowQuery: DefaultSlowQuery,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.resetLocked()
	return t
}

// Record appends one query's metrics, evicting the oldest when full.
func (t *Tracker) Record(m models.RetrievalMetrics) {
	t.mu.Lock()
	t.history[t.next] = m
	t.next = (t.next + 1) % len(t.history)
	if t.next == 0 {
		t.full = true
	}
	t.total++
	t.mu.Unlock()

	if t.slowQuery > 0 && m.QueryTimeMs > float64(t.slowQuery.Milliseconds()) {
		t.logger.Warn("slow query detected",
			zap.Float64("query_time_ms", m.QueryTimeMs),
			zap.Int("num_retrieved", m.NumRetrieved),
		)
	}
}

// RecordIngest records one ingested document.
func (t *Tracker) RecordIngest(docID string, chunks int, took time.Duration) {
	ms := float64(took.Microseconds()) / 1000
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ingest.Documents++
	t.ingest.Chunks += int64(chunks)
	t.ingestMs += ms
	if chunks > 0 {
		t.chunkMs += ms / float64(chunks)
	}
	t.logger.Debug("document processing tracked",
		zap.String("doc_id", docID),
		zap.Int("chunks", chunks),
		zap.Duration("took", took),
	)
}

// RecordError records a failure of the given kind.
func (t *Tracker) RecordError(kind, message string) {
	if kind == "" {
		kind = "internal"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors.Total++
	t.errors.ByKind[kind]++
	t.errors.Recent = append(t.errors.Recent, ErrorRecord{Kind: kind, Message: message, Timestamp: time.Now()})
	if len(t.errors.Recent) > recentErrors {
		t.errors.Recent = t.errors.Recent[len(t.errors.Recent)-recentErrors:]
	}
}

// Summarize computes query percentiles over the current history.
func (t *Tracker) Summarize() Summary {
	return summarize(t.snapshot())
}

// Report returns the query summary with ingest and error statistics.
func (t *Tracker) Report() Report {
	history := t.snapshot()

	t.mu.Lock()
	total := t.total
	ingest := t.ingest
	ingestMs, chunkMs := t.ingestMs, t.chunkMs
	errs := ErrorStats{Total: t.errors.Total, ByKind: make(map[string]int64, len(t.errors.ByKind))}
	for k, v := range t.errors.ByKind {
		errs.ByKind[k] = v
	}
	errs.Recent = append([]ErrorRecord(nil), t.errors.Recent...)
	since := t.since
	t.mu.Unlock()

	if ingest.Documents > 0 {
		n := float64(ingest.Documents)
		ingest.AvgChunksPerDoc = float64(ingest.Chunks) / n
		ingest.AvgProcessingMs = ingestMs / n
		ingest.AvgTimePerChunkMs = chunkMs / n
	}
	var rate float64
	if ops := total + ingest.Documents + errs.Total; ops > 0 {
		rate = float64(errs.Total) / float64(ops)
	}
	return Report{
		Queries:       summarize(history),
		QueriesServed: total,
		Ingest:        ingest,
		Errors:        errs,
		ErrorRate:     rate,
		Since:         since,
	}
}

// Reset clears all recorded metrics.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.logger.Info("metrics reset")
}

func (t *Tracker) resetLocked() {
	for i := range t.history {
		t.history[i] = models.RetrievalMetrics{}
	}
	t.next = 0
	t.full = false
	t.total = 0
	t.ingest = IngestStats{}
	t.ingestMs, t.chunkMs = 0, 0
	t.errors = ErrorStats{ByKind: make(map[string]int64)}
	t.since = time.Now()
}

func (t *Tracker) snapshot() []models.RetrievalMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]models.RetrievalMetrics(nil), t.history[:t.next]...)
	}
	out := make([]models.RetrievalMetrics, 0, len(t.history))
	out = append(out, t.history[t.next:]...)
	return append(out, t.history[:t.next]...)
}

func summarize(history []models.RetrievalMetrics) Summary {
	times := make([]float64, 0, len(history))
	scores := make([]float64, 0, len(history))
	for _, m := range history {
		times = append(times, m.QueryTimeMs)
		if m.NumRetrieved > 0 {
			scores = append(scores, m.AvgScore)
		}
	}
	return Summary{
		TotalQueries: len(history),
		QueryTimeMs:  distribution(times),
		Score:        distribution(scores),
	}
}

func distribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Distribution{
		Avg:    sum / float64(len(values)),
		Median: Percentile(values, 50),
		P95:    Percentile(values, 95),
		P99:    Percentile(values, 99),
	}
}

// Percentile returns the nearest-rank percentile of sorted values: sorted[floor(len*p/100)],
// with the index clamped to the last element. Empty input gives 0.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
