// Package rag is the service facade over the retrieval core: ingest (inline, async, batch),
// query with rate limiting and confidence scoring, delete, metrics, and health.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/ragcore/internal/confidence"
	"github.com/hyperjump/ragcore/internal/corpus"
	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/ratelimit"
	"github.com/hyperjump/ragcore/internal/search"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the ingest worker pool size.
const DefaultWorkers = 4

// RateLimitError reports a denied request. It matches models.ErrCapacityExceeded.
type RateLimitError struct {
	Caller     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Caller, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return models.ErrCapacityExceeded }

// IngestOutcome is the result of one document in a batch.
type IngestOutcome struct {
	Index  int                  `json:"index"`
	Result *models.IngestResult `json:"result,omitempty"`
	Err    error                `json:"-"`
	Error  string               `json:"error,omitempty"`
}

// Service wires the corpus, indexer, retriever, scorer, limiter, and tracker together.
type Service struct {
	corpus    *corpus.Corpus
	indexer   *indexer.Indexer
	embedder  embedding.Embedder
	retriever *search.Retriever
	scorer    confidence.Scorer
	limiter   *ratelimit.Limiter
	tracker   *metrics.Tracker
	generator AnswerGenerator
	jobs      *jobRunner
	workers   int
	logger    *zap.Logger

	mu       sync.RWMutex
	defaults models.QueryDefaults
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRateLimiter enables per-caller admission on Query. Nil disables it.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithAnswerGenerator sets a generator whose answer and confidence are added to responses.
func WithAnswerGenerator(g AnswerGenerator) Option {
	return func(s *Service) { s.generator = g }
}

// WithRetriever replaces the default retriever.
func WithRetriever(r *search.Retriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithScorer replaces the default confidence scorer.
func WithScorer(sc confidence.Scorer) Option {
	return func(s *Service) { s.scorer = sc }
}

// WithTracker replaces the default metrics tracker.
func WithTracker(t *metrics.Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

// WithQueryDefaults sets the values used for unset query fields.
func WithQueryDefaults(d models.QueryDefaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithWorkers sets the ingest worker pool size.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// DefaultQueryDefaults returns top_k 5 (max 50), alpha 0.7, min similarity 0.3, hybrid mode.
func DefaultQueryDefaults() models.QueryDefaults {
	return models.QueryDefaults{TopK: 5, MaxTopK: 50, Alpha: 0.7, MinSimilarity: 0.3, Mode: models.ModeHybrid}
}

// New creates a Service over an open corpus. The service owns c and embedder from here on and
// closes them in Close.
func New(c *corpus.Corpus, embedder embedding.Embedder, chunker *indexer.Chunker, opts ...Option) (*Service, error) {
	if embedder.Dimensions() != c.Dimensions() {
		return nil, fmt.Errorf("embedder does not match the vector index: %w",
			models.DimensionMismatch(embedder.Dimensions(), c.Dimensions()))
	}
	s := &Service{
		corpus:    c,
		embedder:  embedder,
		retriever: search.NewRetriever(),
		scorer:    confidence.NewScorer(confidence.DefaultThreshold),
		tracker:   metrics.NewTracker(metrics.DefaultHistorySize),
		workers:   DefaultWorkers,
		logger:    zap.NewNop(),
		defaults:  DefaultQueryDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.indexer = indexer.NewIndexer(c, embedder, chunker, indexer.WithLogger(s.logger))
	s.jobs = newJobRunner(s.workers)
	return s, nil
}

// IngestDocument chunks, embeds, and commits one document.
func (s *Service) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	start := time.Now()
	res, err := s.indexer.IndexDocument(ctx, input)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	s.tracker.RecordIngest(res.DocumentID, res.ChunksCreated, time.Since(start))
	s.logger.Debug("document ingested",
		zap.String("doc_id", res.DocumentID),
		zap.Int("chunks", res.ChunksCreated),
	)
	return res, nil
}

// IngestBatch ingests inputs concurrently on the worker pool size. One document's failure does
// not affect the others; outcomes are in input order.
func (s *Service) IngestBatch(ctx context.Context, inputs []*models.DocumentInput) []IngestOutcome {
	outcomes := make([]IngestOutcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := s.IngestDocument(ctx, in)
			outcomes[i] = IngestOutcome{Index: i, Result: res, Err: err}
			if err != nil {
				outcomes[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Submit queues input for ingestion on the worker pool and returns immediately. The job outlives
// ctx's cancellation but keeps its values. A missing document ID is assigned up front.
func (s *Service) Submit(ctx context.Context, input *models.DocumentInput) *Job {
	in := *input
	job := newJob(&in)
	runCtx := context.WithoutCancel(ctx)
	s.jobs.submit(job, func() {
		job.start()
		res, err := s.IngestDocument(runCtx, &in)
		job.finish(res, err)
	})
	return job
}

// Job returns a submitted job by ID.
func (s *Service) Job(id string) (*Job, bool) {
	return s.jobs.get(id)
}

// Query answers a retrieval request for caller. Denials return a *RateLimitError. An empty result
// set is not an error: the response carries NoResultsMessage and zero confidence.
func (s *Service) Query(ctx context.Context, caller string, req models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()
	if s.limiter != nil {
		if d := s.limiter.AllowN(caller, 1); !d.Allowed {
			err := &RateLimitError{Caller: caller, RetryAfter: d.RetryAfter}
			s.recordError(err)
			return nil, err
		}
	}

	req.ApplyDefaults(s.queryDefaults())
	if req.Mode == "" {
		req.Mode = models.ModeHybrid
	}
	if err := req.Validate(); err != nil {
		s.recordError(err)
		return nil, err
	}
	q := search.Query{
		Text:          req.Query,
		TopK:          req.TopK,
		Alpha:         *req.Alpha,
		MinSimilarity: *req.MinSimilarity,
		Mode:          req.Mode,
	}
	if q.NeedsEmbedding() {
		emb, err := s.embedder.Embed(ctx, req.Query)
		if err != nil {
			err = fmt.Errorf("failed to embed query: %w", err)
			s.recordError(err)
			return nil, err
		}
		q.Embedding = emb
	}

	var results []*models.RetrievedResult
	err := s.corpus.View(ctx, func(v *corpus.View) error {
		var err error
		results, err = s.retriever.Retrieve(ctx, v, q)
		return err
	})
	if err != nil {
		s.recordError(err)
		if errors.Is(err, models.ErrIndexCorruption) {
			s.logger.Error("index corruption detected", zap.String("query", req.Query), zap.Error(err))
		}
		return nil, err
	}

	resp := &models.QueryResponse{Query: req.Query, Mode: req.Mode, Results: results}
	var model *float64
	if s.generator != nil && len(results) > 0 {
		answer, conf, err := s.generator.Generate(ctx, req.Query, results)
		if err != nil {
			s.recordError(err)
			s.logger.Warn("answer generation failed", zap.Error(err))
		} else {
			resp.Answer = answer
			model = &conf
		}
	}
	scored := s.scorer.Score(results, model)
	resp.Confidence = scored.Value
	resp.LowConfidence = scored.Low
	if len(results) == 0 {
		resp.Message = models.NoResultsMessage
		resp.Confidence = 0
		resp.LowConfidence = true
	}
	resp.Metrics = models.NewRetrievalMetrics(results, time.Since(start))
	s.tracker.Record(resp.Metrics)
	return resp, nil
}

// DeleteDocument removes a document. Unknown IDs fail with models.ErrNotFound.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.indexer.DeleteDocument(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.recordError(err)
		}
		return err
	}
	s.logger.Debug("document deleted", zap.String("doc_id", id))
	return nil
}

// Document returns a stored document and its chunks.
func (s *Service) Document(ctx context.Context, id string) (*models.Document, []*models.Chunk, error) {
	return s.corpus.Document(ctx, id)
}

// MetricsSummary returns the metrics report.
func (s *Service) MetricsSummary() metrics.Report {
	return s.tracker.Report()
}

// ResetMetrics clears recorded metrics.
func (s *Service) ResetMetrics() {
	s.tracker.Reset()
}

// Health reports corpus counts.
func (s *Service) Health(ctx context.Context) (models.Health, error) {
	return s.corpus.Health(ctx)
}

// SetMinSimilarity changes the default similarity floor for later queries.
func (s *Service) SetMinSimilarity(v float64) error {
	if v < 0 || v > 1 {
		return models.Validationf("min_similarity must be in [0,1], got %v", v)
	}
	s.mu.Lock()
	s.defaults.MinSimilarity = v
	s.mu.Unlock()
	s.logger.Info("min similarity updated", zap.Float64("min_similarity", v))
	return nil
}

// Close waits for queued jobs, then closes the corpus and the embedder.
func (s *Service) Close() error {
	s.jobs.close()
	return errors.Join(s.corpus.Close(), s.embedder.Close())
}

func (s *Service) queryDefaults() models.QueryDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *Service) recordError(err error) {
	s.tracker.RecordError(models.ErrorKind(err), err.Error())
}
