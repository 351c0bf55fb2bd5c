// Package search implements hybrid retrieval: vector and keyword candidates fused per chunk,
// filtered by a similarity floor, and ranked deterministically.
package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/vector"
	"go.uber.org/zap"
)

// DefaultOverfetchFactor multiplies TopK for the vector candidate pool.
const DefaultOverfetchFactor = 3

// Reader is the read side of the indexes a retrieval runs against.
type Reader interface {
	VectorSearch(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error)
	KeywordSearch(ctx context.Context, query string) (map[string]float64, error)
	Chunk(ctx context.Context, id string) (*models.Chunk, error)
	Dimensions() int
	Size() int
}

// Query is a validated retrieval request. Embedding may be nil in keyword mode.
type Query struct {
	Text          string
	Embedding     []float32
	TopK          int
	Alpha         float64
	MinSimilarity float64
	Mode          string
}

// Validate checks ranges and the mode.
func (q Query) Validate() error {
	if q.TopK < 1 {
		return models.Validationf("top_k must be at least 1, got %d", q.TopK)
	}
	if q.Alpha < 0 || q.Alpha > 1 {
		return models.Validationf("alpha must be in [0,1], got %g", q.Alpha)
	}
	if q.MinSimilarity < 0 || q.MinSimilarity > 1 {
		return models.Validationf("min_similarity must be in [0,1], got %g", q.MinSimilarity)
	}
	if q.Mode != "" && !models.ValidMode(q.Mode) {
		return models.Validationf("unknown retrieval mode: %s", q.Mode)
	}
	return nil
}

// NeedsEmbedding reports whether the query's mode searches the vector index.
func (q Query) NeedsEmbedding() bool {
	return q.Mode != models.ModeKeyword
}

// Retriever runs retrieval strategies against a Reader.
type Retriever struct {
	overfetch int
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithOverfetchFactor sets the vector candidate multiplier. Values below 1 are ignored.
func WithOverfetchFactor(n int) Option {
	return func(r *Retriever) {
		if n >= 1 {
			r.overfetch = n
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a Retriever.
func NewRetriever(opts ...Option) *Retriever {
	r := &Retriever{overfetch: DefaultOverfetchFactor, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns at most q.TopK ranked results. An empty index gives an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, rd Reader, q Query) ([]*models.RetrievedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(q.Mode)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if usesVectors(strategy) && len(q.Embedding) != rd.Dimensions() {
		return nil, models.DimensionMismatch(len(q.Embedding), rd.Dimensions())
	}
	results := make([]*models.RetrievedResult, 0, q.TopK)
	if rd.Size() == 0 {
		return results, nil
	}

	vectorScores, keywordScores, err := strategy.Candidates(ctx, rd, q, q.TopK*r.overfetch)
	if err != nil {
		return nil, err
	}
	fused := FilterMinScore(Fuse(vectorScores, keywordScores, strategy.Alpha(q.Alpha)), q.MinSimilarity)

	for _, f := range fused {
		ch, err := rd.Chunk(ctx, f.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chunk %s: %w", f.ChunkID, err)
		}
		results = append(results, &models.RetrievedResult{
			ChunkID:      ch.ID,
			DocumentID:   ch.DocumentID,
			Ordinal:      ch.Ordinal,
			Text:         ch.Text,
			VectorScore:  f.VectorScore,
			KeywordScore: f.KeywordScore,
			FusedScore:   f.Score,
		})
	}
	Rank(results)
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	r.logger.Debug("retrieval complete",
		zap.String("mode", strategy.Name()),
		zap.Int("vector_candidates", len(vectorScores)),
		zap.Int("keyword_candidates", len(keywordScores)),
		zap.Int("results", len(results)),
	)
	return results, nil
}
