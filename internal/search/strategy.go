package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragcore/internal/models"
)

// Strategy gathers candidate scores for one retrieval mode.
type Strategy interface {
	// Name is the mode this strategy serves.
	Name() string
	// Alpha returns the fusion weight actually used for the requested alpha.
	Alpha(requested float64) float64
	// Candidates returns vector and keyword score maps. Either may be empty.
	Candidates(ctx context.Context, r Reader, q Query, k int) (vectorScores, keywordScores map[string]float64, err error)
}

// StrategyFor returns the strategy for mode. An empty mode selects hybrid.
func StrategyFor(mode string) (Strategy, error) {
	switch mode {
	case models.ModeHybrid, "":
		return hybridStrategy{}, nil
	case models.ModeVector:
		return vectorStrategy{}, nil
	case models.ModeKeyword:
		return keywordStrategy{}, nil
	default:
		return nil, models.Validationf("unknown retrieval mode: %s (supported: hybrid, vector, keyword)", mode)
	}
}

type hybridStrategy struct{}

func (hybridStrategy) Name() string                    { return models.ModeHybrid }
func (hybridStrategy) Alpha(requested float64) float64 { return requested }

func (hybridStrategy) Candidates(ctx context.Context, r Reader, q Query, k int) (map[string]float64, map[string]float64, error) {
	vs, err := vectorCandidates(ctx, r, q, k)
	if err != nil {
		return nil, nil, err
	}
	ks, err := keywordCandidates(ctx, r, q)
	if err != nil {
		return nil, nil, err
	}
	return vs, ks, nil
}

type vectorStrategy struct{}

func (vectorStrategy) Name() string          { return models.ModeVector }
func (vectorStrategy) Alpha(float64) float64 { return 1 }

func (vectorStrategy) Candidates(ctx context.Context, r Reader, q Query, k int) (map[string]float64, map[string]float64, error) {
	vs, err := vectorCandidates(ctx, r, q, k)
	return vs, nil, err
}

type keywordStrategy struct{}

func (keywordStrategy) Name() string          { return models.ModeKeyword }
func (keywordStrategy) Alpha(float64) float64 { return 0 }

func (keywordStrategy) Candidates(ctx context.Context, r Reader, q Query, k int) (map[string]float64, map[string]float64, error) {
	ks, err := keywordCandidates(ctx, r, q)
	return nil, ks, err
}

func vectorCandidates(ctx context.Context, r Reader, q Query, k int) (map[string]float64, error) {
	if len(q.Embedding) != r.Dimensions() {
		return nil, models.DimensionMismatch(len(q.Embedding), r.Dimensions())
	}
	hits, err := r.VectorSearch(ctx, q.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return VectorScores(hits), nil
}

func keywordCandidates(ctx context.Context, r Reader, q Query) (map[string]float64, error) {
	scores, err := r.KeywordSearch(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return scores, nil
}

// usesVectors reports whether s needs a query embedding.
func usesVectors(s Strategy) bool {
	return s.Name() != models.ModeKeyword
}
