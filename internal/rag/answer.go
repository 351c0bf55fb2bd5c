package rag

import (
	"context"
	"strings"

	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/models"
)

// AnswerGenerator turns retrieved chunks into an answer with a self-reported confidence in [0,1].
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, chunks []*models.RetrievedResult) (answer string, confidence float64, err error)
}

// ExtractiveGenerator answers with the first sentence of the best-ranked chunk. Its confidence
// is that chunk's fused score.
type ExtractiveGenerator struct {
	// MaxSentences caps the answer length; 0 means 1.
	MaxSentences int
}

// Generate implements AnswerGenerator.
func (g ExtractiveGenerator) Generate(ctx context.Context, question string, chunks []*models.RetrievedResult) (string, float64, error) {
	if len(chunks) == 0 {
		return "", 0, nil
	}
	limit := g.MaxSentences
	if limit <= 0 {
		limit = 1
	}
	top := chunks[0]
	sentences := indexer.SplitSentences(top.Text)
	if len(sentences) > limit {
		sentences = sentences[:limit]
	}
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		parts = append(parts, strings.TrimSpace(top.Text[s.Start:s.End]))
	}
	return strings.Join(parts, " "), top.FusedScore, nil
}
