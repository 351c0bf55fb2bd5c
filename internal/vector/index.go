// Package vector provides vector indexes and similarity search over chunk embeddings.
package vector

import "context"

// VectorIndex stores fixed-dimension vectors by ID and answers similarity queries.
// Implementations may be exact or approximate; scores are cosine similarities.
type VectorIndex interface {
	// Add inserts or replaces vectors. A vector of the wrong dimension fails with
	// models.ErrDimensionMismatch and nothing from the batch is added.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k hits ordered by descending score.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit (ID is the chunk ID).
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}
