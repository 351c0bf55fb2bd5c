package corpus

import (
	"context"
	"errors"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/vector"
)

// View is read access to a corpus, valid only inside the Corpus.View callback.
type View struct {
	c *Corpus
}

// VectorSearch returns up to k nearest chunks to query.
func (v *View) VectorSearch(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error) {
	return v.c.vectors.Search(ctx, query, k)
}

// KeywordSearch returns chunk ID -> term overlap score.
func (v *View) KeywordSearch(ctx context.Context, query string) (map[string]float64, error) {
	return v.c.keywords.Search(ctx, query)
}

// Chunk returns an indexed chunk. A chunk that an index returned but the store does not hold
// is reported as models.ErrIndexCorruption.
func (v *View) Chunk(ctx context.Context, id string) (*models.Chunk, error) {
	ch, err := v.c.store.GetChunk(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Corruptionf("chunk %s is indexed but not stored", id)
	}
	return ch, err
}

// Dimensions returns the embedding dimension of the vector index.
func (v *View) Dimensions() int {
	return v.c.vectors.Dimensions()
}

// Size returns the number of indexed vectors.
func (v *View) Size() int {
	return v.c.vectors.Size()
}
