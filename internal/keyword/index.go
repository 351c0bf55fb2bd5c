// Package keyword provides term-overlap search over chunk text.
package keyword

import "context"

// KeywordIndex maps terms to chunk postings and scores chunks by query term overlap.
// Scores are in [0,1]; ranking across signals is left to the retriever.
type KeywordIndex interface {
	// Index tokenizes text and replaces any postings previously held for chunkID.
	Index(ctx context.Context, chunkID, text string) error
	// Search returns chunk ID -> score for every chunk touched by a query term.
	Search(ctx context.Context, query string) (map[string]float64, error)
	// Delete removes all postings of the given chunks.
	Delete(ctx context.Context, chunkIDs ...string) error
	// Len returns the number of indexed chunks.
	Len() int
	Close() error
}

// Backend names accepted by New.
const (
	BackendInverted = "inverted"
	BackendBleve    = "bleve"
)
