package keyword

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperjump/ragcore/internal/models"
)

// Per matched term a chunk earns matchBase plus up to matchFreqWeight for repeated occurrences.
const (
	matchBase       = 0.7
	matchFreqWeight = 0.3
)

// InvertedIndex is an in-memory inverted index of (term, chunk, frequency) postings.
type InvertedIndex struct {
	minTermLength int
	postings      map[string]map[string]int // term -> chunk ID -> frequency
	chunkTerms    map[string][]string       // chunk ID -> its distinct terms
	mu            sync.RWMutex
}

// InvertedOption configures an InvertedIndex.
type InvertedOption func(*InvertedIndex)

// WithMinTermLength drops tokens shorter than n characters at index and query time.
func WithMinTermLength(n int) InvertedOption {
	return func(idx *InvertedIndex) { idx.minTermLength = n }
}

// NewInvertedIndex creates an empty inverted index.
func NewInvertedIndex(opts ...InvertedOption) *InvertedIndex {
	idx := &InvertedIndex{
		minTermLength: 1,
		postings:      make(map[string]map[string]int),
		chunkTerms:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index replaces the postings of chunkID with those of text.
func (idx *InvertedIndex) Index(ctx context.Context, chunkID, text string) error {
	if chunkID == "" {
		return models.Validationf("chunk id cannot be empty")
	}
	freqs := termFrequencies(Tokenize(text, idx.minTermLength))
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
	terms := make([]string, 0, len(freqs))
	for term, n := range freqs {
		chunks, ok := idx.postings[term]
		if !ok {
			chunks = make(map[string]int)
			idx.postings[term] = chunks
		}
		chunks[chunkID] = n
		terms = append(terms, term)
	}
	idx.chunkTerms[chunkID] = terms
	return nil
}

// Search scores each chunk as the sum over matched unique query terms of
// 0.7 + 0.3*tf/(tf+1), divided by the number of unique query terms.
func (idx *InvertedIndex) Search(ctx context.Context, query string) (map[string]float64, error) {
	terms := uniqueTerms(Tokenize(query, idx.minTermLength))
	scores := make(map[string]float64)
	if len(terms) == 0 {
		return scores, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, term := range terms {
		for chunkID, tf := range idx.postings[term] {
			f := float64(tf)
			scores[chunkID] += matchBase + matchFreqWeight*f/(f+1)
		}
	}
	n := float64(len(terms))
	for id := range scores {
		scores[id] /= n
	}
	return scores, nil
}

// Postings returns the postings of term ordered by chunk ID.
func (idx *InvertedIndex) Postings(term string) []models.Posting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	chunks := idx.postings[term]
	out := make([]models.Posting, 0, len(chunks))
	for chunkID, n := range chunks {
		out = append(out, models.Posting{Term: term, ChunkID: chunkID, Frequency: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out
}

// Delete removes all postings of the given chunks.
func (idx *InvertedIndex) Delete(ctx context.Context, chunkIDs ...string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range chunkIDs {
		idx.removeLocked(id)
	}
	return nil
}

func (idx *InvertedIndex) removeLocked(chunkID string) {
	for _, term := range idx.chunkTerms[chunkID] {
		chunks := idx.postings[term]
		delete(chunks, chunkID)
		if len(chunks) == 0 {
			delete(idx.postings, term)
		}
	}
	delete(idx.chunkTerms, chunkID)
}

// Len returns the number of indexed chunks.
func (idx *InvertedIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkTerms)
}

// Terms returns the number of distinct terms in the index.
func (idx *InvertedIndex) Terms() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings)
}

// Close is a no-op for InvertedIndex.
func (idx *InvertedIndex) Close() error {
	return nil
}
