// Package corpus owns the vector index, keyword index, and document store as one unit with an
// explicit Open/Close lifecycle. Writes are serialized and atomic per document; reads share a
// read lock so a query always sees whole documents.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed corpus.
var ErrClosed = errors.New("corpus is closed")

// Corpus is the shared index state consumed by the indexer and the retriever.
type Corpus struct {
	vectors  vector.VectorIndex
	keywords keyword.KeywordIndex
	store    storage.Storage
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets a logger for lifecycle and write events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Corpus) { c.logger = l }
}

// Open takes ownership of the given indexes and store and rebuilds both indexes from the chunks
// already in the store. On error nothing is closed; the caller still owns its arguments.
func Open(ctx context.Context, store storage.Storage, vectors vector.VectorIndex, keywords keyword.KeywordIndex, opts ...Option) (*Corpus, error) {
	c := &Corpus{
		vectors:  vectors,
		keywords: keywords,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	chunks, err := store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored chunks: %w", err)
	}
	if len(chunks) > 0 {
		if err := c.indexChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to rebuild indexes: %w", err)
		}
	}
	c.logger.Info("corpus opened",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", vectors.Dimensions()),
	)
	return c, nil
}

// Commit stores doc and indexes its chunks. The document becomes visible to readers all at
// once. Duplicate document IDs fail with models.ErrValidation; embeddings of the wrong size
// fail with models.ErrDimensionMismatch before anything is written.
func (c *Corpus) Commit(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	if doc == nil || doc.ID == "" {
		return models.Validationf("document id cannot be empty")
	}
	dims := c.vectors.Dimensions()
	for _, ch := range chunks {
		if ch.DocumentID != doc.ID {
			return models.Validationf("chunk %s belongs to %s, not %s", ch.ID, ch.DocumentID, doc.ID)
		}
		if len(ch.Embedding) != dims {
			return fmt.Errorf("chunk %s: %w", ch.ID, models.DimensionMismatch(len(ch.Embedding), dims))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.store.SaveDocument(ctx, doc, chunks); err != nil {
		return err
	}
	if err := c.indexChunks(ctx, chunks); err != nil {
		c.unindexChunks(ctx, chunks)
		if delErr := c.store.DeleteDocument(ctx, doc.ID); delErr != nil {
			c.logger.Error("corpus rollback failed", zap.String("doc_id", doc.ID), zap.Error(delErr))
		}
		return err
	}
	c.logger.Debug("corpus committed document", zap.String("doc_id", doc.ID), zap.Int("chunks", len(chunks)))
	return nil
}

// Remove deletes a document with all of its vectors, postings, and chunks. When it returns, no
// reader can observe any of them. Unknown IDs fail with models.ErrNotFound.
func (c *Corpus) Remove(ctx context.Context, docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := c.store.GetDocument(ctx, docID); err != nil {
		return err
	}
	chunks, err := c.store.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	ids := chunkIDs(chunks)
	if err := c.keywords.Delete(ctx, ids...); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := c.vectors.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := c.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	c.logger.Debug("corpus removed document", zap.String("doc_id", docID), zap.Int("chunks", len(ids)))
	return nil
}

// View runs fn with read access to the indexes. Commits and removals wait until fn returns.
func (c *Corpus) View(ctx context.Context, fn func(v *View) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return fn(&View{c: c})
}

// Document returns a stored document and its chunks.
func (c *Corpus) Document(ctx context.Context, id string) (*models.Document, []*models.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, nil, ErrClosed
	}
	doc, err := c.store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := c.store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}

// Health reports document and chunk counts.
func (c *Corpus) Health(ctx context.Context) (models.Health, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return models.Health{Status: "closed"}, ErrClosed
	}
	docs, err := c.store.CountDocuments(ctx)
	if err != nil {
		return models.Health{}, err
	}
	chunks, err := c.store.CountChunks(ctx)
	if err != nil {
		return models.Health{}, err
	}
	return models.Health{Status: "ok", Documents: docs, Chunks: chunks, VectorSize: c.vectors.Size()}, nil
}

// Dimensions returns the embedding dimension accepted by the vector index.
func (c *Corpus) Dimensions() int {
	return c.vectors.Dimensions()
}

// Close closes the indexes and the store. Further calls return ErrClosed.
func (c *Corpus) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return errors.Join(c.vectors.Close(), c.keywords.Close(), c.store.Close())
}

func (c *Corpus) indexChunks(ctx context.Context, chunks []*models.Chunk) error {
	ids := chunkIDs(chunks)
	embeddings := make([][]float32, len(chunks))
	for i, ch := range chunks {
		embeddings[i] = ch.Embedding
	}
	if err := c.vectors.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	for _, ch := range chunks {
		if err := c.keywords.Index(ctx, ch.ID, ch.Text); err != nil {
			return fmt.Errorf("failed to index keywords for chunk %s: %w", ch.ID, err)
		}
	}
	return nil
}

func (c *Corpus) unindexChunks(ctx context.Context, chunks []*models.Chunk) {
	ids := chunkIDs(chunks)
	_ = c.keywords.Delete(ctx, ids...)
	_ = c.vectors.Remove(ctx, ids)
}

func chunkIDs(chunks []*models.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	return ids
}
