package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/models"
	"go.uber.org/zap"
)

// Sink receives fully prepared documents. Commit must make the document and all of its chunks
// visible atomically; Remove must not return before every trace of the document is gone.
type Sink interface {
	Commit(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	Remove(ctx context.Context, docID string) error
}

// Indexer runs the ingest pipeline: preprocess, chunk, embed, commit.
type Indexer struct {
	sink     Sink
	embedder embedding.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (document indexed, document deleted).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer that commits into sink.
func NewIndexer(sink Sink, embedder embedding.Embedder, chunker *Chunker, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		sink:     sink,
		embedder: embedder,
		chunker:  chunker,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Prepare validates input and builds the document and its embedded chunks without committing.
// An empty ID is replaced by a random UUID.
func (idx *Indexer) Prepare(ctx context.Context, input *models.DocumentInput) (*models.Document, []*models.Chunk, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}
	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}
	doc := &models.Document{
		ID:       id,
		Title:    input.Title,
		Content:  Preprocess(input.Content),
		Metadata: input.Metadata,
	}
	chunks := idx.chunker.Chunk(doc.ID, doc.Content)
	if len(chunks) == 0 {
		return nil, nil, models.Validationf("document %s has no indexable text", doc.ID)
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return doc, chunks, nil
}

// IndexDocument prepares and commits a document.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	start := time.Now()
	doc, chunks, err := idx.Prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := idx.sink.Commit(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to commit document %s: %w", doc.ID, err)
	}
	elapsed := time.Since(start)
	idx.logger.Debug("indexer document indexed",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", elapsed),
	)
	return &models.IngestResult{
		DocumentID:       doc.ID,
		ChunksCreated:    len(chunks),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}, nil
}

// DeleteDocument removes a document and all of its chunks.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return models.Validationf("document id cannot be empty")
	}
	idx.logger.Debug("indexer deleting document", zap.String("id", id))
	if err := idx.sink.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}
