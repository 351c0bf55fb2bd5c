// Package storage defines the persistence interface for documents and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/ragcore/internal/models"
)

// Storage persists documents with their chunks. Implementations report unknown IDs with
// models.ErrNotFound and duplicate documents with models.ErrValidation.
type Storage interface {
	// SaveDocument stores a document and all of its chunks in one unit.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// DeleteDocument removes the document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)
	// AllChunks returns every chunk with its embedding, ordered by document and ordinal.
	AllChunks(ctx context.Context) ([]*models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}

// Storage backends accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New creates a store for the named backend. dbPath is used by the sqlite backend only.
func New(backend, dbPath string) (Storage, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStorage(), nil
	case BackendSQLite:
		return NewSQLiteStorage(dbPath)
	default:
		return nil, models.Validationf("unknown storage backend: %s (supported: memory, sqlite)", backend)
	}
}
