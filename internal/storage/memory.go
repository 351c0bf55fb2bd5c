package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/ragcore/internal/models"
)

// MemoryStorage keeps documents and chunks in maps. Nothing survives Close.
type MemoryStorage struct {
	docs      map[string]*models.Document
	chunks    map[string]*models.Chunk
	docChunks map[string][]string
	mu        sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		docs:      make(map[string]*models.Document),
		chunks:    make(map[string]*models.Chunk),
		docChunks: make(map[string][]string),
	}
}

// SaveDocument stores doc and its chunks. The document must not exist yet.
func (s *MemoryStorage) SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return models.Validationf("document %s already exists", doc.ID)
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.docs[doc.ID] = doc
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		s.chunks[ch.ID] = ch
		ids[i] = ch.ID
	}
	s.docChunks[doc.ID] = ids
	return nil
}

// GetDocument returns a document by ID.
func (s *MemoryStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, models.NotFoundf("document %s", id)
	}
	return doc, nil
}

// DeleteDocument removes a document and its chunks.
func (s *MemoryStorage) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return models.NotFoundf("document %s", id)
	}
	for _, chunkID := range s.docChunks[id] {
		delete(s.chunks, chunkID)
	}
	delete(s.docChunks, id)
	delete(s.docs, id)
	return nil
}

// ListDocuments returns documents ordered by creation time (newest first), then ID.
func (s *MemoryStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	s.mu.RLock()
	docs := make([]*models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return page(docs, offset, limit), nil
}

// GetChunk returns a chunk by ID.
func (s *MemoryStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[id]
	if !ok {
		return nil, models.NotFoundf("chunk %s", id)
	}
	return ch, nil
}

// GetChunksByDocumentID returns the chunks of a document ordered by ordinal.
func (s *MemoryStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.docChunks[docID]
	out := make([]*models.Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.chunks[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// AllChunks returns every chunk ordered by document ID and ordinal.
func (s *MemoryStorage) AllChunks(ctx context.Context) ([]*models.Chunk, error) {
	s.mu.RLock()
	out := make([]*models.Chunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		out = append(out, ch)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out, nil
}

// CountDocuments returns the number of documents.
func (s *MemoryStorage) CountDocuments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// CountChunks returns the number of chunks.
func (s *MemoryStorage) CountChunks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

// Close drops all data.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*models.Document)
	s.chunks = make(map[string]*models.Chunk)
	s.docChunks = make(map[string][]string)
	return nil
}

func page(docs []*models.Document, offset, limit int) []*models.Document {
	if offset < 0 {
		offset = 0
	}
	if offset > len(docs) {
		offset = len(docs)
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end]
}
