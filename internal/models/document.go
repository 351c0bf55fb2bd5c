// Package models defines core data structures for documents, chunks, queries, and retrieval results.
package models

import "time"

// Document represents an ingested document. It is immutable once stored; a new version
// replaces it only through delete followed by ingest.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Chunk is a contiguous span of a document's content and the unit of retrieval.
// Offsets are byte offsets into the preprocessed Document.Content.
type Chunk struct {
	ID              string    `json:"id" db:"id"`
	DocumentID      string    `json:"document_id" db:"document_id"`
	Text            string    `json:"text" db:"text"`
	StartOffset     int       `json:"start_offset" db:"start_offset"`
	EndOffset       int       `json:"end_offset" db:"end_offset"`
	Ordinal         int       `json:"ordinal" db:"ordinal"`
	SemanticDensity float64   `json:"semantic_density" db:"semantic_density"`
	OverlapPrevious int       `json:"overlap_previous" db:"overlap_previous"`
	OverlapNext     int       `json:"overlap_next" db:"overlap_next"`
	Embedding       []float32 `json:"-" db:"embedding"`
}

// Posting records how often a term occurs in a chunk.
type Posting struct {
	Term      string `json:"term"`
	ChunkID   string `json:"chunk_id"`
	Frequency int    `json:"frequency"`
}

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks that the input carries content.
func (in *DocumentInput) Validate() error {
	if in == nil {
		return Validationf("document input is nil")
	}
	if isBlank(in.Content) {
		return Validationf("document content cannot be empty")
	}
	return nil
}

// IngestResult reports the outcome of ingesting one document.
type IngestResult struct {
	DocumentID       string `json:"document_id"`
	ChunksCreated    int    `json:"chunks_created"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Health is a point-in-time view of the corpus size.
type Health struct {
	Status     string `json:"status"`
	Documents  int64  `json:"documents"`
	Chunks     int64  `json:"chunks"`
	VectorSize int    `json:"vector_index_size"`
}
