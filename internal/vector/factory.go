package vector

import "github.com/hyperjump/ragcore/internal/models"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses exact brute-force search. Good for small to medium corpora.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFlat is an alias for IndexTypeMemory.
	IndexTypeFlat IndexType = "flat"
)

// NewVectorIndex creates a vector index of the specified type. An approximate index plugs in
// here by implementing VectorIndex.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, IndexTypeFlat, "":
		return NewMemoryIndex(dimensions)
	default:
		return nil, models.Validationf("unknown vector index type: %s (supported: memory, flat)", indexType)
	}
}
