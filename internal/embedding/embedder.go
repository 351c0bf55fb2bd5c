// Package embedding defines the embedding capability and its implementations: a deterministic
// hashing embedder, an LRU cache wrapper, and an ONNX Runtime model (cgo builds only).
package embedding

import (
	"context"

	"github.com/hyperjump/ragcore/internal/models"
)

// Provider names accepted by New.
const (
	ProviderMock = "mock"
	ProviderONNX = "onnx"
)

// Embedder produces vector embeddings for text. Identical input must give identical output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Config selects and sizes an embedder.
type Config struct {
	Provider   string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// New creates the configured embedder, wrapped in an LRU cache when CacheSize > 0.
func New(cfg Config) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case ProviderMock, "":
		base = NewMockEmbedder(cfg.Dimensions)
	case ProviderONNX:
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, models.Validationf("unknown embedding provider: %s (supported: mock, onnx)", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return base, nil
	}
	cached, err := NewCachedEmbedder(base, cfg.CacheSize)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return cached, nil
}
