package config

import (
	"errors"

	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
)

// Validate checks value ranges and backend names. Every problem is reported; each wraps
// models.ErrValidation.
func Validate(cfg *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, models.Validationf(format, args...))
		}
	}

	check(cfg.Server.Port > 0 && cfg.Server.Port < 65536, "server.port out of range: %d", cfg.Server.Port)
	check(cfg.Server.RequestTimeout > 0, "server.request_timeout must be positive")

	check(cfg.Storage.Backend == storage.BackendMemory || cfg.Storage.Backend == storage.BackendSQLite,
		"storage.backend must be memory or sqlite, got %q", cfg.Storage.Backend)

	check(cfg.Embedding.Provider == embedding.ProviderMock || cfg.Embedding.Provider == embedding.ProviderONNX,
		"embedding.provider must be mock or onnx, got %q", cfg.Embedding.Provider)
	check(cfg.Embedding.Provider != embedding.ProviderONNX || cfg.Embedding.ModelPath != "",
		"embedding.model_path is required for the onnx provider")
	check(cfg.Embedding.Dimensions > 0, "embedding.dimensions must be positive")
	check(cfg.Embedding.CacheSize >= 0, "embedding.cache_size cannot be negative")

	c := cfg.Chunking
	check(c.TargetChunkSize > 0 && c.MinChunkSize > 0 && c.MaxChunkSize > 0,
		"chunking sizes must be positive")
	check(c.MinChunkSize <= c.MaxChunkSize, "chunking.min_chunk_size (%d) exceeds max_chunk_size (%d)",
		c.MinChunkSize, c.MaxChunkSize)
	check(c.OverlapSize >= 0 && c.OverlapSize < c.MaxChunkSize, "chunking.overlap_size must be in [0, max_chunk_size)")
	check(c.FixedDensity == nil || unit(*c.FixedDensity), "chunking.fixed_density must be in [0,1]")

	r := cfg.Retrieval
	check(models.ValidMode(r.Mode), "retrieval.mode must be hybrid, vector or keyword, got %q", r.Mode)
	check(r.HybridAlpha == nil || unit(*r.HybridAlpha), "retrieval.hybrid_alpha must be in [0,1]")
	check(r.MinSimilarity == nil || unit(*r.MinSimilarity), "retrieval.min_similarity must be in [0,1]")
	check(r.ConfidenceThreshold == nil || unit(*r.ConfidenceThreshold), "retrieval.confidence_threshold must be in [0,1]")
	check(r.DefaultTopK >= 1, "retrieval.default_top_k must be at least 1")
	check(r.MaxTopK >= r.DefaultTopK, "retrieval.max_top_k must be at least default_top_k")
	check(r.OverfetchFactor >= 1, "retrieval.overfetch_factor must be at least 1")
	indexType := vector.IndexType(r.VectorIndex)
	check(indexType == vector.IndexTypeMemory || indexType == vector.IndexTypeFlat,
		"retrieval.vector_index must be memory or flat, got %q", r.VectorIndex)
	check(r.KeywordBackend == keyword.BackendInverted || r.KeywordBackend == keyword.BackendBleve,
		"retrieval.keyword_backend must be inverted or bleve, got %q", r.KeywordBackend)
	check(r.MinTermLength >= 1, "retrieval.min_term_length must be at least 1")

	check(cfg.RateLimit.Capacity >= 1, "rate_limit.capacity must be at least 1")
	check(cfg.RateLimit.RefillPerSecond > 0, "rate_limit.refill_per_second must be positive")

	check(cfg.Metrics.HistorySize >= 1, "metrics.history_size must be at least 1")
	check(cfg.Ingest.Workers >= 1, "ingest.workers must be at least 1")

	return errors.Join(errs...)
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
