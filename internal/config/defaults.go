package config

import (
	"time"

	"github.com/hyperjump/ragcore/internal/confidence"
	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/ratelimit"
	"github.com/hyperjump/ragcore/internal/search"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
)

const (
	defaultAlpha         = 0.7
	defaultMinSimilarity = 0.3
	defaultMaxFileSize   = 10 << 20
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.BackendMemory
	}
	if cfg.Storage.Backend == storage.BackendSQLite && cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/ragcore.db"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = embedding.ProviderMock
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	chunk := indexer.DefaultChunkerConfig()
	if cfg.Chunking.TargetChunkSize == 0 {
		cfg.Chunking.TargetChunkSize = chunk.TargetSize
	}
	if cfg.Chunking.MinChunkSize == 0 {
		cfg.Chunking.MinChunkSize = chunk.MinSize
	}
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = chunk.MaxSize
	}
	if cfg.Chunking.OverlapSize == 0 {
		cfg.Chunking.OverlapSize = chunk.OverlapSize
	}

	r := &cfg.Retrieval
	if r.Mode == "" {
		r.Mode = models.ModeHybrid
	}
	if r.HybridAlpha == nil {
		r.HybridAlpha = floatPtr(defaultAlpha)
	}
	if r.MinSimilarity == nil {
		r.MinSimilarity = floatPtr(defaultMinSimilarity)
	}
	if r.DefaultTopK == 0 {
		r.DefaultTopK = 5
	}
	if r.MaxTopK == 0 {
		r.MaxTopK = 50
	}
	if r.OverfetchFactor == 0 {
		r.OverfetchFactor = search.DefaultOverfetchFactor
	}
	if r.ConfidenceThreshold == nil {
		r.ConfidenceThreshold = floatPtr(confidence.DefaultThreshold)
	}
	if r.VectorIndex == "" {
		r.VectorIndex = string(vector.IndexTypeMemory)
	}
	if r.KeywordBackend == "" {
		r.KeywordBackend = keyword.BackendInverted
	}
	if r.MinTermLength == 0 {
		r.MinTermLength = 1
	}

	if cfg.RateLimit.Enabled == nil {
		t := true
		cfg.RateLimit.Enabled = &t
	}
	if cfg.RateLimit.Capacity == 0 {
		cfg.RateLimit.Capacity = ratelimit.DefaultCapacity
	}
	if cfg.RateLimit.RefillPerSecond == 0 {
		cfg.RateLimit.RefillPerSecond = float64(cfg.RateLimit.Capacity) / ratelimit.DefaultWindow.Seconds()
	}

	if cfg.Metrics.HistorySize == 0 {
		cfg.Metrics.HistorySize = metrics.DefaultHistorySize
	}
	if cfg.Metrics.SlowQueryMs == 0 {
		cfg.Metrics.SlowQueryMs = int(metrics.DefaultSlowQuery.Milliseconds())
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}

	if cfg.Watch.MaxFileSize == 0 {
		cfg.Watch.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

func floatPtr(v float64) *float64 { return &v }
