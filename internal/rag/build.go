package rag

import (
	"context"
	"fmt"

	"github.com/hyperjump/ragcore/internal/confidence"
	"github.com/hyperjump/ragcore/internal/config"
	"github.com/hyperjump/ragcore/internal/corpus"
	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/metrics"
	"github.com/hyperjump/ragcore/internal/ratelimit"
	"github.com/hyperjump/ragcore/internal/search"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
	"go.uber.org/zap"
)

// Open builds a Service from configuration: store, indexes, corpus warm start, embedder, and
// the query-side components. cfg must have defaults applied.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.New(cfg.Storage.Backend, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	vecIndex, err := vector.NewVectorIndex(cfg.Retrieval.VectorIndex, cfg.Embedding.Dimensions)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	kwIndex, err := keyword.New(cfg.Retrieval.KeywordBackend, cfg.Retrieval.MinTermLength)
	if err != nil {
		store.Close()
		vecIndex.Close()
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	c, err := corpus.Open(ctx, store, vecIndex, kwIndex, corpus.WithLogger(logger))
	if err != nil {
		store.Close()
		vecIndex.Close()
		kwIndex.Close()
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedding.EmbedderConfig())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := []Option{
		WithLogger(logger),
		WithQueryDefaults(cfg.Retrieval.QueryDefaults()),
		WithRetriever(search.NewRetriever(
			search.WithOverfetchFactor(cfg.Retrieval.OverfetchFactor),
			search.WithLogger(logger),
		)),
		WithScorer(confidence.NewScorer(cfg.Retrieval.Threshold())),
		WithTracker(metrics.NewTracker(cfg.Metrics.HistorySize,
			metrics.WithSlowQuery(cfg.Metrics.SlowQuery()),
			metrics.WithLogger(logger),
		)),
		WithWorkers(cfg.Ingest.Workers),
	}
	if cfg.RateLimit.EnabledOrDefault() {
		limiter, err := ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond, ratelimit.WithLogger(logger))
		if err != nil {
			c.Close()
			emb.Close()
			return nil, err
		}
		opts = append(opts, WithRateLimiter(limiter))
	}
	if cfg.Retrieval.ExtractiveAnswer {
		opts = append(opts, WithAnswerGenerator(ExtractiveGenerator{}))
	}

	svc, err := New(c, emb, indexer.NewChunker(cfg.Chunking.ChunkerConfig()), opts...)
	if err != nil {
		c.Close()
		emb.Close()
		return nil, err
	}
	return svc, nil
}
