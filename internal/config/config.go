// Package config provides configuration loading and structs for the ragcore server.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// EmbedderConfig converts to the embedding package's config.
func (e EmbeddingConfig) EmbedderConfig() embedding.Config {
	return embedding.Config{
		Provider:   e.Provider,
		ModelPath:  e.ModelPath,
		Dimensions: e.Dimensions,
		MaxTokens:  e.MaxTokens,
		CacheSize:  e.CacheSize,
	}
}

// ChunkingConfig holds chunk sizes in characters. FixedDensity, when set, disables
// content-adaptive sizing.
type ChunkingConfig struct {
	TargetChunkSize int      `yaml:"target_chunk_size"`
	MinChunkSize    int      `yaml:"min_chunk_size"`
	MaxChunkSize    int      `yaml:"max_chunk_size"`
	OverlapSize     int      `yaml:"overlap_size"`
	FixedDensity    *float64 `yaml:"fixed_density"`
}

// ChunkerConfig converts to the indexer's chunker config.
func (c ChunkingConfig) ChunkerConfig() indexer.ChunkerConfig {
	return indexer.ChunkerConfig{
		TargetSize:   c.TargetChunkSize,
		MinSize:      c.MinChunkSize,
		MaxSize:      c.MaxChunkSize,
		OverlapSize:  c.OverlapSize,
		FixedDensity: c.FixedDensity,
	}
}

// RetrievalConfig holds query defaults and index backends. Pointer fields distinguish an
// explicit 0 from unset.
type RetrievalConfig struct {
	Mode                string   `yaml:"mode"`
	HybridAlpha         *float64 `yaml:"hybrid_alpha"`
	MinSimilarity       *float64 `yaml:"min_similarity"`
	DefaultTopK         int      `yaml:"default_top_k"`
	MaxTopK             int      `yaml:"max_top_k"`
	OverfetchFactor     int      `yaml:"overfetch_factor"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
	VectorIndex         string   `yaml:"vector_index"`
	KeywordBackend      string   `yaml:"keyword_backend"`
	MinTermLength       int      `yaml:"min_term_length"`
	ExtractiveAnswer    bool     `yaml:"extractive_answer"`
}

// QueryDefaults returns the per-query defaults. Call after ApplyDefaults.
func (r RetrievalConfig) QueryDefaults() models.QueryDefaults {
	return models.QueryDefaults{
		TopK:          r.DefaultTopK,
		MaxTopK:       r.MaxTopK,
		Alpha:         deref(r.HybridAlpha),
		MinSimilarity: deref(r.MinSimilarity),
		Mode:          r.Mode,
	}
}

// Threshold returns the confidence threshold.
func (r RetrievalConfig) Threshold() float64 {
	return deref(r.ConfidenceThreshold)
}

// RateLimitConfig holds per-caller token bucket settings.
type RateLimitConfig struct {
	Enabled         *bool   `yaml:"enabled"`
	Capacity        int     `yaml:"capacity"`
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

// EnabledOrDefault returns whether rate limiting is on; defaults to true when unset.
func (r RateLimitConfig) EnabledOrDefault() bool {
	if r.Enabled != nil {
		return *r.Enabled
	}
	return true
}

// MetricsConfig holds metrics history settings.
type MetricsConfig struct {
	HistorySize int `yaml:"history_size"`
	SlowQueryMs int `yaml:"slow_query_ms"`
}

// SlowQuery returns the slow query threshold.
func (m MetricsConfig) SlowQuery() time.Duration {
	return time.Duration(m.SlowQueryMs) * time.Millisecond
}

// IngestConfig holds the async ingest worker pool size.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Storage.DatabasePath != "" && cfg.Storage.DatabasePath != ":memory:" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
