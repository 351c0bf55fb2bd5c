// Package indexer provides document chunking and the ingest pipeline (preprocess, chunk, embed).
package indexer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/ragcore/internal/models"
)

// ChunkerConfig holds chunk sizing parameters. Sizes are in characters.
type ChunkerConfig struct {
	TargetSize  int
	MinSize     int
	MaxSize     int
	OverlapSize int
	// FixedDensity, when set, replaces the measured density. This turns the adaptive
	// chunker into a fixed-size one (density 0.5 gives adjusted target == TargetSize).
	FixedDensity *float64
}

// DefaultChunkerConfig returns the default sizing.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{TargetSize: 512, MinSize: 100, MaxSize: 1024, OverlapSize: 50}
}

// Chunker splits text into overlapping, density-adaptive chunks on sentence boundaries.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker creates a chunker. Non-positive sizes fall back to defaults and MinSize/MaxSize are
// reordered so that MinSize <= TargetSize <= MaxSize holds.
func NewChunker(cfg ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = def.TargetSize
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.MinSize > cfg.MaxSize {
		cfg.MinSize, cfg.MaxSize = cfg.MaxSize, cfg.MinSize
	}
	if cfg.OverlapSize < 0 {
		cfg.OverlapSize = 0
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Chunker) Config() ChunkerConfig {
	return c.cfg
}

// Chunk splits text into chunks with IDs docID_0, docID_1, ... Offsets refer to text.
// Empty text yields nil. Text shorter than MinSize yields a single chunk. A sentence longer
// than MaxSize becomes its own chunk.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	first, last := sentences[0].Start, sentences[len(sentences)-1].End
	if charLen(text[first:last]) < c.cfg.MinSize {
		return c.finish(docID, text, [][2]int{{0, len(sentences) - 1}}, sentences)
	}

	var groups [][2]int // inclusive sentence index ranges
	lo, fresh := 0, 0   // lo: first sentence of the current chunk; fresh: sentences not carried over
	hi := -1
	for i := 0; i < len(sentences); {
		if hi < lo {
			lo, hi, fresh = i, i, 1
			i++
			continue
		}
		target := c.adjustedTarget(text, sentences, lo, i)
		size := spanLen(text, sentences, lo, i)
		if size <= target {
			hi = i
			fresh++
			i++
			continue
		}
		if fresh == 0 {
			// Carried-over sentences never close a chunk on their own: shed them until the
			// next sentence fits, or start clean.
			lo++
			continue
		}
		groups = append(groups, [2]int{lo, hi})
		lo = c.overlapStart(text, sentences, lo, hi)
		fresh = 0
	}
	if hi >= lo && (fresh > 0 || len(groups) == 0) {
		groups = append(groups, [2]int{lo, hi})
	}
	return c.finish(docID, text, groups, sentences)
}

// adjustedTarget returns the size limit for the window sentences[lo..hi].
func (c *Chunker) adjustedTarget(text string, sentences []Sentence, lo, hi int) int {
	var density float64
	if c.cfg.FixedDensity != nil {
		density = clamp01(*c.cfg.FixedDensity)
	} else {
		density = SemanticDensity(text[sentences[lo].Start:sentences[hi].End])
	}
	target := int(math.Round(float64(c.cfg.TargetSize) * (1.5 - density)))
	if target < c.cfg.MinSize {
		target = c.cfg.MinSize
	}
	if target > c.cfg.MaxSize {
		target = c.cfg.MaxSize
	}
	return target
}

// overlapStart picks the first sentence of the next chunk. With OverlapSize > 0 the last sentence
// of sentences[lo..hi] is always carried, extended backwards while that brings the carried length
// closer to OverlapSize. The whole chunk is never repeated.
func (c *Chunker) overlapStart(text string, sentences []Sentence, lo, hi int) int {
	if c.cfg.OverlapSize <= 0 || hi <= lo {
		return hi + 1
	}
	start := hi
	for j := hi - 1; j > lo; j-- {
		withJ := spanLen(text, sentences, j, hi)
		current := spanLen(text, sentences, start, hi)
		if absInt(withJ-c.cfg.OverlapSize) >= absInt(current-c.cfg.OverlapSize) {
			break
		}
		start = j
	}
	return start
}

func (c *Chunker) finish(docID, text string, groups [][2]int, sentences []Sentence) []*models.Chunk {
	chunks := make([]*models.Chunk, 0, len(groups))
	for ordinal, g := range groups {
		start, end := sentences[g[0]].Start, sentences[g[1]].End
		body := text[start:end]
		density := SemanticDensity(body)
		if c.cfg.FixedDensity != nil {
			density = clamp01(*c.cfg.FixedDensity)
		}
		ch := &models.Chunk{
			ID:              ChunkID(docID, ordinal),
			DocumentID:      docID,
			Text:            body,
			StartOffset:     start,
			EndOffset:       end,
			Ordinal:         ordinal,
			SemanticDensity: density,
		}
		if ordinal > 0 {
			prev := chunks[ordinal-1]
			if start < prev.EndOffset {
				shared := charLen(text[start:prev.EndOffset])
				ch.OverlapPrevious = shared
				prev.OverlapNext = shared
			}
		}
		chunks = append(chunks, ch)
	}
	return chunks
}

// ChunkID returns the deterministic chunk ID for a document ordinal.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", docID, ordinal)
}

const punctuation = ".,;:!?"

// SemanticDensity estimates information concentration of text:
// 0.7*uniqueWordRatio + 0.3*(10*punctuationDensity), clamped to [0,1].
func SemanticDensity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	uniqueRatio := float64(len(unique)) / float64(len(words))
	punct := 0
	for _, r := range text {
		if strings.ContainsRune(punctuation, r) {
			punct++
		}
	}
	punctDensity := float64(punct) / float64(charLen(text))
	return clamp01(0.7*uniqueRatio + 0.3*(10*punctDensity))
}

func spanLen(text string, sentences []Sentence, lo, hi int) int {
	return charLen(text[sentences[lo].Start:sentences[hi].End])
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
