package search

import (
	"sort"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/vector"
)

// FusedResult holds a chunk ID with its per-signal and fused scores.
type FusedResult struct {
	ChunkID      string
	VectorScore  float64
	KeywordScore float64
	Score        float64
}

// VectorScores converts vector hits to chunk ID -> score. Cosine scores below zero count as no
// similarity.
func VectorScores(results []*vector.VectorResult) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = clamp01(r.Score)
	}
	return scores
}

// Fuse merges vector and keyword scores per chunk as alpha*vector + (1-alpha)*keyword. A chunk
// found by only one signal scores 0 for the other. The result is unordered.
func Fuse(vectorScores, keywordScores map[string]float64, alpha float64) []*FusedResult {
	byChunk := make(map[string]*FusedResult, len(vectorScores)+len(keywordScores))
	for id, score := range vectorScores {
		byChunk[id] = &FusedResult{ChunkID: id, VectorScore: score}
	}
	for id, score := range keywordScores {
		if r, ok := byChunk[id]; ok {
			r.KeywordScore = clamp01(score)
			continue
		}
		byChunk[id] = &FusedResult{ChunkID: id, KeywordScore: clamp01(score)}
	}
	results := make([]*FusedResult, 0, len(byChunk))
	for _, r := range byChunk {
		r.Score = alpha*r.VectorScore + (1-alpha)*r.KeywordScore
		results = append(results, r)
	}
	return results
}

// FilterMinScore drops results whose fused score is below minScore.
func FilterMinScore(results []*FusedResult, minScore float64) []*FusedResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}

// Rank sorts results by fused score descending, then by lower ordinal, then by chunk ID, and
// assigns ranks starting at 1.
func Rank(results []*models.RetrievedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.ChunkID < b.ChunkID
	})
	for i, r := range results {
		r.Rank = i + 1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
