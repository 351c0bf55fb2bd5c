// Package confidence turns a ranked result set, and optionally a generator's self-reported
// confidence, into a single score in [0,1].
package confidence

import "github.com/hyperjump/ragcore/internal/models"

// DefaultThreshold marks results below it as low confidence.
const DefaultThreshold = 0.5

const (
	topWeight      = 0.5
	avgWeight      = 0.3
	coverageWeight = 0.1
	spreadWeight   = 0.1
	// coverageTarget is the result count at which coverage saturates.
	coverageTarget = 5

	modelWeight     = 0.6
	retrievalWeight = 0.4
)

// Confidence is the outcome of scoring one query.
type Confidence struct {
	Value     float64  `json:"value"`
	Retrieval float64  `json:"retrieval"`
	Model     *float64 `json:"model,omitempty"`
	Low       bool     `json:"low"`
}

// Scorer computes confidence against a threshold.
type Scorer struct {
	Threshold float64
}

// NewScorer returns a Scorer. A threshold outside [0,1] falls back to DefaultThreshold.
func NewScorer(threshold float64) Scorer {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Scorer{Threshold: threshold}
}

// Score rates results. When model is non-nil it is blended with the retrieval score.
func (s Scorer) Score(results []*models.RetrievedResult, model *float64) Confidence {
	retrieval := Retrieval(results)
	value := retrieval
	if model != nil {
		value = modelWeight*clamp01(*model) + retrievalWeight*retrieval
	}
	value = clamp01(value)
	return Confidence{
		Value:     value,
		Retrieval: retrieval,
		Model:     model,
		Low:       value < s.Threshold,
	}
}

// Retrieval scores a result set from its fused scores: the top score, the mean, how many results
// there are, and how tightly they agree. No results score 0.
func Retrieval(results []*models.RetrievedResult) float64 {
	n := len(results)
	if n == 0 {
		return 0
	}
	var top, sum float64
	for _, r := range results {
		sum += r.FusedScore
		if r.FusedScore > top {
			top = r.FusedScore
		}
	}
	mean := sum / float64(n)
	var variance float64
	for _, r := range results {
		d := r.FusedScore - mean
		variance += d * d
	}
	variance /= float64(n)

	coverage := float64(n) / coverageTarget
	if coverage > 1 {
		coverage = 1
	}
	score := topWeight*top + avgWeight*mean + coverageWeight*coverage + spreadWeight*(1-variance)
	return clamp01(score)
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
