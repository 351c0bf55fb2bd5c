package confidence

import (
	"testing"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/stretchr/testify/assert"
)

func results(scores ...float64) []*models.RetrievedResult {
	out := make([]*models.RetrievedResult, len(scores))
	for i, s := range scores {
		out[i] = &models.RetrievedResult{FusedScore: s, Rank: i + 1}
	}
	return out
}

func TestScorer_NoResults(t *testing.T) {
	c := NewScorer(DefaultThreshold).Score(nil, nil)
	assert.Zero(t, c.Value)
	assert.True(t, c.Low)
}

func TestRetrieval(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		// 0.5*1 + 0.3*1 + 0.1*1 + 0.1*1
		{"five perfect", []float64{1, 1, 1, 1, 1}, 1.0},
		// 0.5*0.8 + 0.3*0.8 + 0.1*0.2 + 0.1*1
		{"single", []float64{0.8}, 0.76},
		// mean 0.5, variance 0.09: 0.5*0.8 + 0.3*0.5 + 0.1*0.4 + 0.1*0.91
		{"spread", []float64{0.8, 0.2}, 0.681},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Retrieval(results(tt.scores...)), 1e-9)
		})
	}
}

func TestScorer_BlendsModelConfidence(t *testing.T) {
	model := 0.9
	c := NewScorer(0.5).Score(results(0.8), &model)
	assert.InDelta(t, 0.76, c.Retrieval, 1e-9)
	assert.InDelta(t, 0.6*0.9+0.4*0.76, c.Value, 1e-9)
	assert.False(t, c.Low)
	assert.Equal(t, &model, c.Model)
}

func TestScorer_Threshold(t *testing.T) {
	c := NewScorer(0.8).Score(results(0.8), nil)
	assert.True(t, c.Low)

	c = NewScorer(0.7).Score(results(0.8), nil)
	assert.False(t, c.Low)

	assert.Equal(t, DefaultThreshold, NewScorer(2).Threshold)
}

func TestScorer_Bounded(t *testing.T) {
	model := 3.0
	c := NewScorer(0.5).Score(results(1, 1, 1, 1, 1, 1), &model)
	assert.LessOrEqual(t, c.Value, 1.0)
	assert.GreaterOrEqual(t, c.Value, 0.0)
}
