package models

import "time"

// NoResultsMessage is returned with an empty result set.
const NoResultsMessage = "No relevant information found"

// RetrievedResult is a single ranked chunk for a query.
type RetrievedResult struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Ordinal      int     `json:"ordinal"`
	Text         string  `json:"text"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	FusedScore   float64 `json:"fused_score"`
	Rank         int     `json:"rank"`
}

// RetrievalMetrics describes one query's latency and score distribution.
type RetrievalMetrics struct {
	QueryTimeMs   float64   `json:"query_time_ms"`
	NumRetrieved  int       `json:"num_retrieved"`
	AvgScore      float64   `json:"avg_score"`
	MaxScore      float64   `json:"max_score"`
	MinScore      float64   `json:"min_score"`
	ScoreVariance float64   `json:"score_variance"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRetrievalMetrics computes score statistics over results. Variance is the population variance.
func NewRetrievalMetrics(results []*RetrievedResult, elapsed time.Duration) RetrievalMetrics {
	m := RetrievalMetrics{
		QueryTimeMs:  float64(elapsed.Microseconds()) / 1000,
		NumRetrieved: len(results),
		Timestamp:    time.Now(),
	}
	if len(results) == 0 {
		return m
	}
	m.MaxScore = results[0].FusedScore
	m.MinScore = results[0].FusedScore
	var sum float64
	for _, r := range results {
		sum += r.FusedScore
		if r.FusedScore > m.MaxScore {
			m.MaxScore = r.FusedScore
		}
		if r.FusedScore < m.MinScore {
			m.MinScore = r.FusedScore
		}
	}
	m.AvgScore = sum / float64(len(results))
	var sq float64
	for _, r := range results {
		d := r.FusedScore - m.AvgScore
		sq += d * d
	}
	m.ScoreVariance = sq / float64(len(results))
	return m
}

// QueryResponse is the answer to a QueryRequest.
type QueryResponse struct {
	Query         string             `json:"query"`
	Mode          string             `json:"mode"`
	Results       []*RetrievedResult `json:"results"`
	Metrics       RetrievalMetrics   `json:"metrics"`
	Confidence    float64            `json:"confidence"`
	LowConfidence bool               `json:"low_confidence"`
	Answer        string             `json:"answer,omitempty"`
	Message       string             `json:"message,omitempty"`
}
