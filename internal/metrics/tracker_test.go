package metrics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 6},
		{95, 10},
		{99, 10},
		{100, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("p%.0f", tt.p), func(t *testing.T) {
			assert.Equal(t, tt.want, Percentile(values, tt.p))
		})
	}
	assert.Zero(t, Percentile(nil, 50))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 99))
}

func TestTracker_Summarize(t *testing.T) {
	tr := NewTracker(100)
	for i := 1; i <= 20; i++ {
		tr.Record(models.RetrievalMetrics{QueryTimeMs: float64(i), NumRetrieved: 1, AvgScore: float64(i) / 20})
	}
	tr.Record(models.RetrievalMetrics{QueryTimeMs: 100, NumRetrieved: 0})

	s := tr.Summarize()
	assert.Equal(t, 21, s.TotalQueries)
	assert.Equal(t, 11.0, s.QueryTimeMs.Median)
	assert.Equal(t, 20.0, s.QueryTimeMs.P95)
	assert.Equal(t, 100.0, s.QueryTimeMs.P99)
	assert.InDelta(t, 0.55, s.Score.Median, 1e-9)
	assert.InDelta(t, 1.0, s.Score.P99, 1e-9)
	assert.InDelta(t, 0.525, s.Score.Avg, 1e-9)
}

func TestTracker_PercentilesMonotone(t *testing.T) {
	tr := NewTracker(50)
	for i := 0; i < 137; i++ {
		tr.Record(models.RetrievalMetrics{QueryTimeMs: float64((i * 37) % 101), NumRetrieved: 2, AvgScore: float64(i%10) / 10})
	}
	s := tr.Summarize()
	assert.LessOrEqual(t, s.QueryTimeMs.Median, s.QueryTimeMs.P95)
	assert.LessOrEqual(t, s.QueryTimeMs.P95, s.QueryTimeMs.P99)
	assert.LessOrEqual(t, s.Score.Median, s.Score.P95)
	assert.LessOrEqual(t, s.Score.P95, s.Score.P99)
}

func TestTracker_EvictsOldest(t *testing.T) {
	tr := NewTracker(3)
	for i := 1; i <= 5; i++ {
		tr.Record(models.RetrievalMetrics{QueryTimeMs: float64(i)})
	}
	s := tr.Summarize()
	assert.Equal(t, 3, s.TotalQueries)
	assert.InDelta(t, 4.0, s.QueryTimeMs.Avg, 1e-9)
	assert.Equal(t, int64(5), tr.Report().QueriesServed)
}

func TestTracker_IngestAndErrors(t *testing.T) {
	tr := NewTracker(10)
	tr.RecordIngest("a", 4, 40*time.Millisecond)
	tr.RecordIngest("b", 2, 10*time.Millisecond)
	for i := 0; i < 7; i++ {
		tr.RecordError(models.ErrorKind(models.ErrValidation), fmt.Sprintf("bad request %d", i))
	}
	tr.RecordError("", "boom")
	tr.Record(models.RetrievalMetrics{QueryTimeMs: 1})

	r := tr.Report()
	assert.Equal(t, int64(2), r.Ingest.Documents)
	assert.Equal(t, int64(6), r.Ingest.Chunks)
	assert.InDelta(t, 3.0, r.Ingest.AvgChunksPerDoc, 1e-9)
	assert.InDelta(t, 25.0, r.Ingest.AvgProcessingMs, 1e-9)
	assert.InDelta(t, 7.5, r.Ingest.AvgTimePerChunkMs, 1e-9)

	assert.Equal(t, int64(8), r.Errors.Total)
	assert.Equal(t, int64(7), r.Errors.ByKind["validation"])
	assert.Equal(t, int64(1), r.Errors.ByKind["internal"])
	require.Len(t, r.Errors.Recent, 5)
	assert.Equal(t, "boom", r.Errors.Recent[4].Message)
	assert.InDelta(t, 8.0/11, r.ErrorRate, 1e-9)

	tr.Reset()
	r = tr.Report()
	assert.Zero(t, r.Queries.TotalQueries)
	assert.Zero(t, r.Ingest.Documents)
	assert.Zero(t, r.Errors.Total)
}

func TestTracker_ErrorRateBounded(t *testing.T) {
	tr := NewTracker(10)
	assert.Zero(t, tr.Report().ErrorRate)

	tr.RecordError("validation", "ingest rejected")
	tr.RecordError("validation", "ingest rejected")
	assert.Equal(t, 1.0, tr.Report().ErrorRate)

	tr.RecordIngest("a", 1, time.Millisecond)
	tr.Record(models.RetrievalMetrics{QueryTimeMs: 1})
	assert.InDelta(t, 0.5, tr.Report().ErrorRate, 1e-9)
}

func TestTracker_ConcurrentRecordAndSummarize(t *testing.T) {
	tr := NewTracker(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Record(models.RetrievalMetrics{QueryTimeMs: float64(i*100 + j), NumRetrieved: 1, AvgScore: 0.5})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s := tr.Summarize()
				assert.LessOrEqual(t, s.QueryTimeMs.Median, s.QueryTimeMs.P99)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, tr.Summarize().TotalQueries)
}
