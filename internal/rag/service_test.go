package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/ragcore/internal/corpus"
	"github.com/hyperjump/ragcore/internal/embedding"
	"github.com/hyperjump/ragcore/internal/indexer"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/ratelimit"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 64

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	vi, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)
	c, err := corpus.Open(context.Background(), storage.NewMemoryStorage(), vi, keyword.NewInvertedIndex())
	require.NoError(t, err)
	svc, err := New(c, embedding.NewMockEmbedder(testDims), indexer.NewChunker(indexer.DefaultChunkerConfig()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func floatPtr(v float64) *float64 { return &v }

func TestService_IngestQueryDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	res, err := svc.IngestDocument(ctx, &models.DocumentInput{
		ID:      "solar",
		Title:   "Solar",
		Content: "Solar panels convert sunlight into electricity. They work best on clear days.",
	})
	require.NoError(t, err)
	assert.Equal(t, "solar", res.DocumentID)
	assert.Equal(t, 1, res.ChunksCreated)

	_, err = svc.IngestDocument(ctx, &models.DocumentInput{
		ID:      "bread",
		Content: "Bread dough rises when yeast ferments the sugars in flour.",
	})
	require.NoError(t, err)

	resp, err := svc.Query(ctx, "tester", models.QueryRequest{Query: "solar sunlight", MinSimilarity: floatPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, models.ModeHybrid, resp.Mode)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "solar", resp.Results[0].DocumentID)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Empty(t, resp.Message)
	assert.Equal(t, len(resp.Results), resp.Metrics.NumRetrieved)

	health, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), health.Documents)

	require.NoError(t, svc.DeleteDocument(ctx, "solar"))
	_, _, err = svc.Document(ctx, "solar")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	resp, err = svc.Query(ctx, "tester", models.QueryRequest{Query: "solar", Mode: models.ModeKeyword})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	err = svc.DeleteDocument(ctx, "solar")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestService_NoResults(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Query(context.Background(), "tester", models.QueryRequest{Query: "anything"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, models.NoResultsMessage, resp.Message)
	assert.Zero(t, resp.Confidence)
	assert.True(t, resp.LowConfidence)
}

func TestService_QueryValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []models.QueryRequest{
		{Query: "   "},
		{Query: "ok", Alpha: floatPtr(1.5)},
		{Query: "ok", MinSimilarity: floatPtr(-0.1)},
		{Query: "ok", Mode: "semantic"},
	}
	for i, req := range tests {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			_, err := svc.Query(ctx, "tester", req)
			assert.True(t, errors.Is(err, models.ErrValidation), "got %v", err)
		})
	}
	assert.Equal(t, int64(len(tests)), svc.MetricsSummary().Errors.ByKind["validation"])
}

func TestService_RateLimit(t *testing.T) {
	limiter, err := ratelimit.New(2, 0)
	require.NoError(t, err)
	svc := newTestService(t, WithRateLimiter(limiter))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Query(ctx, "alice", models.QueryRequest{Query: "hello"})
		require.NoError(t, err)
	}
	_, err = svc.Query(ctx, "alice", models.QueryRequest{Query: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCapacityExceeded))
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "alice", rle.Caller)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))

	_, err = svc.Query(ctx, "bob", models.QueryRequest{Query: "hello"})
	assert.NoError(t, err)
}

func TestService_SubmitAndWait(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job := svc.Submit(ctx, &models.DocumentInput{Content: "Async ingestion runs on the worker pool."})
	assert.NotEmpty(t, job.ID())
	assert.NotEmpty(t, job.DocumentID())

	res, err := job.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.DocumentID(), res.DocumentID)

	got, ok := svc.Job(job.ID())
	require.True(t, ok)
	st := got.Status()
	assert.Equal(t, JobSucceeded, st.Status)
	assert.NotNil(t, st.FinishedAt)

	bad := svc.Submit(ctx, &models.DocumentInput{Content: " "})
	_, err = bad.Wait(ctx)
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, JobFailed, bad.Status().Status)

	_, ok = svc.Job("missing")
	assert.False(t, ok)
}

func TestService_SubmitAfterClose(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Close())

	job := svc.Submit(context.Background(), &models.DocumentInput{Content: "too late"})
	_, err := job.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrServiceClosed))
	assert.Equal(t, JobFailed, job.Status().Status)
}

func TestService_IngestBatchIsolatesFailures(t *testing.T) {
	svc := newTestService(t, WithWorkers(2))
	ctx := context.Background()

	inputs := []*models.DocumentInput{
		{ID: "a", Content: "First document about rivers."},
		{ID: "b", Content: ""},
		{ID: "c", Content: "Third document about mountains."},
		{ID: "a", Content: "Duplicate of the first document."},
	}
	outcomes := svc.IngestBatch(ctx, inputs)
	require.Len(t, outcomes, 4)

	// the two "a" inputs race; exactly one wins
	assert.True(t, (outcomes[0].Err == nil) != (outcomes[3].Err == nil))
	assert.True(t, errors.Is(outcomes[1].Err, models.ErrValidation))
	assert.NotEmpty(t, outcomes[1].Error)
	assert.NoError(t, outcomes[2].Err)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
	}

	health, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), health.Documents)
}

func TestService_ReingestAfterDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := &models.DocumentInput{ID: "doc", Content: "Version one of the text."}

	_, err := svc.IngestDocument(ctx, in)
	require.NoError(t, err)
	_, err = svc.IngestDocument(ctx, in)
	assert.True(t, errors.Is(err, models.ErrValidation))

	require.NoError(t, svc.DeleteDocument(ctx, "doc"))
	_, err = svc.IngestDocument(ctx, &models.DocumentInput{ID: "doc", Content: "Version two of the text."})
	require.NoError(t, err)

	doc, chunks, err := svc.Document(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "Version two of the text.", doc.Content)
	require.Len(t, chunks, 1)
}

func TestService_SetMinSimilarity(t *testing.T) {
	svc := newTestService(t)

	assert.True(t, errors.Is(svc.SetMinSimilarity(1.2), models.ErrValidation))
	require.NoError(t, svc.SetMinSimilarity(0.9))
	assert.Equal(t, 0.9, svc.queryDefaults().MinSimilarity)
}

func TestService_ExtractiveAnswer(t *testing.T) {
	svc := newTestService(t, WithAnswerGenerator(ExtractiveGenerator{}))
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, &models.DocumentInput{
		ID:      "solar",
		Content: "Solar panels convert sunlight into electricity. They work best on clear days.",
	})
	require.NoError(t, err)

	resp, err := svc.Query(ctx, "tester", models.QueryRequest{Query: "solar", Mode: models.ModeKeyword})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 0.85, resp.Results[0].FusedScore, 1e-9)
	assert.Equal(t, "Solar panels convert sunlight into electricity.", resp.Answer)
	// 0.6*0.85 + 0.4*(0.5*0.85 + 0.3*0.85 + 0.1*0.2 + 0.1*1)
	assert.InDelta(t, 0.83, resp.Confidence, 1e-9)
	assert.False(t, resp.LowConfidence)
}

func TestExtractiveGenerator_MaxSentences(t *testing.T) {
	chunks := []*models.RetrievedResult{{
		ChunkID:    "doc_0",
		Text:       "First point. Second point. Third point.",
		FusedScore: 0.6,
	}}
	ctx := context.Background()

	answer, conf, err := ExtractiveGenerator{}.Generate(ctx, "q", chunks)
	require.NoError(t, err)
	assert.Equal(t, "First point.", answer)
	assert.Equal(t, 0.6, conf)

	answer, _, err = ExtractiveGenerator{MaxSentences: 2}.Generate(ctx, "q", chunks)
	require.NoError(t, err)
	assert.Equal(t, "First point. Second point.", answer)

	answer, conf, err = ExtractiveGenerator{}.Generate(ctx, "q", nil)
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Zero(t, conf)
}

func TestService_MetricsRecorded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, &models.DocumentInput{Content: "Metrics are recorded per query."})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.Query(ctx, "tester", models.QueryRequest{Query: "metrics", Mode: models.ModeKeyword})
		require.NoError(t, err)
	}

	r := svc.MetricsSummary()
	assert.Equal(t, 3, r.Queries.TotalQueries)
	assert.Equal(t, int64(1), r.Ingest.Documents)

	svc.ResetMetrics()
	assert.Zero(t, svc.MetricsSummary().Queries.TotalQueries)
}

func TestNew_DimensionMismatch(t *testing.T) {
	vi, err := vector.NewMemoryIndex(8)
	require.NoError(t, err)
	c, err := corpus.Open(context.Background(), storage.NewMemoryStorage(), vi, keyword.NewInvertedIndex())
	require.NoError(t, err)
	defer c.Close()

	_, err = New(c, embedding.NewMockEmbedder(16), indexer.NewChunker(indexer.DefaultChunkerConfig()))
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
}
