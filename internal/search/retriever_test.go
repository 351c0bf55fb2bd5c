package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/ragcore/internal/corpus"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	dims    int
	hits    []*vector.VectorResult
	keyword map[string]float64
	chunks  map[string]*models.Chunk
	lastK   int
}

func (f *fakeReader) VectorSearch(ctx context.Context, query []float32, k int) ([]*vector.VectorResult, error) {
	f.lastK = k
	if k < len(f.hits) {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeReader) KeywordSearch(ctx context.Context, query string) (map[string]float64, error) {
	return f.keyword, nil
}

func (f *fakeReader) Chunk(ctx context.Context, id string) (*models.Chunk, error) {
	ch, ok := f.chunks[id]
	if !ok {
		return nil, models.Corruptionf("chunk %s is indexed but not stored", id)
	}
	return ch, nil
}

func (f *fakeReader) Dimensions() int { return f.dims }
func (f *fakeReader) Size() int       { return len(f.chunks) }

func newFakeReader(ids ...string) *fakeReader {
	f := &fakeReader{dims: 2, keyword: map[string]float64{}, chunks: map[string]*models.Chunk{}}
	for i, id := range ids {
		f.chunks[id] = &models.Chunk{ID: id, DocumentID: "doc", Ordinal: i, Text: "text " + id}
	}
	return f
}

func hybridQuery(topK int, alpha, minSim float64) Query {
	return Query{Text: "query", Embedding: []float32{1, 0}, TopK: topK, Alpha: alpha, MinSimilarity: minSim}
}

func TestRetriever_AlphaOneUsesVectorScore(t *testing.T) {
	f := newFakeReader("doc_0")
	f.hits = []*vector.VectorResult{{ID: "doc_0", Score: 0.9}}

	results, err := NewRetriever().Retrieve(context.Background(), f, hybridQuery(5, 1.0, 0))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.9, results[0].FusedScore, 1e-9)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "doc", results[0].DocumentID)
}

func TestRetriever_OverfetchAndTruncate(t *testing.T) {
	ids := make([]string, 20)
	f := newFakeReader()
	for i := range ids {
		ids[i] = fmt.Sprintf("doc_%d", i)
		f.chunks[ids[i]] = &models.Chunk{ID: ids[i], DocumentID: "doc", Ordinal: i}
		f.hits = append(f.hits, &vector.VectorResult{ID: ids[i], Score: 1 - float64(i)*0.01})
	}

	results, err := NewRetriever().Retrieve(context.Background(), f, hybridQuery(4, 1.0, 0))
	require.NoError(t, err)
	assert.Equal(t, 12, f.lastK)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, ids[i], r.ChunkID)
	}

	_, err = NewRetriever(WithOverfetchFactor(5)).Retrieve(context.Background(), f, hybridQuery(2, 1.0, 0))
	require.NoError(t, err)
	assert.Equal(t, 10, f.lastK)
}

func TestRetriever_MinSimilarityFilters(t *testing.T) {
	f := newFakeReader("doc_0", "doc_1")
	f.hits = []*vector.VectorResult{{ID: "doc_0", Score: 0.9}, {ID: "doc_1", Score: 0.2}}

	results, err := NewRetriever().Retrieve(context.Background(), f, hybridQuery(5, 1.0, 0.3))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_0", results[0].ChunkID)
}

func TestRetriever_Modes(t *testing.T) {
	f := newFakeReader("doc_0", "doc_1")
	f.hits = []*vector.VectorResult{{ID: "doc_0", Score: 0.8}}
	f.keyword = map[string]float64{"doc_1": 0.7}

	q := hybridQuery(5, 0.5, 0)
	q.Mode = models.ModeVector
	results, err := NewRetriever().Retrieve(context.Background(), f, q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_0", results[0].ChunkID)
	assert.InDelta(t, 0.8, results[0].FusedScore, 1e-9)

	q = Query{Text: "query", TopK: 5, Alpha: 0.5, Mode: models.ModeKeyword}
	results, err = NewRetriever().Retrieve(context.Background(), f, q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_1", results[0].ChunkID)
	assert.InDelta(t, 0.7, results[0].FusedScore, 1e-9)

	q = hybridQuery(5, 0.5, 0)
	results, err = NewRetriever().Retrieve(context.Background(), f, q)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc_0", results[0].ChunkID)
	assert.InDelta(t, 0.4, results[0].FusedScore, 1e-9)
	assert.InDelta(t, 0.35, results[1].FusedScore, 1e-9)
}

func TestRetriever_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFakeReader("doc_0")
	f.hits = []*vector.VectorResult{{ID: "ghost_0", Score: 0.9}}

	_, err := NewRetriever().Retrieve(ctx, f, hybridQuery(5, 1.0, 0))
	assert.True(t, errors.Is(err, models.ErrIndexCorruption))

	q := hybridQuery(5, 1.0, 0)
	q.Embedding = []float32{1, 0, 0}
	_, err = NewRetriever().Retrieve(ctx, f, q)
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	bad := []Query{
		hybridQuery(0, 0.5, 0),
		hybridQuery(5, 1.5, 0),
		hybridQuery(5, 0.5, -0.1),
		{Text: "q", Embedding: []float32{1, 0}, TopK: 5, Mode: "semantic"},
	}
	for _, q := range bad {
		_, err := NewRetriever().Retrieve(ctx, f, q)
		assert.True(t, errors.Is(err, models.ErrValidation), "%+v", q)
	}
}

func TestRetriever_EmptyIndex(t *testing.T) {
	results, err := NewRetriever().Retrieve(context.Background(), newFakeReader(), hybridQuery(5, 0.7, 0.3))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetriever_OverCorpus(t *testing.T) {
	ctx := context.Background()
	vi, err := vector.NewMemoryIndex(2)
	require.NoError(t, err)
	c, err := corpus.Open(ctx, storage.NewMemoryStorage(), vi, keyword.NewInvertedIndex())
	require.NoError(t, err)
	defer c.Close()

	doc := &models.Document{ID: "d1", Content: "solar power. wind power."}
	chunks := []*models.Chunk{
		{ID: "d1_0", DocumentID: "d1", Ordinal: 0, Text: "solar power", Embedding: []float32{1, 0}},
		{ID: "d1_1", DocumentID: "d1", Ordinal: 1, Text: "wind power", Embedding: []float32{0, 1}},
	}
	require.NoError(t, c.Commit(ctx, doc, chunks))

	var results []*models.RetrievedResult
	err = c.View(ctx, func(v *corpus.View) error {
		var err error
		results, err = NewRetriever().Retrieve(ctx, v, Query{
			Text: "wind", Embedding: []float32{0, 1}, TopK: 5, Alpha: 0.7, MinSimilarity: 0.3,
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1_1", results[0].ChunkID)
	assert.Equal(t, "wind power", results[0].Text)
	assert.InDelta(t, 1.0, results[0].VectorScore, 1e-6)
	assert.Greater(t, results[0].KeywordScore, 0.7)
}
