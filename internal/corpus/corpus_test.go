package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dims = 3

func openCorpus(t *testing.T, store storage.Storage) *Corpus {
	t.Helper()
	vi, err := vector.NewMemoryIndex(dims)
	require.NoError(t, err)
	c, err := Open(context.Background(), store, vi, keyword.NewInvertedIndex())
	require.NoError(t, err)
	return c
}

func testDocument(id string, texts ...string) (*models.Document, []*models.Chunk) {
	doc := &models.Document{ID: id, Title: id, Content: id}
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		emb := make([]float32, dims)
		emb[i%dims] = 1
		chunks[i] = &models.Chunk{
			ID:         id + "_" + string(rune('0'+i)),
			DocumentID: id,
			Text:       text,
			Ordinal:    i,
			Embedding:  emb,
		}
	}
	return doc, chunks
}

func TestCorpus_CommitAndView(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	defer c.Close()

	doc, chunks := testDocument("doc1", "machine learning basics", "deep neural networks")
	require.NoError(t, c.Commit(ctx, doc, chunks))

	err := c.View(ctx, func(v *View) error {
		assert.Equal(t, 2, v.Size())
		assert.Equal(t, dims, v.Dimensions())

		hits, err := v.VectorSearch(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "doc1_0", hits[0].ID)

		scores, err := v.KeywordSearch(ctx, "neural")
		require.NoError(t, err)
		assert.Contains(t, scores, "doc1_1")

		ch, err := v.Chunk(ctx, "doc1_1")
		require.NoError(t, err)
		assert.Equal(t, "deep neural networks", ch.Text)
		return nil
	})
	require.NoError(t, err)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.Documents)
	assert.Equal(t, int64(2), h.Chunks)
	assert.Equal(t, 2, h.VectorSize)
}

func TestCorpus_CommitRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	defer c.Close()

	doc, chunks := testDocument("doc1", "alpha")
	chunks[0].Embedding = []float32{1, 0}
	err := c.Commit(ctx, doc, chunks)
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	doc, chunks = testDocument("doc1", "alpha")
	chunks[0].DocumentID = "other"
	assert.True(t, errors.Is(c.Commit(ctx, doc, chunks), models.ErrValidation))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.Documents)
	assert.Zero(t, h.VectorSize)

	doc, chunks = testDocument("doc1", "alpha")
	require.NoError(t, c.Commit(ctx, doc, chunks))
	doc, chunks = testDocument("doc1", "beta")
	assert.True(t, errors.Is(c.Commit(ctx, doc, chunks), models.ErrValidation))

	require.NoError(t, c.View(ctx, func(v *View) error {
		assert.Equal(t, 1, v.Size())
		return nil
	}))
}

func TestCorpus_Remove(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	defer c.Close()

	doc, chunks := testDocument("doc1", "quantum computing", "qubits and gates")
	require.NoError(t, c.Commit(ctx, doc, chunks))
	require.NoError(t, c.Remove(ctx, "doc1"))

	require.NoError(t, c.View(ctx, func(v *View) error {
		assert.Zero(t, v.Size())
		scores, err := v.KeywordSearch(ctx, "quantum")
		require.NoError(t, err)
		assert.Empty(t, scores)
		return nil
	}))

	err := c.Remove(ctx, "doc1")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, _, err = c.Document(ctx, "doc1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCorpus_ViewReportsMissingChunkAsCorruption(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	defer c.Close()

	err := c.View(ctx, func(v *View) error {
		_, err := v.Chunk(ctx, "ghost_0")
		return err
	})
	assert.True(t, errors.Is(err, models.ErrIndexCorruption))
}

func TestCorpus_WarmStartFromStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "corpus.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	c := openCorpus(t, store)
	doc, chunks := testDocument("doc1", "retrieval augmented generation", "hybrid search")
	require.NoError(t, c.Commit(ctx, doc, chunks))
	require.NoError(t, c.Close())

	store, err = storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	c = openCorpus(t, store)
	defer c.Close()

	require.NoError(t, c.View(ctx, func(v *View) error {
		assert.Equal(t, 2, v.Size())
		hits, err := v.VectorSearch(ctx, []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "doc1_1", hits[0].ID)

		scores, err := v.KeywordSearch(ctx, "hybrid")
		require.NoError(t, err)
		assert.Contains(t, scores, "doc1_1")
		return nil
	}))
}

func TestCorpus_Closed(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Close(), ErrClosed)
	assert.ErrorIs(t, c.View(ctx, func(*View) error { return nil }), ErrClosed)
	doc, chunks := testDocument("doc1", "text")
	assert.ErrorIs(t, c.Commit(ctx, doc, chunks), ErrClosed)
	assert.ErrorIs(t, c.Remove(ctx, "doc1"), ErrClosed)
}

func TestCorpus_ConcurrentReadersSeeWholeDocuments(t *testing.T) {
	ctx := context.Background()
	c := openCorpus(t, storage.NewMemoryStorage())
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, chunks := testDocument("doc"+string(rune('a'+i)), "one", "two", "three")
			assert.NoError(t, c.Commit(ctx, doc, chunks))
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.View(ctx, func(v *View) error {
				assert.Zero(t, v.Size()%3)
				return nil
			})
		}()
	}
	wg.Wait()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), h.Documents)
	assert.Equal(t, 24, h.VectorSize)
}
