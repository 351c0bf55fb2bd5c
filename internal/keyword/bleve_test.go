package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleveIndex_SearchNormalizesScores(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, "c1", "Omnisyan report mentions Omnisyan twice."))
	require.NoError(t, idx.Index(ctx, "c2", "The Bayes app is referenced once with Omnisyan."))
	require.NoError(t, idx.Index(ctx, "c3", "Unrelated text about gardening."))
	assert.Equal(t, 3, idx.Len())

	scores, err := idx.Search(ctx, "omnisyan")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.NotContains(t, scores, "c3")
	best := 0.0
	for _, s := range scores {
		assert.True(t, s > 0 && s <= 1)
		if s > best {
			best = s
		}
	}
	assert.InDelta(t, 1.0, best, 1e-9)
}

func TestBleveIndex_Delete(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, "c1", "bayes theorem"))
	require.NoError(t, idx.Delete(ctx, "c1"))
	scores, err := idx.Search(ctx, "bayes")
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Equal(t, 0, idx.Len())
}

func TestBleveIndex_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(context.Background(), "c1", "persistent words"))
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer reopened.Close()
	scores, err := reopened.Search(context.Background(), "persistent")
	require.NoError(t, err)
	assert.Contains(t, scores, "c1")
}
