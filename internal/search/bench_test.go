package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/ragcore/internal/corpus"
	"github.com/hyperjump/ragcore/internal/keyword"
	"github.com/hyperjump/ragcore/internal/models"
	"github.com/hyperjump/ragcore/internal/storage"
	"github.com/hyperjump/ragcore/internal/vector"
)

func BenchmarkFuse(b *testing.B) {
	vs := make(map[string]float64)
	ks := make(map[string]float64)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("c%d", i)
		vs[id] = float64(i) / 100
		if i%3 == 0 {
			ks[id] = float64(100-i) / 100
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Fuse(vs, ks, 0.7)
	}
}

func BenchmarkRetrieveHybrid(b *testing.B) {
	const dims = 64
	ctx := context.Background()
	vi, _ := vector.NewMemoryIndex(dims)
	c, err := corpus.Open(ctx, storage.NewMemoryStorage(), vi, keyword.NewInvertedIndex())
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	for d := 0; d < 100; d++ {
		docID := fmt.Sprintf("doc%d", d)
		chunks := make([]*models.Chunk, 10)
		for i := range chunks {
			emb := make([]float32, dims)
			emb[(d+i)%dims] = 1
			chunks[i] = &models.Chunk{
				ID:         fmt.Sprintf("%s_%d", docID, i),
				DocumentID: docID,
				Ordinal:    i,
				Text:       fmt.Sprintf("chunk %d of document %d about topic%d", i, d, d%7),
				Embedding:  emb,
			}
		}
		if err := c.Commit(ctx, &models.Document{ID: docID, Content: docID}, chunks); err != nil {
			b.Fatal(err)
		}
	}
	q := Query{Text: "document about topic3", Embedding: make([]float32, dims), TopK: 10, Alpha: 0.7}
	q.Embedding[3] = 1
	r := NewRetriever()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.View(ctx, func(v *corpus.View) error {
			_, err := r.Retrieve(ctx, v, q)
			return err
		})
	}
}
