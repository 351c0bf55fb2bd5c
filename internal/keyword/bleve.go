package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/hyperjump/ragcore/internal/models"
)

const bleveTextField = "text"

type bleveChunk struct {
	Text string `json:"text"`
}

// BleveIndex implements KeywordIndex using Bleve. Raw Bleve scores are divided by the best
// hit's score so results fall in (0,1].
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory
// index, which is the normal mode since chunk postings are rebuilt from the store on open.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, matching Tokenize closely.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(bleveTextField, textFieldMapping)
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes chunk text by chunk ID, replacing any previous version.
func (b *BleveIndex) Index(ctx context.Context, chunkID, text string) error {
	if chunkID == "" {
		return models.Validationf("chunk id cannot be empty")
	}
	return b.index.Index(chunkID, bleveChunk{Text: text})
}

// Search runs a match query over chunk text and returns every hit with a normalized score.
func (b *BleveIndex) Search(ctx context.Context, query string) (map[string]float64, error) {
	scores := make(map[string]float64)
	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("Bleve doc count failed: %w", err)
	}
	if count == 0 || len(Tokenize(query, 1)) == 0 {
		return scores, nil
	}
	q := bleve.NewMatchQuery(query)
	q.SetField(bleveTextField)
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	var maxScore float64
	for _, hit := range results.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	if maxScore <= 0 {
		return scores, nil
	}
	for _, hit := range results.Hits {
		scores[hit.ID] = hit.Score / maxScore
	}
	return scores, nil
}

// Delete removes chunks from the index in one batch.
func (b *BleveIndex) Delete(ctx context.Context, chunkIDs ...string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch delete failed: %w", err)
	}
	return nil
}

// Len returns the number of indexed chunks, or 0 if the count cannot be read.
func (b *BleveIndex) Len() int {
	n, err := b.index.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
