package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hyperjump/ragcore/internal/models"
	"go.uber.org/zap"
)

const docIDPrefix = "path:"

// DocumentID returns the stable document ID for a file: "path:" plus the hex sha256 of the
// cleaned absolute path.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return docIDPrefix + hex.EncodeToString(sum[:])
}

// Ingester is the part of the service FileSync drives.
type Ingester interface {
	IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error)
	DeleteDocument(ctx context.Context, id string) error
}

// FileSync is a Handler that mirrors files into the corpus. A changed file replaces the previous
// version of its document; a removed or emptied file deletes it.
type FileSync struct {
	ingester Ingester
	maxBytes int64
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewFileSync creates a FileSync. Files larger than maxBytes are skipped; 0 means no limit.
func NewFileSync(ingester Ingester, maxBytes int64, logger *zap.Logger) *FileSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSync{ingester: ingester, maxBytes: maxBytes, logger: logger}
}

// FileChanged implements Handler.
func (f *FileSync) FileChanged(path string) {
	if err := f.Sync(context.Background(), path); err != nil {
		f.logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
	}
}

// FileRemoved implements Handler.
func (f *FileSync) FileRemoved(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.remove(context.Background(), DocumentID(path)); err != nil {
		f.logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
		return
	}
	f.logger.Debug("watch document removed", zap.String("path", path))
}

// Sync ingests the current contents of path, replacing any earlier version.
func (f *FileSync) Sync(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return f.remove(ctx, DocumentID(abs))
		}
		return err
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		f.logger.Info("watch skipping large file", zap.String("path", abs), zap.Int64("size", info.Size()))
		return nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", abs, err)
	}
	if !utf8.Valid(data) {
		return models.Validationf("%s is not valid UTF-8 text", abs)
	}

	id := DocumentID(abs)
	if err := f.remove(ctx, id); err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	res, err := f.ingester.IngestDocument(ctx, &models.DocumentInput{
		ID:      id,
		Title:   filepath.Base(abs),
		Content: string(data),
		Metadata: map[string]interface{}{
			"path":     abs,
			"modified": info.ModTime().UTC(),
		},
	})
	if err != nil {
		return err
	}
	f.logger.Debug("watch document ingested", zap.String("path", abs), zap.Int("chunks", res.ChunksCreated))
	return nil
}

func (f *FileSync) remove(ctx context.Context, id string) error {
	if err := f.ingester.DeleteDocument(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}
