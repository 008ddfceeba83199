package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptStore keeps uploaded receipt files on disk. The returned reference
// is an opaque pointer stored on the expense; URL resolves it back to a
// retrievable location served by the router.
type ReceiptStore struct {
	dir    string
	logger *zap.Logger
}

func NewReceiptStore(dir string, logger *zap.Logger) (*ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &ReceiptStore{dir: dir, logger: logger}, nil
}

// Save writes file bytes under a fresh name and returns the reference.
func (s *ReceiptStore) Save(originalName string, data []byte) (string, error) {
	ref := uuid.New().String() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, ref)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("receipt file stored",
		zap.String("ref", ref),
		zap.String("original_name", originalName),
		zap.Int("size", len(data)),
	)
	return ref, nil
}

// URL maps a stored reference to its retrievable URL.
func (s *ReceiptStore) URL(ref string) string {
	return "/uploads/" + ref
}

// Dir is the directory the router serves as /uploads.
func (s *ReceiptStore) Dir() string {
	return s.dir
}
