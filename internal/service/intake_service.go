package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/recognition"
	"github.com/Ibraz94/fleetbold-expenses/internal/storage"

	"go.uber.org/zap"
)

// MaxUploadSize is the per-file limit for receipt uploads.
const MaxUploadSize = 10 << 20 // 10 MB

var allowedExtensions = map[string]string{
	"csv":  "text/csv",
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// IntakeResult is the outcome of accepting one uploaded file: where the file
// was stored and what the recognizer produced.
type IntakeResult struct {
	FileRef     string
	Recognition *recognition.Result
}

// IntakeService validates uploaded receipt documents and forwards them to the
// recognition backend. It persists nothing beyond the receipt file itself.
type IntakeService struct {
	recognizer recognition.Recognizer
	store      *storage.ReceiptStore
	timeout    time.Duration
	logger     *zap.Logger
}

func NewIntakeService(recognizer recognition.Recognizer, store *storage.ReceiptStore, timeout time.Duration, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		recognizer: recognizer,
		store:      store,
		timeout:    timeout,
		logger:     logger,
	}
}

// Accept validates one file and runs recognition on it. Recognition is
// awaited under a bounded timeout so a slow backend cannot starve other
// requests.
func (s *IntakeService) Accept(ctx context.Context, fileName string, data []byte) (*IntakeResult, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return nil, apperr.Validation("file type %q is not allowed (allowed: csv, pdf, jpg, jpeg, png)", ext)
	}
	if int64(len(data)) > MaxUploadSize {
		return nil, apperr.Validation("file exceeds size limit of 10 MB")
	}

	recCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.recognizer.Recognize(recCtx, recognition.Document{
		Name: fileName,
		MIME: mimeType,
		Data: data,
	})
	if err != nil {
		s.logger.Warn("recognition failed",
			zap.String("file", fileName),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindRecognition, err, "recognition service timed out")
		}
		return nil, apperr.Wrap(apperr.KindRecognition, err, "recognition service failed")
	}

	ref, err := s.store.Save(fileName, data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document accepted",
		zap.String("file", fileName),
		zap.String("ref", ref),
		zap.String("backend", string(result.Backend)),
	)
	return &IntakeResult{FileRef: ref, Recognition: result}, nil
}
