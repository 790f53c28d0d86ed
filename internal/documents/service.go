package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumegen-api/internal/extract"
	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/storage/object"
	"resumegen-api/internal/shared/telemetry"
)

// Service stores uploaded files and turns them into plain text.
type Service struct {
	Store object.Store
	Repo  Repo
	Now   func() time.Time
}

// Upload validates, stores and extracts one file. declaredType is the
// client-supplied content type and only breaks ties when sniffing is inconclusive.
func (s *Service) Upload(ctx context.Context, userID, fileName, declaredType string, r io.Reader) (Upload, error) {
	name, err := object.SafeFileName(fileName)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, s.reject(userID, name, ErrTooLarge)
	}

	mimeType := extract.DetectMimeType(data, declaredType, name)
	if !extract.Supported(mimeType) {
		return Upload{}, s.reject(userID, name, ErrUnsupportedType)
	}

	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, name)
	if err != nil {
		if ctx.Err() != nil {
			return Upload{}, ctx.Err()
		}
		telemetry.Warn("upload.extract_failed", map[string]any{"user_id": userID, "file_name": name, "mime_type": mimeType, "error": err})
		return Upload{}, s.reject(userID, name, ErrNoText)
	}
	if strings.TrimSpace(text) == "" {
		return Upload{}, s.reject(userID, name, ErrNoText)
	}

	uploadKey, err := object.UploadKey(userID, name)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	stored, err := s.Store.Put(ctx, uploadKey, mimeType, bytes.NewReader(data))
	if err != nil {
		return Upload{}, fmt.Errorf("save upload: %w", err)
	}
	textKey := object.ExtractedKey(uploadKey)
	if _, err := s.Store.Put(ctx, textKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		s.discard(uploadKey)
		return Upload{}, fmt.Errorf("save extracted text: %w", err)
	}

	doc := Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         name,
		MimeType:         mimeType,
		SizeBytes:        stored.Size,
		StorageKey:       uploadKey,
		ExtractedTextKey: textKey,
		CreatedAt:        s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discard(uploadKey, textKey)
		return Upload{}, fmt.Errorf("record upload: %w", err)
	}

	metrics.IncUploadExtracted()
	telemetry.Info("upload.extracted", map[string]any{
		"user_id":     userID,
		"document_id": doc.ID,
		"mime_type":   mimeType,
		"size_bytes":  stored.Size,
		"chars":       len([]rune(text)),
	})

	return Upload{DocumentID: doc.ID, Filename: fileName, MimeType: mimeType, Content: text}, nil
}

// List returns the caller's uploads, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// discard removes objects written for an upload that could not be recorded.
// It runs detached from the request so a canceled client still gets cleaned up.
func (s *Service) discard(keys ...string) {
	ctx := context.Background()
	for _, key := range keys {
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("upload.cleanup_failed", map[string]any{"key": key, "error": err})
		}
	}
}

func (s *Service) reject(userID, name string, err error) error {
	metrics.IncUploadRejected()
	telemetry.Info("upload.rejected", map[string]any{"user_id": userID, "file_name": name, "reason": err.Error()})
	return err
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
