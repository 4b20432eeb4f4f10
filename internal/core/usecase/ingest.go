package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
)

var supportedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// CaptureScanUseCase stores a captured image and queues it for appraisal.
type CaptureScanUseCase struct {
	repo    ports.ScanRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewCaptureScanUseCase(
	repo ports.ScanRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *CaptureScanUseCase {
	return &CaptureScanUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *CaptureScanUseCase) Capture(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Scan, error) {
	mimeType = normalizeMimeType(mimeType)
	if _, ok := supportedImageTypes[mimeType]; !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedImageFormat, "capture scan", fmt.Errorf("mime type %q", mimeType))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	scan := &domain.Scan{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.ScanStatusCaptured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, scan); err != nil {
		return nil, fmt.Errorf("create scan record: %w", err)
	}

	if err := uc.queue.PublishScanCaptured(ctx, scan.ID); err != nil {
		return nil, fmt.Errorf("publish scan event: %w", err)
	}

	return scan, nil
}

func normalizeMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "image/jpg" {
		return "image/jpeg"
	}
	return mimeType
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "capture.bin"
	}
	return base
}
