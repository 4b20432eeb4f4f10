package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
)

// ProcessScanUseCase appraises a captured scan and records the outcome.
type ProcessScanUseCase struct {
	repo     ports.ScanRepository
	storage  ports.ObjectStorage
	decoder  ports.ImageDecoder
	appraise ports.Appraiser
}

func NewProcessScanUseCase(
	repo ports.ScanRepository,
	storage ports.ObjectStorage,
	decoder ports.ImageDecoder,
	appraise ports.Appraiser,
) *ProcessScanUseCase {
	return &ProcessScanUseCase{
		repo:     repo,
		storage:  storage,
		decoder:  decoder,
		appraise: appraise,
	}
}

func (uc *ProcessScanUseCase) ProcessByID(ctx context.Context, scanID string) error {
	if err := uc.markStatus(ctx, scanID, domain.ScanStatusAnalyzing, ""); err != nil {
		return fmt.Errorf("set status=analyzing: %w", err)
	}

	record, err := uc.processPipeline(ctx, scanID)
	if err != nil {
		if failErr := uc.markFailed(ctx, scanID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveAppraisal(ctx, scanID, *record); err != nil {
		err = fmt.Errorf("save appraisal: %w", err)
		if failErr := uc.markFailed(ctx, scanID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	slog.Info("scan_appraised", "scan_id", scanID, "category", record.Category, "grade", record.Condition.Grade)
	return nil
}

func (uc *ProcessScanUseCase) processPipeline(ctx context.Context, scanID string) (*domain.AppraisalRecord, error) {
	scan, err := uc.repo.GetByID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("fetch scan by id: %w", err)
	}

	image, err := uc.loadImage(ctx, scan)
	if err != nil {
		return nil, err
	}

	record, err := uc.appraise.ProduceAppraisal(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("produce appraisal: %w", err)
	}
	return record, nil
}

func (uc *ProcessScanUseCase) loadImage(ctx context.Context, scan *domain.Scan) (*domain.Image, error) {
	rc, err := uc.storage.Open(ctx, scan.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open captured image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read captured image: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read captured image", errors.New("empty image"))
	}

	image, err := uc.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode captured image: %w", err)
	}
	return image, nil
}

func (uc *ProcessScanUseCase) markStatus(ctx context.Context, scanID string, status domain.ScanStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, scanID, status, errMessage)
}

func (uc *ProcessScanUseCase) markFailed(ctx context.Context, scanID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	slog.Warn("scan_failed", "scan_id", scanID, "error", processErr)
	return uc.markStatus(ctx, scanID, domain.ScanStatusFailed, processErr.Error())
}
