package httpadapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/usecase"
)

type appraiserFake struct {
	err      error
	batchErr error
}

func (f appraiserFake) ProduceAppraisal(_ context.Context, image *domain.Image) (*domain.AppraisalRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if image.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "produce appraisal", errors.New("no image provided"))
	}
	return &domain.AppraisalRecord{
		Category:         domain.CategoryCards,
		Title:            "Identified card",
		Identifiers:      []string{"4/102"},
		Condition:        domain.ConditionSummary{Grade: "NM", Notes: "NM (89/100) - no visible defects detected"},
		PriceEstimateSEK: domain.PriceEstimate{Low: 100, Mid: 800, High: 2000, Sources: []string{"heuristic"}},
		Confidence:       0.72,
		DetectedText:     []string{"4/102"},
		HasText:          true,
	}, nil
}

func (f appraiserFake) ProduceBatch(ctx context.Context, images []*domain.Image) ([]domain.BatchItem, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	items := make([]domain.BatchItem, len(images))
	for i, image := range images {
		items[i].Index = i
		record, err := f.ProduceAppraisal(ctx, image)
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		items[i].Record = record
	}
	return items, nil
}

type ingestorFake struct {
	err error
}

func (f ingestorFake) Capture(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Scan, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "capture", io.EOF)
	}
	now := time.Now().UTC()
	return &domain.Scan{
		ID:          "scan-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "scan-1_" + filename,
		Status:      domain.ScanStatusCaptured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type scansFake struct {
	err error
}

func (f scansFake) GetByID(_ context.Context, id string) (*domain.Scan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Scan{ID: id, Filename: "a.jpg", MimeType: "image/jpeg", StoragePath: id + "_a.jpg", Status: domain.ScanStatusAnalyzing}, nil
}

// decoderFake accepts any payload except "bad".
type decoderFake struct{}

func (decoderFake) Decode(data []byte) (*domain.Image, error) {
	if string(data) == "bad" {
		return nil, domain.WrapError(domain.ErrUnsupportedImageFormat, "decode image", errors.New("unknown format"))
	}
	return domain.NewImage(data, "jpeg", 10, 10), nil
}

type routerDeps struct {
	cfg       config.Config
	appraiser appraiserFake
	ingestor  ingestorFake
	scans     scansFake
}

func (d routerDeps) handler() http.Handler {
	return NewRouter(
		d.cfg,
		d.appraiser,
		d.ingestor,
		d.scans,
		usecase.NewConditionGrader(nil),
		decoderFake{},
	).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return routerDeps{cfg: cfg}.handler()
}

func multipartImages(t *testing.T, payloads ...string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i, payload := range payloads {
		part, err := writer.CreateFormFile("image", "item"+string(rune('a'+i))+".jpg")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(payload)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}
