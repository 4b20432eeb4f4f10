package ports

import (
	"context"
	"io"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

// Appraiser is the inbound contract for the identification and grading fusion pipeline.
type Appraiser interface {
	ProduceAppraisal(ctx context.Context, image *domain.Image) (*domain.AppraisalRecord, error)
	ProduceBatch(ctx context.Context, images []*domain.Image) ([]domain.BatchItem, error)
}

// ScanIngestor is the inbound contract for asynchronous capture intake.
type ScanIngestor interface {
	Capture(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Scan, error)
}

// ScanReader is the inbound read model for scan state.
type ScanReader interface {
	GetByID(ctx context.Context, id string) (*domain.Scan, error)
}

// ScanProcessor appraises a previously captured scan.
type ScanProcessor interface {
	ProcessByID(ctx context.Context, scanID string) error
}

// GradingCatalog exposes the grading criteria in effect.
type GradingCatalog interface {
	Criteria(category domain.Category) domain.GradingCriteria
	GradingExplanation(category domain.Category) string
}
