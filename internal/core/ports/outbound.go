package ports

import (
	"context"
	"io"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

// ImageClassifier is a vision backend returning labels ranked by descending score.
type ImageClassifier interface {
	Classify(ctx context.Context, image *domain.Image) ([]domain.RawClassification, error)
}

// TextRecognizer is an initialized OCR backend.
type TextRecognizer interface {
	Recognize(ctx context.Context, image *domain.Image) (domain.OCRResult, error)
	Close() error
}

// TextRecognizerLoader performs the expensive OCR initialization.
type TextRecognizerLoader interface {
	Load(ctx context.Context, settings domain.OCRSettings) (TextRecognizer, error)
}

// FactorScorer returns one 0-100 score per criteria factor, in criteria order.
type FactorScorer interface {
	ScoreFactors(ctx context.Context, image *domain.Image, criteria domain.GradingCriteria) ([]float64, error)
}

// PriceEstimator returns a condition-independent SEK price range for a category.
type PriceEstimator interface {
	Estimate(ctx context.Context, category domain.Category) (domain.PriceRange, error)
}

// ImageDecoder turns uploaded bytes into a normalized image.
type ImageDecoder interface {
	Decode(data []byte) (*domain.Image, error)
}

// ScanRepository persists scan state and appraisal results.
type ScanRepository interface {
	Create(ctx context.Context, scan *domain.Scan) error
	GetByID(ctx context.Context, id string) (*domain.Scan, error)
	UpdateStatus(ctx context.Context, id string, status domain.ScanStatus, errMessage string) error
	SaveAppraisal(ctx context.Context, id string, record domain.AppraisalRecord) error
}

// ObjectStorage stores captured image bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes scan capture events.
type MessageQueue interface {
	PublishScanCaptured(ctx context.Context, scanID string) error
	SubscribeScanCaptured(ctx context.Context, handler func(context.Context, string) error) error
}

// AppraisalObserver receives per-analysis outcomes for metrics.
type AppraisalObserver interface {
	ObserveAnalysis(analysis, outcome string)
}
