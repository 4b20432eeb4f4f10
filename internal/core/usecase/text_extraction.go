package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
)

const (
	ocrCharWhitelist      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyzÅÄÖåäö©®™/-.,()[]{}:; "
	ocrSegmentationSparse = "sparse_text"
	recognizerFlightKey   = "recognizer"

	defaultRecognizerLoadTimeout = 2 * time.Minute
)

// DefaultOCRSettings targets small scattered print in English and Swedish.
func DefaultOCRSettings() domain.OCRSettings {
	return domain.OCRSettings{
		Languages:        []string{"eng", "swe"},
		CharWhitelist:    ocrCharWhitelist,
		SegmentationMode: ocrSegmentationSparse,
	}
}

// TextExtractionEngine owns the process-wide OCR recognizer. The recognizer is loaded on first
// use; concurrent first calls share one load. A failed load is retried on the next call.
type TextExtractionEngine struct {
	loader      ports.TextRecognizerLoader
	settings    domain.OCRSettings
	loadTimeout time.Duration

	flight     singleflight.Group
	mu         sync.Mutex
	recognizer ports.TextRecognizer
	// generation is bumped by Close; loads started before it must not install their result.
	generation uint64
}

func NewTextExtractionEngine(loader ports.TextRecognizerLoader, settings domain.OCRSettings) *TextExtractionEngine {
	if len(settings.Languages) == 0 {
		settings.Languages = DefaultOCRSettings().Languages
	}
	if settings.CharWhitelist == "" {
		settings.CharWhitelist = ocrCharWhitelist
	}
	if settings.SegmentationMode == "" {
		settings.SegmentationMode = ocrSegmentationSparse
	}
	return &TextExtractionEngine{
		loader:      loader,
		settings:    settings,
		loadTimeout: defaultRecognizerLoadTimeout,
	}
}

// ExtractText recognizes and classifies text in one step. It degrades to empty buckets.
func (e *TextExtractionEngine) ExtractText(ctx context.Context, image *domain.Image, category domain.Category) domain.TextExtraction {
	tokens := e.RecognizeTokens(ctx, image)
	if tokens == nil {
		return domain.EmptyTextExtraction()
	}
	return ClassifyTokens(tokens, category)
}

// RecognizeTokens returns the filtered OCR tokens, or nil when recognition is unavailable.
func (e *TextExtractionEngine) RecognizeTokens(ctx context.Context, image *domain.Image) []domain.TextToken {
	recognizer, err := e.acquire(ctx)
	if err != nil {
		slog.Warn("text_extraction_unavailable", "error", err)
		return nil
	}

	result, err := recognizer.Recognize(ctx, image)
	if err != nil {
		slog.Warn("text_extraction_failed", "error", err)
		return nil
	}

	tokens := FilterTokens(result.Tokens)
	slog.Debug("text_extraction_completed",
		"tokens_total", len(result.Tokens),
		"tokens_kept", len(tokens),
		"confidence", result.Confidence,
	)
	return tokens
}

// ClassifyTokens applies the category-aware bucket rules to already recognized tokens.
func (e *TextExtractionEngine) ClassifyTokens(tokens []domain.TextToken, category domain.Category) domain.TextExtraction {
	return ClassifyTokens(tokens, category)
}

func (e *TextExtractionEngine) acquire(ctx context.Context) (ports.TextRecognizer, error) {
	if e.loader == nil {
		return nil, domain.WrapError(domain.ErrCapabilityUnavailable, "load text recognizer", errors.New("no loader configured"))
	}

	e.mu.Lock()
	current, generation := e.recognizer, e.generation
	e.mu.Unlock()
	if current != nil {
		return current, nil
	}

	key := recognizerFlightKey + "/" + strconv.FormatUint(generation, 10)
	ch := e.flight.DoChan(key, func() (any, error) {
		return e.load(ctx, generation)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.TextRecognizer), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for text recognizer: %w", ctx.Err())
	}
}

// load is shared by every flight waiter and ignores the starting caller's cancellation.
func (e *TextExtractionEngine) load(ctx context.Context, generation uint64) (ports.TextRecognizer, error) {
	e.mu.Lock()
	if e.recognizer != nil && e.generation == generation {
		r := e.recognizer
		e.mu.Unlock()
		return r, nil
	}
	e.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.loadTimeout)
	defer cancel()

	slog.Info("text_recognizer_loading", "languages", e.settings.Languages, "segmentation", e.settings.SegmentationMode)
	r, err := e.loader.Load(loadCtx, e.settings)
	if err != nil {
		return nil, fmt.Errorf("load text recognizer: %w", err)
	}
	if r == nil {
		return nil, domain.WrapError(domain.ErrCapabilityUnavailable, "load text recognizer", errors.New("loader returned no recognizer"))
	}

	e.mu.Lock()
	if e.generation != generation {
		e.mu.Unlock()
		if err := r.Close(); err != nil {
			slog.Warn("text_recognizer_close_failed", "error", err)
		}
		return nil, domain.WrapError(domain.ErrCapabilityUnavailable, "load text recognizer", errors.New("engine closed during load"))
	}
	e.recognizer = r
	e.mu.Unlock()
	return r, nil
}

// Close tears the recognizer down. A load still in flight discards its result. A later
// extraction loads a fresh one.
func (e *TextExtractionEngine) Close() error {
	e.mu.Lock()
	r := e.recognizer
	e.recognizer = nil
	e.generation++
	e.mu.Unlock()

	if r == nil {
		return nil
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("close text recognizer: %w", err)
	}
	slog.Info("text_recognizer_closed")
	return nil
}
