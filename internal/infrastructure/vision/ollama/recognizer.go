package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
)

const (
	ocrKeepAlive  = "30m"
	unloadTimeout = 5 * time.Second
)

// RecognizerLoader warms the OCR model up so that the first recognition does not pay for it.
type RecognizerLoader struct {
	client *Client
}

func NewRecognizerLoader(client *Client) *RecognizerLoader {
	return &RecognizerLoader{client: client}
}

func (l *RecognizerLoader) Load(ctx context.Context, settings domain.OCRSettings) (ports.TextRecognizer, error) {
	start := time.Now()
	if err := l.client.keepAlive(ctx, l.client.ocrModel, ocrKeepAlive); err != nil {
		return nil, fmt.Errorf("load ocr model %s: %w", l.client.ocrModel, err)
	}
	slog.Info("ocr_model_loaded",
		"model", l.client.ocrModel,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return &Recognizer{
		client:    l.client,
		prompt:    buildOCRPrompt(settings),
		whitelist: []rune(settings.CharWhitelist),
	}, nil
}

// Recognizer reads text with the OCR model loaded by RecognizerLoader.
type Recognizer struct {
	client    *Client
	prompt    string
	whitelist []rune
}

func (r *Recognizer) Recognize(ctx context.Context, image *domain.Image) (domain.OCRResult, error) {
	if image.Empty() {
		return domain.OCRResult{}, domain.WrapError(domain.ErrInvalidInput, "recognize text", errors.New("empty image"))
	}

	raw, err := r.client.generateJSON(ctx, "ocr", r.client.ocrModel, r.prompt, image)
	if err != nil {
		return domain.OCRResult{}, err
	}

	var result domain.OCRResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.OCRResult{}, fmt.Errorf("parse ocr json: %w", err)
	}

	result.FullText = r.restrict(result.FullText)
	words := result.Tokens[:0]
	for _, w := range result.Tokens {
		w.Text = strings.TrimSpace(r.restrict(w.Text))
		if w.Text == "" {
			continue
		}
		words = append(words, w)
	}
	result.Tokens = words
	return result, nil
}

// Close unloads the OCR model from the server.
func (r *Recognizer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
	defer cancel()
	return r.client.keepAlive(ctx, r.client.ocrModel, "0")
}

// restrict drops characters outside the configured whitelist. Models do not honor it reliably.
func (r *Recognizer) restrict(s string) string {
	if len(r.whitelist) == 0 {
		return s
	}
	return strings.Map(func(c rune) rune {
		for _, allowed := range r.whitelist {
			if c == allowed {
				return c
			}
		}
		return -1
	}, s)
}
