package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

// ImageClassifier asks the vision model for ranked labels.
type ImageClassifier struct {
	client *Client
}

func NewImageClassifier(client *Client) *ImageClassifier {
	return &ImageClassifier{client: client}
}

func (c *ImageClassifier) Classify(ctx context.Context, image *domain.Image) ([]domain.RawClassification, error) {
	if image.Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify image", errors.New("empty image"))
	}

	raw, err := c.client.generateJSON(ctx, "classify", c.client.visionModel, classificationPrompt, image)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Labels []domain.RawClassification `json:"labels"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parse classification json: %w", err)
	}
	return rankLabels(payload.Labels), nil
}

// rankLabels drops blank labels, clamps scores to [0, 1] and sorts by descending score.
func rankLabels(labels []domain.RawClassification) []domain.RawClassification {
	out := make([]domain.RawClassification, 0, len(labels))
	for _, l := range labels {
		l.Label = strings.TrimSpace(l.Label)
		if l.Label == "" {
			continue
		}
		switch {
		case math.IsNaN(l.Score), l.Score < 0:
			l.Score = 0
		case l.Score > 1:
			l.Score = 1
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
