package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
)

const (
	classifierConfidenceDiscount = 0.8
	classifierConfidenceCap      = 0.9
	fallbackClassifierConfidence = 0.6
	fallbackSubcategory          = "General Collectible"
	defaultSubcategory           = "Collectible Items"
	defaultClassifierAttempts    = 2
)

type labelMapping struct {
	key         string
	category    domain.Category
	subcategory string
}

// labelMappings is scanned in order; the first key contained in the label wins.
var labelMappings = []labelMapping{
	{"envelope", domain.CategoryCards, "Trading Cards"},
	{"book jacket", domain.CategoryCards, "Trading Cards"},
	{"comic book", domain.CategoryComic, "Comic Books"},

	{"teddy", domain.CategoryToy, "Stuffed Animals"},
	{"doll", domain.CategoryToy, "Dolls & Figures"},
	{"toy terrier", domain.CategoryToy, "Toy Animals"},
	{"toyshop", domain.CategoryToy, "Various Toys"},

	{"coin", domain.CategoryCoin, "Coins"},
	{"brass", domain.CategoryCoin, "Metal Objects"},
	{"buckle", domain.CategoryCoin, "Metal Collectibles"},

	{"vase", domain.CategoryPorcelain, "Vases"},
	{"pitcher", domain.CategoryPorcelain, "Vessels"},
	{"teapot", domain.CategoryPorcelain, "Tea Sets"},
	{"cup", domain.CategoryPorcelain, "Cups & Saucers"},
	{"bowl", domain.CategoryPorcelain, "Bowls"},
	{"plate", domain.CategoryPorcelain, "Plates"},
	{"pottery", domain.CategoryPorcelain, "Pottery"},

	{"mailbag", domain.CategoryStamp, "Postal Collectibles"},

	{"radio", domain.CategoryRetroElectronics, "Audio Equipment"},
	{"television", domain.CategoryRetroElectronics, "Video Equipment"},
	{"cassette", domain.CategoryRetroElectronics, "Media"},

	{"plastic bag", domain.CategoryCards, "Packaged Items"},
	{"carton", domain.CategoryCards, "Boxed Items"},
}

type labelFallbackRule struct {
	keywords    []string
	category    domain.Category
	subcategory string
}

var labelFallbackRules = []labelFallbackRule{
	{[]string{"toy", "doll", "teddy"}, domain.CategoryToy, "Collectible Toys"},
	{[]string{"ceramic", "porcelain", "china"}, domain.CategoryPorcelain, "Ceramics"},
	{[]string{"metal", "brass", "silver"}, domain.CategoryCoin, "Metal Items"},
}

// CategoryClassifier maps a vision backend's label space onto the collectible taxonomy.
type CategoryClassifier struct {
	backend     ports.ImageClassifier
	maxAttempts int
	rng         randsource.Source
}

type ClassifierOption func(*CategoryClassifier)

// WithClassifierAttempts sets the total number of backend calls, retry included.
func WithClassifierAttempts(attempts int) ClassifierOption {
	return func(c *CategoryClassifier) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

func WithClassifierRandom(rng randsource.Source) ClassifierOption {
	return func(c *CategoryClassifier) {
		if rng != nil {
			c.rng = rng
		}
	}
}

func NewCategoryClassifier(backend ports.ImageClassifier, opts ...ClassifierOption) *CategoryClassifier {
	c := &CategoryClassifier{
		backend:     backend,
		maxAttempts: defaultClassifierAttempts,
		rng:         randsource.New(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails: an unavailable backend or an empty result yields a fallback classification.
func (c *CategoryClassifier) Classify(ctx context.Context, image *domain.Image) domain.CategoryResult {
	if c.backend == nil {
		return c.Fallback(ctx)
	}

	results, err := c.classifyWithRetry(ctx, image)
	if err != nil {
		slog.Warn("category_classification_fallback", "reason", "backend_error", "error", err)
		return c.Fallback(ctx)
	}
	if len(results) == 0 {
		slog.Warn("category_classification_fallback", "reason", "empty_result")
		return c.Fallback(ctx)
	}

	top := results[0]
	category, subcategory := MapLabel(top.Label)
	return domain.CategoryResult{
		Category:    category,
		Subcategory: subcategory,
		Confidence:  discountConfidence(top.Score),
	}
}

// Fallback picks a base category uniformly at random with a fixed low confidence. It draws
// from the source attached to ctx when there is one.
func (c *CategoryClassifier) Fallback(ctx context.Context) domain.CategoryResult {
	rng := randsource.FromContext(ctx, c.rng)
	return domain.CategoryResult{
		Category:    domain.BaseCategories[rng.IntN(len(domain.BaseCategories))],
		Subcategory: fallbackSubcategory,
		Confidence:  fallbackClassifierConfidence,
		Fallback:    true,
	}
}

func (c *CategoryClassifier) classifyWithRetry(ctx context.Context, image *domain.Image) ([]domain.RawClassification, error) {
	var lastErr error
	// The only retry loop for classification. visionPolicy in internal/bootstrap/bootstrap.go
	// sets RetryMaxAttempts to 1 for the vision executor so attempts do not multiply.
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := c.backend.Classify(ctx, image)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if attempt < c.maxAttempts {
			slog.Warn("category_classification_retry", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
		}
	}
	return nil, fmt.Errorf("classify image after %d attempts: %w", c.maxAttempts, lastErr)
}

// MapLabel resolves a raw backend label to a category and subcategory.
func MapLabel(label string) (domain.Category, string) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower != "" {
		for _, m := range labelMappings {
			if strings.Contains(lower, m.key) {
				return m.category, m.subcategory
			}
		}
		for _, rule := range labelFallbackRules {
			for _, keyword := range rule.keywords {
				if strings.Contains(lower, keyword) {
					return rule.category, rule.subcategory
				}
			}
		}
	}
	return domain.CategoryCards, defaultSubcategory
}

func discountConfidence(score float64) float64 {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	return math.Min(score*classifierConfidenceDiscount, classifierConfidenceCap)
}
