// Package catalog loads grading criteria overrides from a YAML file.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

// File is the top-level layout of a grading tables file:
//
//	categories:
//	  cards:
//	    factors: [corners, edges, surface, centering]
//	    weights: [1.2, 1.0, 1.3, 0.8]
//	    thresholds:
//	      - {grade: Mint, min_score: 95}
type File struct {
	Categories map[string]domain.GradingCriteria `yaml:"categories"`
}

// LoadGradingCriteria reads and validates a grading tables file.
func LoadGradingCriteria(path string) (map[domain.Category]domain.GradingCriteria, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grading tables: %w", err)
	}
	return ParseGradingCriteria(raw)
}

func ParseGradingCriteria(raw []byte) (map[domain.Category]domain.GradingCriteria, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse grading tables", err)
	}
	if len(file.Categories) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse grading tables", fmt.Errorf("no categories defined"))
	}

	out := make(map[domain.Category]domain.GradingCriteria, len(file.Categories))
	for name, criteria := range file.Categories {
		category, ok := domain.ParseCategory(name)
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse grading tables", fmt.Errorf("unknown category %q", name))
		}
		if err := validate(criteria); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse grading tables", fmt.Errorf("%s: %w", category, err))
		}
		criteria.Category = category
		out[category] = criteria
	}
	return out, nil
}

func validate(c domain.GradingCriteria) error {
	if len(c.Factors) == 0 {
		return fmt.Errorf("factors are required")
	}
	if len(c.Weights) != 0 && len(c.Weights) != len(c.Factors) {
		return fmt.Errorf("weights: want %d values, got %d", len(c.Factors), len(c.Weights))
	}
	if len(c.Spread) != 0 && len(c.Spread) != len(c.Factors) {
		return fmt.Errorf("spread: want %d values, got %d", len(c.Factors), len(c.Spread))
	}
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("thresholds are required")
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i].MinScore > c.Thresholds[i-1].MinScore {
			return fmt.Errorf("thresholds must be ordered by descending min_score")
		}
	}

	known := make(map[string]struct{}, len(c.Factors))
	for _, f := range c.Factors {
		known[f] = struct{}{}
	}
	for _, rule := range append(append([]domain.FactorRule{}, c.Defects...), c.ConditionalRecommendations...) {
		if _, ok := known[rule.Factor]; !ok {
			return fmt.Errorf("rule references unknown factor %q", rule.Factor)
		}
	}
	return nil
}
