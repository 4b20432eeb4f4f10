package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
)

// ConditionGrader turns per-factor condition scores into a grade using category criteria.
type ConditionGrader struct {
	scorer   ports.FactorScorer
	criteria map[domain.Category]domain.GradingCriteria
}

type GraderOption func(*ConditionGrader)

// WithGradingCriteria replaces the built-in criteria for the given categories.
func WithGradingCriteria(overrides map[domain.Category]domain.GradingCriteria) GraderOption {
	return func(g *ConditionGrader) {
		for category, criteria := range overrides {
			criteria.Category = category
			g.criteria[category] = criteria
		}
	}
}

func NewConditionGrader(scorer ports.FactorScorer, opts ...GraderOption) *ConditionGrader {
	g := &ConditionGrader{
		scorer:   scorer,
		criteria: DefaultGradingCriteria(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Criteria returns the criteria for category, falling back to cards.
func (g *ConditionGrader) Criteria(category domain.Category) domain.GradingCriteria {
	if criteria, ok := g.criteria[category]; ok {
		return criteria
	}
	return g.criteria[domain.CategoryCards]
}

// GradingExplanation describes what the grade of a category is based on.
func (g *ConditionGrader) GradingExplanation(category domain.Category) string {
	criteria, ok := g.criteria[category]
	if !ok || criteria.Explanation == "" {
		return genericGradingExplanation
	}
	return criteria.Explanation
}

func (g *ConditionGrader) AnalyzeCondition(ctx context.Context, image *domain.Image, category domain.Category) (domain.ConditionAnalysis, error) {
	criteria := g.Criteria(category)
	if g.scorer == nil {
		return domain.ConditionAnalysis{}, domain.WrapError(domain.ErrCapabilityUnavailable, "score condition factors", fmt.Errorf("no factor scorer configured"))
	}

	scores, err := g.scorer.ScoreFactors(ctx, image, criteria)
	if err != nil {
		return domain.ConditionAnalysis{}, fmt.Errorf("score condition factors: %w", err)
	}
	if len(scores) != len(criteria.Factors) {
		return domain.ConditionAnalysis{}, domain.WrapError(
			domain.ErrInvalidInput,
			"score condition factors",
			fmt.Errorf("scores/factors mismatch: %d/%d", len(scores), len(criteria.Factors)),
		)
	}
	return EvaluateCondition(criteria, scores), nil
}

// EvaluateCondition grades fixed factor scores. Scores are clamped to [0, 100].
func EvaluateCondition(criteria domain.GradingCriteria, scores []float64) domain.ConditionAnalysis {
	factors := make(map[string]float64, len(criteria.Factors))
	clamped := make([]float64, len(criteria.Factors))
	for i, name := range criteria.Factors {
		var v float64
		if i < len(scores) {
			v = clampScore(scores[i])
		}
		clamped[i] = v
		factors[name] = v
	}

	score := WeightedScore(criteria, clamped)
	return domain.ConditionAnalysis{
		Grade:           DetermineGrade(criteria, score),
		Score:           score,
		Factors:         factors,
		Defects:         applyFactorRules(criteria.Defects, factors),
		Recommendations: append(append([]string{}, criteria.Recommendations...), applyFactorRules(criteria.ConditionalRecommendations, factors)...),
	}
}

// WeightedScore is the weighted mean of the scores rounded to the nearest integer.
// A missing or non-positive weight counts as 1.
func WeightedScore(criteria domain.GradingCriteria, scores []float64) int {
	var total, totalWeight float64
	for i, s := range scores {
		weight := 1.0
		if i < len(criteria.Weights) && criteria.Weights[i] > 0 {
			weight = criteria.Weights[i]
		}
		total += s * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(total / totalWeight))
}

// DetermineGrade returns the first grade whose threshold the score reaches.
func DetermineGrade(criteria domain.GradingCriteria, score int) string {
	for _, t := range criteria.Thresholds {
		if float64(score) >= t.MinScore {
			return t.Grade
		}
	}
	return "Poor"
}

// ConditionNotes renders an analysis as "Grade (score/100) - findings".
func ConditionNotes(analysis domain.ConditionAnalysis) string {
	head := fmt.Sprintf("%s (%d/100)", analysis.Grade, analysis.Score)
	switch {
	case analysis.Grade == domain.UnknownGrade:
		return head + " - condition could not be assessed"
	case len(analysis.Defects) == 0:
		return head + " - no visible defects detected"
	default:
		return head + " - " + strings.Join(analysis.Defects, ", ")
	}
}

func applyFactorRules(rules []domain.FactorRule, factors map[string]float64) []string {
	out := make([]string, 0, len(rules))
	for _, rule := range rules {
		v, ok := factors[rule.Factor]
		if ok && v < rule.Below {
			out = append(out, rule.Note)
		}
	}
	return out
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
