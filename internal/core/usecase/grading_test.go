package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
)

type scorerFake struct {
	mu       sync.Mutex
	scores   []float64
	err      error
	panicMsg string
	block    bool
	seen     domain.GradingCriteria
}

func (f *scorerFake) ScoreFactors(ctx context.Context, _ *domain.Image, criteria domain.GradingCriteria) ([]float64, error) {
	f.mu.Lock()
	f.seen = criteria
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func TestEvaluateConditionCardsScenario(t *testing.T) {
	criteria := DefaultGradingCriteria()[domain.CategoryCards]
	got := EvaluateCondition(criteria, []float64{90, 88, 92, 85})

	assert.Equal(t, 89, got.Score)
	assert.Equal(t, "NM", got.Grade)
	assert.Empty(t, got.Defects)
	assert.Equal(t, criteria.Recommendations, got.Recommendations)
	assert.Equal(t, map[string]float64{"corners": 90, "edges": 88, "surface": 92, "centering": 85}, got.Factors)
}

func TestEvaluateConditionDefectsAndRecommendations(t *testing.T) {
	criteria := DefaultGradingCriteria()[domain.CategoryCards]
	got := EvaluateCondition(criteria, []float64{70, 90, 60, 95})

	assert.Equal(t, []string{"Light corner wear visible", "Very light surface marks"}, got.Defects)
	assert.Contains(t, got.Recommendations, "Check for print defects or damage under magnification")
}

func TestEvaluateConditionClampsScores(t *testing.T) {
	criteria := DefaultGradingCriteria()[domain.CategoryStamp]
	got := EvaluateCondition(criteria, []float64{-40, 140, 100, 100})

	assert.Equal(t, 0.0, got.Factors["perforations"])
	assert.Equal(t, 100.0, got.Factors["centering"])
	assert.Equal(t, 75, got.Score)
}

func TestDetermineGradeDefaultsToPoor(t *testing.T) {
	criteria := domain.GradingCriteria{Thresholds: []domain.GradeThreshold{{Grade: "Top", MinScore: 50}}}
	assert.Equal(t, "Top", DetermineGrade(criteria, 50))
	assert.Equal(t, "Poor", DetermineGrade(criteria, 49))
}

func TestWeightedScoreTreatsMissingWeightAsOne(t *testing.T) {
	criteria := domain.GradingCriteria{Weights: []float64{3}}
	assert.Equal(t, 25, WeightedScore(criteria, []float64{0, 100}))
}

func TestAnalyzeConditionUnknownCategoryUsesCards(t *testing.T) {
	scorer := &scorerFake{scores: []float64{96, 96, 96, 96}}
	g := NewConditionGrader(scorer)

	got, err := g.AnalyzeCondition(context.Background(), testImage(), domain.Category("meteorite"))
	require.NoError(t, err)

	assert.Equal(t, []string{"corners", "edges", "surface", "centering"}, scorer.seen.Factors)
	assert.Equal(t, "Mint", got.Grade)
}

func TestAnalyzeConditionErrors(t *testing.T) {
	_, err := NewConditionGrader(nil).AnalyzeCondition(context.Background(), testImage(), domain.CategoryCoin)
	assert.True(t, domain.IsKind(err, domain.ErrCapabilityUnavailable))

	_, err = NewConditionGrader(&scorerFake{scores: []float64{1, 2}}).AnalyzeCondition(context.Background(), testImage(), domain.CategoryCoin)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	_, err = NewConditionGrader(&scorerFake{err: errors.New("camera")}).AnalyzeCondition(context.Background(), testImage(), domain.CategoryCoin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score condition factors")
}

func TestGradingCriteriaOverride(t *testing.T) {
	custom := domain.GradingCriteria{
		Factors:    []string{"a", "b", "c", "d"},
		Weights:    []float64{1, 1, 1, 1},
		Thresholds: []domain.GradeThreshold{{Grade: "Fine", MinScore: 60}, {Grade: "Rough", MinScore: 0}},
	}
	g := NewConditionGrader(&scorerFake{scores: []float64{60, 60, 60, 60}}, WithGradingCriteria(map[domain.Category]domain.GradingCriteria{
		domain.CategoryToy: custom,
	}))

	got, err := g.AnalyzeCondition(context.Background(), testImage(), domain.CategoryToy)
	require.NoError(t, err)
	assert.Equal(t, "Fine", got.Grade)
	assert.Equal(t, domain.CategoryToy, g.Criteria(domain.CategoryToy).Category)
	assert.Equal(t, genericGradingExplanation, g.GradingExplanation(domain.CategoryToy))
	assert.NotEqual(t, genericGradingExplanation, g.GradingExplanation(domain.CategoryCoin))
}

func TestGradeIsMonotonicInFactorScores(t *testing.T) {
	rng := randsource.New(42)
	for category, criteria := range DefaultGradingCriteria() {
		rank := func(grade string) int {
			return len(criteria.Thresholds) - slices.IndexFunc(criteria.Thresholds, func(th domain.GradeThreshold) bool {
				return th.Grade == grade
			})
		}
		for range 200 {
			base := make([]float64, len(criteria.Factors))
			raised := make([]float64, len(criteria.Factors))
			for i := range base {
				base[i] = rng.Float64() * 100
				raised[i] = base[i] + rng.Float64()*(100-base[i])
			}
			before := EvaluateCondition(criteria, base)
			after := EvaluateCondition(criteria, raised)
			require.GreaterOrEqual(t, after.Score, before.Score, "category %s", category)
			require.GreaterOrEqual(t, rank(after.Grade), rank(before.Grade), "category %s: %s -> %s", category, before.Grade, after.Grade)
		}
	}
}

func TestConditionNotes(t *testing.T) {
	assert.Equal(t, "NM (89/100) - no visible defects detected", ConditionNotes(domain.ConditionAnalysis{Grade: "NM", Score: 89}))
	assert.True(t, strings.HasPrefix(ConditionNotes(domain.NeutralCondition(nil)), "Unknown (70/100)"))
	assert.Equal(t, "G (40/100) - a, b", ConditionNotes(domain.ConditionAnalysis{Grade: "G", Score: 40, Defects: []string{"a", "b"}}))
}
