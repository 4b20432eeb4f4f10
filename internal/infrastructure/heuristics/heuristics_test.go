package heuristics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
	"github.com/kirillkom/collector-appraisal/internal/core/usecase"
)

func TestRandomFactorScorerStaysInRange(t *testing.T) {
	scorer := NewRandomFactorScorer(randsource.New(3))
	for category, criteria := range usecase.DefaultGradingCriteria() {
		for range 200 {
			scores, err := scorer.ScoreFactors(context.Background(), nil, criteria)
			require.NoError(t, err)
			require.Len(t, scores, len(criteria.Factors), "category %s", category)
			for _, s := range scores {
				require.GreaterOrEqual(t, s, 0.0)
				require.LessOrEqual(t, s, 100.0)
				// base is 70..95, jitter is at most half the widest spread
				require.GreaterOrEqual(t, s, 70.0-15.0)
			}
		}
	}
}

func TestRandomFactorScorerIsSeeded(t *testing.T) {
	criteria := usecase.DefaultGradingCriteria()[domain.CategoryCoin]
	a, _ := NewRandomFactorScorer(randsource.New(5)).ScoreFactors(context.Background(), nil, criteria)
	b, _ := NewRandomFactorScorer(randsource.New(5)).ScoreFactors(context.Background(), nil, criteria)
	assert.Equal(t, a, b)
}

func TestRandomPriceEstimatorBands(t *testing.T) {
	estimator := NewRandomPriceEstimator(randsource.New(9))
	for range 500 {
		r, err := estimator.Estimate(context.Background(), domain.CategoryStamp)
		require.NoError(t, err)
		assert.True(t, r.Low.IntPart() >= 100 && r.Low.IntPart() <= 1099, "low %s", r.Low)
		assert.True(t, r.Mid.IntPart() >= 500 && r.Mid.IntPart() <= 2499, "mid %s", r.Mid)
		assert.True(t, r.High.IntPart() >= 1000 && r.High.IntPart() <= 5999, "high %s", r.High)
		assert.Equal(t, []string{"heuristic"}, r.Sources)
	}
}

func TestEstimatorsHonorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRandomPriceEstimator(randsource.New(1)).Estimate(ctx, domain.CategoryCoin)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewRandomFactorScorer(randsource.New(1)).ScoreFactors(ctx, nil, domain.GradingCriteria{Factors: []string{"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimatorsDrawFromContextSource(t *testing.T) {
	criteria := usecase.DefaultGradingCriteria()[domain.CategoryCoin]
	ctxA := randsource.NewContext(context.Background(), randsource.New(21))
	ctxB := randsource.NewContext(context.Background(), randsource.New(21))

	a, err := NewRandomFactorScorer(randsource.New(1)).ScoreFactors(ctxA, nil, criteria)
	require.NoError(t, err)
	b, err := NewRandomFactorScorer(randsource.New(2)).ScoreFactors(ctxB, nil, criteria)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	pa, err := NewRandomPriceEstimator(randsource.New(1)).Estimate(ctxA, domain.CategoryCoin)
	require.NoError(t, err)
	pb, err := NewRandomPriceEstimator(randsource.New(2)).Estimate(ctxB, domain.CategoryCoin)
	require.NoError(t, err)
	assert.True(t, pa.Low.Equal(pb.Low) && pa.Mid.Equal(pb.Mid) && pa.High.Equal(pb.High))
}
