// Package heuristics holds placeholder condition and price models. They stand in for real
// defect detection and market data and are seeded so runs can be reproduced.
package heuristics

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/randsource"
)

const (
	baseScoreMin    = 70.0
	baseScoreRange  = 25.0
	fallbackSpread  = 20.0
	heuristicSource = "heuristic"
)

// RandomFactorScorer draws one shared base score per image and jitters each factor around it
// by the factor's spread.
type RandomFactorScorer struct {
	rng randsource.Source
}

func NewRandomFactorScorer(rng randsource.Source) *RandomFactorScorer {
	return &RandomFactorScorer{rng: rng}
}

func (s *RandomFactorScorer) ScoreFactors(ctx context.Context, _ *domain.Image, criteria domain.GradingCriteria) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := randsource.FromContext(ctx, s.rng)
	base := baseScoreMin + rng.Float64()*baseScoreRange
	scores := make([]float64, len(criteria.Factors))
	for i := range scores {
		spread := fallbackSpread
		if i < len(criteria.Spread) && criteria.Spread[i] > 0 {
			spread = criteria.Spread[i]
		}
		scores[i] = math.Min(100, math.Max(0, base+(rng.Float64()-0.5)*spread))
	}
	return scores, nil
}

type priceBand struct {
	min, width int
}

// RandomPriceEstimator draws low, mid and high independently from fixed SEK bands.
type RandomPriceEstimator struct {
	rng            randsource.Source
	low, mid, high priceBand
}

func NewRandomPriceEstimator(rng randsource.Source) *RandomPriceEstimator {
	return &RandomPriceEstimator{
		rng:  rng,
		low:  priceBand{min: 100, width: 1000},
		mid:  priceBand{min: 500, width: 2000},
		high: priceBand{min: 1000, width: 5000},
	}
}

func (e *RandomPriceEstimator) Estimate(ctx context.Context, _ domain.Category) (domain.PriceRange, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceRange{}, err
	}
	rng := randsource.FromContext(ctx, e.rng)
	return domain.PriceRange{
		Low:     draw(rng, e.low),
		Mid:     draw(rng, e.mid),
		High:    draw(rng, e.high),
		Sources: []string{heuristicSource},
	}, nil
}

func draw(rng randsource.Source, b priceBand) decimal.Decimal {
	return decimal.NewFromInt(int64(b.min + rng.IntN(b.width)))
}
