package usecase

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

var hundred = decimal.NewFromInt(100)

// ScalePriceRange scales a range by conditionScore/100, rounds to whole kronor
// and orders the result so that Low <= Mid <= High.
func ScalePriceRange(r domain.PriceRange, conditionScore int) domain.PriceEstimate {
	if conditionScore < 0 {
		conditionScore = 0
	}
	factor := decimal.NewFromInt(int64(conditionScore)).Div(hundred)
	return orderedEstimate(
		r.Low.Mul(factor),
		r.Mid.Mul(factor),
		r.High.Mul(factor),
		r.Sources,
	)
}

// UnscaledPriceRange rounds and orders a range without applying condition.
func UnscaledPriceRange(r domain.PriceRange) domain.PriceEstimate {
	return orderedEstimate(r.Low, r.Mid, r.High, r.Sources)
}

func orderedEstimate(low, mid, high decimal.Decimal, sources []string) domain.PriceEstimate {
	values := []int64{
		nonNegativeKronor(low),
		nonNegativeKronor(mid),
		nonNegativeKronor(high),
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	out := make([]string, len(sources))
	copy(out, sources)
	return domain.PriceEstimate{
		Low:     values[0],
		Mid:     values[1],
		High:    values[2],
		Sources: out,
	}
}

func nonNegativeKronor(v decimal.Decimal) int64 {
	if v.IsNegative() {
		return 0
	}
	return v.Round(0).IntPart()
}
