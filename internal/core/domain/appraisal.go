package domain

import "github.com/shopspring/decimal"

type ConditionSummary struct {
	Grade string `json:"grade"`
	Notes string `json:"notes"`
}

// PriceEstimate is in whole Swedish kronor. Low <= Mid <= High always holds.
type PriceEstimate struct {
	Low     int64    `json:"low"`
	Mid     int64    `json:"mid"`
	High    int64    `json:"high"`
	Sources []string `json:"sources"`
}

// PriceRange is the unscaled output of a price estimator.
type PriceRange struct {
	Low     decimal.Decimal
	Mid     decimal.Decimal
	High    decimal.Decimal
	Sources []string
}

type AppraisalRecord struct {
	Category          Category         `json:"category"`
	Subcategory       string           `json:"subcategory"`
	Title             string           `json:"title"`
	MakerBrand        string           `json:"maker_brand"`
	YearOrPeriod      string           `json:"year_or_period"`
	SetOrModel        string           `json:"set_or_model"`
	Identifiers       []string         `json:"identifiers"`
	Condition         ConditionSummary `json:"condition"`
	AuthenticityFlags []string         `json:"authenticity_flags"`
	PriceEstimateSEK  PriceEstimate    `json:"price_estimate_SEK"`
	NextShots         []string         `json:"next_shots"`
	Confidence        float64          `json:"confidence"`
	DetectedText      []string         `json:"detected_text"`
	HasText           bool             `json:"has_text"`
}

// BatchItem is one entry of a batch appraisal; exactly one of Record and Error is set.
type BatchItem struct {
	Index  int              `json:"index"`
	Record *AppraisalRecord `json:"record,omitempty"`
	Error  string           `json:"error,omitempty"`
}
