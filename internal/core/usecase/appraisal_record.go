package usecase

import (
	"math"
	"strings"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

const (
	fusionConfidenceDiscount = 0.9
	fusionConfidenceCap      = 0.9
	maxRecordIdentifiers     = 10

	lastResortTitle       = "Identified item"
	genericTitle          = "Collectible item"
	shotPrintedText       = "Photograph any printed text or maker marks in focus"
	flagEditionCheck      = "Verify edition markings; high-value variants are often counterfeited"
	flagSignature         = "Possible signature detected; verify authenticity before valuation"
	flagCategoryUncertain = "Category uncertain; confirm manually"
)

var categoryTitles = map[domain.Category]string{
	domain.CategoryCards:            "Identified card",
	domain.CategoryPorcelain:        "Porcelain item",
	domain.CategoryCoin:             "Coin/medal",
	domain.CategoryStamp:            "Stamp",
	domain.CategoryToy:              "Toy/figure",
	domain.CategoryComic:            "Comic book",
	domain.CategoryRetroElectronics: "Retro electronics",
}

func buildRecord(
	category domain.CategoryResult,
	text domain.TextExtraction,
	condition domain.ConditionAnalysis,
	price domain.PriceEstimate,
) *domain.AppraisalRecord {
	brand := first(text.Brands)
	year := first(text.Dates)

	return &domain.AppraisalRecord{
		Category:     category.Category,
		Subcategory:  category.Subcategory,
		Title:        buildTitle(category.Category, brand, year),
		MakerBrand:   brand,
		YearOrPeriod: year,
		SetOrModel:   setOrModel(text.ExtractedTextBuckets),
		Identifiers:  collectIdentifiers(text.ExtractedTextBuckets),
		Condition: domain.ConditionSummary{
			Grade: condition.Grade,
			Notes: ConditionNotes(condition),
		},
		AuthenticityFlags: authenticityFlags(category, text.ExtractedTextBuckets),
		PriceEstimateSEK:  price,
		NextShots:         nextShots(condition, text),
		Confidence:        fusionConfidence(category.Confidence),
		DetectedText:      nonNil(text.DetectedText),
		HasText:           len(text.Identifiers) > 0 || len(text.Numbers) > 0,
	}
}

func buildTitle(category domain.Category, brand, year string) string {
	title, ok := categoryTitles[category]
	if !ok {
		title = genericTitle
	}
	if brand != "" {
		title += " - " + brand
	}
	if year != "" {
		title += " (" + year + ")"
	}
	return title
}

// collectIdentifiers orders buckets by relevance: identifiers, numbers, dates, brands. A value
// filed in two buckets takes two slots.
func collectIdentifiers(b domain.ExtractedTextBuckets) []string {
	out := make([]string, 0, maxRecordIdentifiers)
	for _, bucket := range [][]string{b.Identifiers, b.Numbers, b.Dates, b.Brands} {
		for _, v := range bucket {
			if len(out) == maxRecordIdentifiers {
				return out
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

func setOrModel(b domain.ExtractedTextBuckets) string {
	for _, id := range b.Identifiers {
		if cardNumberPattern.MatchString(strings.ToUpper(id)) {
			return id
		}
	}
	return first(b.Numbers)
}

func authenticityFlags(category domain.CategoryResult, b domain.ExtractedTextBuckets) []string {
	flags := make([]string, 0, 3)
	if category.Category == domain.CategoryCards && hasEditionMarking(b.Identifiers) {
		flags = append(flags, flagEditionCheck)
	}
	if len(b.Signatures) > 0 {
		flags = append(flags, flagSignature)
	}
	if category.Fallback {
		flags = append(flags, flagCategoryUncertain)
	}
	return flags
}

func hasEditionMarking(identifiers []string) bool {
	for _, id := range identifiers {
		upper := strings.ToUpper(id)
		if strings.Contains(upper, "SHADOWLESS") ||
			strings.Contains(upper, "1ST") ||
			strings.Contains(upper, "FIRST") {
			return true
		}
	}
	return false
}

func nextShots(condition domain.ConditionAnalysis, text domain.TextExtraction) []string {
	shots := make([]string, 0, len(condition.Recommendations)+1)
	shots = append(shots, condition.Recommendations...)
	if len(text.DetectedText) == 0 {
		shots = append(shots, shotPrintedText)
	}
	return shots
}

func fusionConfidence(classifierConfidence float64) float64 {
	if math.IsNaN(classifierConfidence) || classifierConfidence <= 0 {
		return 0
	}
	return math.Min(classifierConfidence*fusionConfidenceDiscount, fusionConfidenceCap)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
