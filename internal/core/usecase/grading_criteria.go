package usecase

import "github.com/kirillkom/collector-appraisal/internal/core/domain"

const defaultFactorSpread = 20.0

// defaultGradingCriteria is the built-in grading table. Unknown categories use the cards entry.
var defaultGradingCriteria = map[domain.Category]domain.GradingCriteria{
	domain.CategoryCards: {
		Category: domain.CategoryCards,
		Factors:  []string{"corners", "edges", "surface", "centering"},
		Weights:  []float64{1.2, 1.0, 1.3, 0.8},
		Spread:   []float64{20, 15, 10, 25},
		Thresholds: []domain.GradeThreshold{
			{Grade: "Mint", MinScore: 95},
			{Grade: "NM", MinScore: 85},
			{Grade: "EX", MinScore: 70},
			{Grade: "VG", MinScore: 55},
			{Grade: "G", MinScore: 35},
			{Grade: "Poor", MinScore: 0},
		},
		Defects: []domain.FactorRule{
			{Factor: "corners", Below: 80, Note: "Light corner wear visible"},
			{Factor: "edges", Below: 75, Note: "Minimal edge wear"},
			{Factor: "surface", Below: 85, Note: "Very light surface marks"},
			{Factor: "centering", Below: 70, Note: "Slightly off-center"},
		},
		Recommendations: []string{
			"Take close-ups of all four corners",
			"Photograph in indirect light for best results",
		},
		ConditionalRecommendations: []domain.FactorRule{
			{Factor: "surface", Below: 85, Note: "Check for print defects or damage under magnification"},
		},
		Explanation: "Graded on corners, edges, surface and centering following trading card industry practice.",
	},
	domain.CategoryPorcelain: {
		Category: domain.CategoryPorcelain,
		Factors:  []string{"chips", "cracks", "staining", "glaze"},
		Weights:  []float64{1.5, 1.3, 1.0, 0.7},
		Spread:   []float64{30, 25, 20, 15},
		Thresholds: []domain.GradeThreshold{
			{Grade: "Perfect", MinScore: 95},
			{Grade: "Excellent", MinScore: 85},
			{Grade: "Very Good", MinScore: 70},
			{Grade: "Good", MinScore: 55},
			{Grade: "Fair", MinScore: 35},
			{Grade: "Poor", MinScore: 0},
		},
		Defects: []domain.FactorRule{
			{Factor: "chips", Below: 85, Note: "Very small chips on the rim"},
			{Factor: "cracks", Below: 80, Note: "Hairline cracks in the glaze"},
			{Factor: "staining", Below: 75, Note: "Light discoloration"},
		},
		Recommendations: []string{
			"Examine the underside for maker's marks",
			"Check for hairline cracks under strong light",
		},
		ConditionalRecommendations: []domain.FactorRule{
			{Factor: "glaze", Below: 70, Note: "Photograph the glaze at an angle to show crazing"},
		},
		Explanation: "Graded on chips, cracks, staining and glaze following antiques trade practice.",
	},
	domain.CategoryCoin: {
		Category: domain.CategoryCoin,
		Factors:  []string{"wear", "luster", "scratches", "toning"},
		Weights:  []float64{1.1, 1.2, 1.4, 0.8},
		Spread:   []float64{20, 20, 20, 20},
		Thresholds: []domain.GradeThreshold{
			{Grade: "MS70", MinScore: 98},
			{Grade: "MS69", MinScore: 95},
			{Grade: "MS68", MinScore: 90},
			{Grade: "MS67", MinScore: 85},
			{Grade: "MS66", MinScore: 80},
			{Grade: "MS65", MinScore: 75},
			{Grade: "AU", MinScore: 60},
			{Grade: "XF", MinScore: 45},
			{Grade: "VF", MinScore: 30},
			{Grade: "F", MinScore: 15},
			{Grade: "G", MinScore: 0},
		},
		Defects: []domain.FactorRule{
			{Factor: "wear", Below: 80, Note: "Light wear on high points"},
			{Factor: "scratches", Below: 75, Note: "A few very small marks"},
			{Factor: "toning", Below: 70, Note: "Uneven toning"},
		},
		Recommendations: []string{
			"Photograph obverse and reverse separately",
			"Use raking light to reveal wear on high points",
		},
		ConditionalRecommendations: []domain.FactorRule{
			{Factor: "luster", Below: 70, Note: "Do not clean the coin before grading"},
		},
		Explanation: "Graded on the Sheldon scale from wear, luster and general surface condition.",
	},
	domain.CategoryStamp: {
		Category: domain.CategoryStamp,
		Factors:  []string{"perforations", "centering", "gum", "cancellation"},
		Weights:  []float64{1.0, 1.0, 1.0, 1.0},
		Spread:   []float64{20, 20, 20, 20},
		Thresholds: []domain.GradeThreshold{
			{Grade: "Superb", MinScore: 95},
			{Grade: "XF", MinScore: 85},
			{Grade: "VF", MinScore: 70},
			{Grade: "F", MinScore: 55},
			{Grade: "VG", MinScore: 40},
			{Grade: "G", MinScore: 20},
			{Grade: "Poor", MinScore: 0},
		},
		Defects: []domain.FactorRule{
			{Factor: "perforations", Below: 75, Note: "Short or pulled perforations"},
			{Factor: "centering", Below: 70, Note: "Design noticeably off-center"},
			{Factor: "gum", Below: 70, Note: "Disturbed or missing gum"},
		},
		Recommendations: []string{
			"Photograph the back to show gum and hinge marks",
		},
		ConditionalRecommendations: []domain.FactorRule{
			{Factor: "cancellation", Below: 70, Note: "Capture the full cancellation for dating"},
		},
		Explanation: "Graded on perforations, centering, gum and any cancellation.",
	},
}

const genericGradingExplanation = "General condition assessment."

// DefaultGradingCriteria returns a copy of the built-in grading table.
func DefaultGradingCriteria() map[domain.Category]domain.GradingCriteria {
	out := make(map[domain.Category]domain.GradingCriteria, len(defaultGradingCriteria))
	for k, v := range defaultGradingCriteria {
		out[k] = v
	}
	return out
}
