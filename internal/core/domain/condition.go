package domain

type GradeThreshold struct {
	Grade    string  `json:"grade" yaml:"grade"`
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// FactorRule attaches a note to a factor whose score falls below Below.
type FactorRule struct {
	Factor string  `json:"factor" yaml:"factor"`
	Below  float64 `json:"below" yaml:"below"`
	Note   string  `json:"note" yaml:"note"`
}

// GradingCriteria is the category-specific grading configuration.
// Factors, Weights and Spread are parallel slices; Thresholds are ordered by descending MinScore.
type GradingCriteria struct {
	Category                   Category         `json:"category" yaml:"category"`
	Factors                    []string         `json:"factors" yaml:"factors"`
	Weights                    []float64        `json:"weights" yaml:"weights"`
	Spread                     []float64        `json:"spread" yaml:"spread"`
	Thresholds                 []GradeThreshold `json:"thresholds" yaml:"thresholds"`
	Defects                    []FactorRule     `json:"defects" yaml:"defects"`
	Recommendations            []string         `json:"recommendations" yaml:"recommendations"`
	ConditionalRecommendations []FactorRule     `json:"conditional_recommendations" yaml:"conditional_recommendations"`
	Explanation                string           `json:"explanation" yaml:"explanation"`
}

type ConditionAnalysis struct {
	Grade           string             `json:"grade"`
	Score           int                `json:"score"`
	Factors         map[string]float64 `json:"factors"`
	Defects         []string           `json:"defects"`
	Recommendations []string           `json:"recommendations"`
}

const (
	UnknownGrade          = "Unknown"
	NeutralConditionScore = 70
)

// NeutralCondition is substituted when grading cannot run.
func NeutralCondition(factors []string) ConditionAnalysis {
	values := make(map[string]float64, len(factors))
	for _, name := range factors {
		values[name] = NeutralConditionScore
	}
	return ConditionAnalysis{
		Grade:           UnknownGrade,
		Score:           NeutralConditionScore,
		Factors:         values,
		Defects:         []string{},
		Recommendations: []string{},
	}
}
