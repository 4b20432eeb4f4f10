package domain

// RawClassification is one ranked label from an image-classification backend.
type RawClassification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type CategoryResult struct {
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory"`
	Confidence  float64  `json:"confidence"`
	Fallback    bool     `json:"fallback,omitempty"`
}
