package domain

type BoundingBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// TextToken is a recognized word. Confidence is on a 0-100 scale.
type TextToken struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bbox"`
}

type OCRResult struct {
	FullText   string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Tokens     []TextToken `json:"words"`
}

// OCRSettings configures a text recognizer at initialization time.
type OCRSettings struct {
	Languages        []string
	CharWhitelist    string
	SegmentationMode string
}

// ExtractedTextBuckets holds deduplicated token texts in first-occurrence order.
type ExtractedTextBuckets struct {
	Identifiers []string `json:"identifiers"`
	Dates       []string `json:"dates"`
	Signatures  []string `json:"signatures"`
	Numbers     []string `json:"numbers"`
	Brands      []string `json:"brands"`
}

func EmptyTextBuckets() ExtractedTextBuckets {
	return ExtractedTextBuckets{
		Identifiers: []string{},
		Dates:       []string{},
		Signatures:  []string{},
		Numbers:     []string{},
		Brands:      []string{},
	}
}

type TextExtraction struct {
	ExtractedTextBuckets
	DetectedText []string `json:"detected_text"`
}

func EmptyTextExtraction() TextExtraction {
	return TextExtraction{
		ExtractedTextBuckets: EmptyTextBuckets(),
		DetectedText:         []string{},
	}
}
