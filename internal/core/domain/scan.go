package domain

import "time"

type ScanStatus string

const (
	ScanStatusCaptured  ScanStatus = "captured"
	ScanStatusAnalyzing ScanStatus = "analyzing"
	ScanStatusAppraised ScanStatus = "appraised"
	ScanStatusFailed    ScanStatus = "failed"
)

// Scan tracks one captured image through asynchronous appraisal.
type Scan struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	MimeType    string           `json:"mime_type"`
	StoragePath string           `json:"storage_path"`
	Status      ScanStatus       `json:"status"`
	Appraisal   *AppraisalRecord `json:"appraisal,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
