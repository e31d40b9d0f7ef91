package scanerrors

import "time"

// ScanError represents a persisted failed analysis. No patient record exists for it.
type ScanError struct {
	ID          int64     `json:"id"`
	PatientName string    `json:"patient_name"`
	Filename    string    `json:"filename,omitempty"`
	Stage       string    `json:"stage,omitempty"` // received | decoded | other
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
