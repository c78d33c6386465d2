package domain

import (
	"encoding/json"
	"time"
)

// PatientRecord 患者文档模型（对应 patients 表）
// The full source document lives in Doc; EGFR and Smokes are extracted into
// columns so the candidate pool can be pre-filtered in SQL.
type PatientRecord struct {
	// Primary key
	PatientID string `db:"patient_id"` // UUID or dataset row id

	// Owning user for form-submitted records; empty for dataset rows
	UserID string `db:"user_id"` // nullable, UNIQUE when set

	// Provenance: "dataset" | "form"
	Source string `db:"source"`

	// Full source document (flat dataset row or nested vitals/lifestyle shape)
	Doc json.RawMessage `db:"doc"` // JSONB, NOT NULL

	// Extracted for pool filtering; nil when the document carries no value
	EGFR   *float64 `db:"egfr"`
	Smokes *bool    `db:"smokes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LabSubmission is one lab-value form post from a signed-in user.
type LabSubmission struct {
	EGFR       *float64 `json:"egfr"`
	BMI        *float64 `json:"bmi"`
	Hemoglobin *float64 `json:"hemoglobin"`
	Diabetic   *bool    `json:"diabetic"`
	HighBP     *bool    `json:"highBP"`
	Smokes     *bool    `json:"smokes"`
	Diagnosis  string   `json:"diagnosis"`
}
