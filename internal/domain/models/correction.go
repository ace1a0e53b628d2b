package models

import (
	"time"

	"github.com/google/uuid"
)

// Correction is an operator-asserted label for one feature vector.
// It is consumed once by the fine-tune step and retained only through the
// parameters of the version it produced.
type Correction struct {
	ID          string          `json:"correction_id"`
	Features    PatientFeatures `json:"features"`
	Label       RiskLevel       `json:"-"`
	RawLabel    string          `json:"label"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// NewCorrection parses the label and stamps the correction with a fresh id.
func NewCorrection(features PatientFeatures, label string) (*Correction, error) {
	level, err := ParseRiskLevel(label)
	if err != nil {
		return nil, err
	}
	return &Correction{
		ID:          uuid.NewString(),
		Features:    features,
		Label:       level,
		RawLabel:    label,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

//Personal.AI order the ending
