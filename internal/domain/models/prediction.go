package models

import "math"

// Prediction is the result of one forward pass.
type Prediction struct {
	RiskLevel     RiskLevel `json:"risk_level"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
	VersionID     string    `json:"version_id"`
}

// ConfidencePercent returns the confidence as a percentage rounded to two decimals.
func (p *Prediction) ConfidencePercent() float64 {
	return math.Round(p.Confidence*100*100) / 100
}

// Probability returns the probability assigned to r, 0 when r is out of range.
func (p *Prediction) Probability(r RiskLevel) float64 {
	if !r.Valid() || r.Index() >= len(p.Probabilities) {
		return 0
	}
	return p.Probabilities[r.Index()]
}
