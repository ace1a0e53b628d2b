package models

import (
	"strings"

	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
)

// RiskLevel is the classifier output class.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMid
	RiskHigh
)

var riskLabels = [constants.NumRiskClasses]string{
	constants.RiskLabelLow,
	constants.RiskLabelMid,
	constants.RiskLabelHigh,
}

// AllRiskLevels lists the classes in index order.
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMid, RiskHigh}
}

// String returns the human label, e.g. "high risk".
func (r RiskLevel) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return riskLabels[r]
}

// Index returns the output-layer index of the class.
func (r RiskLevel) Index() int { return int(r) }

// Valid reports whether r is one of the known classes.
func (r RiskLevel) Valid() bool {
	return r >= RiskLow && r <= RiskHigh
}

// RiskLevelFromIndex maps an output-layer index to its class.
func RiskLevelFromIndex(i int) (RiskLevel, bool) {
	r := RiskLevel(i)
	return r, r.Valid()
}

// ParseRiskLevel accepts a label in any letter case with surrounding whitespace.
// Unknown labels yield an ErrUnknownLabel error.
func ParseRiskLevel(label string) (RiskLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	for i, l := range riskLabels {
		if l == normalized {
			return RiskLevel(i), nil
		}
	}
	return 0, errors.UnknownLabel(label)
}

//Personal.AI order the ending
