package models

import (
	"strconv"
	"time"

	"github.com/turtacn/riskserve/pkg/constants"
)

// ModelVersion is an immutable, registered (network, scaler) pair.
// ModelVersion 是一个不可变的已注册（网络，缩放器）对。
type ModelVersion struct {
	// ID is the time-ordered version identifier. Lexical order equals creation order.
	ID string `json:"version_id"`

	// Experiment is the namespace the version was registered under.
	Experiment string `json:"experiment"`

	// ParentID is the version a correction was fine-tuned from; empty for initial training.
	ParentID string `json:"parent_version,omitempty"`

	// CreatedAt is the registration time in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Params records how the version was produced.
	Params map[string]string `json:"params,omitempty"`

	// Metrics records the final training metrics.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// NewerThan reports whether v was registered after the version with id other.
// Every version is newer than the empty id.
func (v *ModelVersion) NewerThan(other string) bool {
	return VersionNewer(v.ID, other)
}

// IsCorrection reports whether the version came from an operator correction.
func (v *ModelVersion) IsCorrection() bool {
	return v.Params[constants.ParamEvent] == constants.EventUserCorrection
}

// VersionNewer compares two version ids. Ids are fixed-width timestamps so a string
// comparison gives registration order.
func VersionNewer(a, b string) bool {
	return a > b
}

// FormatVersionID renders t as a version id.
func FormatVersionID(t time.Time) string {
	return t.UTC().Format(constants.VersionIDLayout)
}

// ParseVersionID is the inverse of FormatVersionID.
func ParseVersionID(id string) (time.Time, error) {
	return time.Parse(constants.VersionIDLayout, id)
}

// FormatFloatParam renders a numeric parameter the way it is stored.
func FormatFloatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

//Personal.AI order the ending
