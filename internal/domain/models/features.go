// Package models defines the domain models for the risk serving service.
// This file contains the patient feature contract shared by training and serving.
package models

import (
	"fmt"

	"github.com/turtacn/riskserve/pkg/errors"
)

// FeatureNames is the fixed column order of the classifier input.
// FeatureNames 是分类器输入的固定列顺序。
var FeatureNames = []string{"Age", "SystolicBP", "DiastolicBP", "BS", "BodyTemp", "HeartRate"}

// NumFeatures is the width of the classifier input layer.
const NumFeatures = 6

// FeatureRange is an inclusive bound for one feature.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range.
func (r FeatureRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FeatureRanges are the accepted request ranges. They are enforced at the request
// boundary only; training data is not range checked.
// FeatureRanges 是请求边界上接受的取值范围。
var FeatureRanges = map[string]FeatureRange{
	"Age":         {Min: 10, Max: 90},
	"SystolicBP":  {Min: 50, Max: 200},
	"DiastolicBP": {Min: 30, Max: 150},
	"BS":          {Min: 0, Max: 20},
	"BodyTemp":    {Min: 90, Max: 105},
	"HeartRate":   {Min: 40, Max: 150},
}

// PatientFeatures is one vital-signs observation.
// PatientFeatures 是一次生命体征观测。
type PatientFeatures struct {
	// Age in years.
	Age float64 `json:"Age"`

	// SystolicBP is the systolic blood pressure in mmHg.
	SystolicBP float64 `json:"SystolicBP"`

	// DiastolicBP is the diastolic blood pressure in mmHg.
	DiastolicBP float64 `json:"DiastolicBP"`

	// BS is the blood sugar level in mmol/L.
	BS float64 `json:"BS"`

	// BodyTemp is the body temperature in Fahrenheit.
	BodyTemp float64 `json:"BodyTemp"`

	// HeartRate in beats per minute.
	HeartRate float64 `json:"HeartRate"`
}

// Vector returns the features in FeatureNames order.
func (f PatientFeatures) Vector() []float64 {
	return []float64{f.Age, f.SystolicBP, f.DiastolicBP, f.BS, f.BodyTemp, f.HeartRate}
}

// FeaturesFromVector is the inverse of Vector.
func FeaturesFromVector(v []float64) (PatientFeatures, error) {
	if len(v) != NumFeatures {
		return PatientFeatures{}, errors.Validation(
			fmt.Sprintf("expected %d features, got %d", NumFeatures, len(v)), nil)
	}
	return PatientFeatures{
		Age:         v[0],
		SystolicBP:  v[1],
		DiastolicBP: v[2],
		BS:          v[3],
		BodyTemp:    v[4],
		HeartRate:   v[5],
	}, nil
}

// Validate checks every feature against FeatureRanges and reports all violations at once.
func (f PatientFeatures) Validate() error {
	violations := make(map[string]string)
	for i, v := range f.Vector() {
		name := FeatureNames[i]
		r := FeatureRanges[name]
		if !r.Contains(v) {
			violations[name] = fmt.Sprintf("must be between %g and %g", r.Min, r.Max)
		}
	}
	if len(violations) > 0 {
		return errors.Validation("feature values out of range", violations)
	}
	return nil
}

//Personal.AI order the ending
