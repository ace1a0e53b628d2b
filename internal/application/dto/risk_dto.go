package dto

import (
	"time"

	"github.com/turtacn/riskserve/internal/domain/models"
)

// PredictRequest is the body of POST /api/predict. Fields are pointers so that a
// present zero (BS=0) passes the required rule while a missing field does not.
type PredictRequest struct {
	Age         *float64 `json:"Age" binding:"required,gte=10,lte=90"`
	SystolicBP  *float64 `json:"SystolicBP" binding:"required,gte=50,lte=200"`
	DiastolicBP *float64 `json:"DiastolicBP" binding:"required,gte=30,lte=150"`
	BS          *float64 `json:"BS" binding:"required,gte=0,lte=20"`
	BodyTemp    *float64 `json:"BodyTemp" binding:"required,gte=90,lte=105"`
	HeartRate   *float64 `json:"HeartRate" binding:"required,gte=40,lte=150"`
}

// Features converts a bound request to the feature vector. Call only after binding succeeded.
func (r *PredictRequest) Features() models.PatientFeatures {
	return models.PatientFeatures{
		Age:         deref(r.Age),
		SystolicBP:  deref(r.SystolicBP),
		DiastolicBP: deref(r.DiastolicBP),
		BS:          deref(r.BS),
		BodyTemp:    deref(r.BodyTemp),
		HeartRate:   deref(r.HeartRate),
	}
}

// RetrainRequest is the body of POST /api/retrain.
type RetrainRequest struct {
	PredictRequest
	ActualRisk string `json:"ActualRisk" binding:"required"`
}

// PredictResponse is returned by POST /api/predict.
// Prediction repeats RiskLevel for the landing page script.
type PredictResponse struct {
	RiskLevel  string  `json:"risk_level"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"` // percent, 2 decimals
	RunID      string  `json:"run_id"`
}

// NewPredictResponse renders a prediction for the API.
func NewPredictResponse(p *models.Prediction) *PredictResponse {
	return &PredictResponse{
		RiskLevel:  p.RiskLevel.String(),
		Prediction: p.RiskLevel.String(),
		Confidence: p.ConfidencePercent(),
		RunID:      p.VersionID,
	}
}

// RetrainResponse is returned by POST /api/retrain once the correction is queued.
type RetrainResponse struct {
	Message      string `json:"message"`
	CorrectionID string `json:"correction_id,omitempty"`
}

// RetrainAcceptedMessage is the message returned for an accepted correction.
const RetrainAcceptedMessage = "Retraining request received. The model will be updated shortly."

// VersionResponse describes one registered model version.
type VersionResponse struct {
	VersionID  string             `json:"version_id"`
	ParentID   string             `json:"parent_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	Params     map[string]string  `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Correction bool               `json:"correction"` // produced by an operator correction
	Active     bool               `json:"active"`
}

// VersionListResponse is returned by GET /api/versions, oldest first.
type VersionListResponse struct {
	Experiment    string             `json:"experiment"`
	ActiveVersion string             `json:"active_version,omitempty"`
	Versions      []*VersionResponse `json:"versions"`
}

// NewVersionListResponse marks activeID among versions.
func NewVersionListResponse(experiment, activeID string, versions []*models.ModelVersion) *VersionListResponse {
	out := &VersionListResponse{
		Experiment:    experiment,
		ActiveVersion: activeID,
		Versions:      make([]*VersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		out.Versions = append(out.Versions, &VersionResponse{
			VersionID:  v.ID,
			ParentID:   v.ParentID,
			CreatedAt:  v.CreatedAt,
			Params:     v.Params,
			Metrics:    v.Metrics,
			Correction: v.IsCorrection(),
			Active:     v.ID == activeID,
		})
	}
	return out
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

//Personal.AI order the ending
