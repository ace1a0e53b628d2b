// Package handlers provides the HTTP handlers for the application.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskserve/internal/application/dto"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
	"github.com/turtacn/riskserve/pkg/utils"
)

// Predictor serves predictions from the active model.
type Predictor interface {
	Predict(ctx context.Context, features models.PatientFeatures) (*models.Prediction, error)
	// EnsureLoaded fails with a not-ready error while no version can be loaded.
	EnsureLoaded(ctx context.Context) error
}

// CorrectionQueue accepts corrections for asynchronous fine-tuning.
type CorrectionQueue interface {
	Enqueue(ctx context.Context, corr *models.Correction) error
}

// RiskHandler handles the predict and retrain endpoints.
type RiskHandler struct {
	predictor   Predictor
	corrections CorrectionQueue
	logger      logger.Logger
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(predictor Predictor, corrections CorrectionQueue, log logger.Logger) *RiskHandler {
	return &RiskHandler{
		predictor:   predictor,
		corrections: corrections,
		logger:      log.WithComponent("RiskHandler"),
	}
}

// Predict handles POST /api/predict.
func (h *RiskHandler) Predict(c *gin.Context) {
	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.Validation("invalid prediction request", utils.ValidationDetails(err)))
		return
	}

	prediction, err := h.predictor.Predict(c.Request.Context(), req.Features())
	if err != nil {
		if errors.ShouldLogError(err) {
			h.logger.Error(c.Request.Context(), "Prediction failed", err)
		}
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, dto.NewPredictResponse(prediction))
}

// Retrain handles POST /api/retrain. The label and model readiness are checked before
// the correction is queued; fine-tuning happens after the response is sent.
func (h *RiskHandler) Retrain(c *gin.Context) {
	var req dto.RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.Validation("invalid retrain request", utils.ValidationDetails(err)))
		return
	}

	corr, err := models.NewCorrection(req.Features(), req.ActualRisk)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Rejected correction", logger.Fields{"label": req.ActualRisk})
		dto.SendError(c, err)
		return
	}

	// a correction needs a parent version to fine-tune
	if err := h.predictor.EnsureLoaded(c.Request.Context()); err != nil {
		h.logger.Warn(c.Request.Context(), "Correction rejected, no model loaded", logger.Fields{"correction_id": corr.ID})
		dto.SendError(c, err)
		return
	}

	if err := h.corrections.Enqueue(c.Request.Context(), corr); err != nil {
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, &dto.RetrainResponse{
		Message:      dto.RetrainAcceptedMessage,
		CorrectionID: corr.ID,
	})
}

//Personal.AI order the ending
