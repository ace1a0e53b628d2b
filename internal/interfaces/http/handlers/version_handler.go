package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskserve/internal/application/dto"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/pkg/logger"
)

// VersionLister lists registered model versions.
type VersionLister interface {
	ListVersions(ctx context.Context) ([]*models.ModelVersion, error)
}

// ActiveVersion reports the version currently serving predictions.
type ActiveVersion interface {
	VersionID() string
}

// VersionHandler exposes the version history with params and metrics.
type VersionHandler struct {
	versions   VersionLister
	active     ActiveVersion
	experiment string
	logger     logger.Logger
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(versions VersionLister, active ActiveVersion, experiment string, log logger.Logger) *VersionHandler {
	return &VersionHandler{
		versions:   versions,
		active:     active,
		experiment: experiment,
		logger:     log.WithComponent("VersionHandler"),
	}
}

// ListVersions handles GET /api/versions.
func (h *VersionHandler) ListVersions(c *gin.Context) {
	versions, err := h.versions.ListVersions(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to list versions", err)
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.NewVersionListResponse(h.experiment, h.active.VersionID(), versions))
}

//Personal.AI order the ending
