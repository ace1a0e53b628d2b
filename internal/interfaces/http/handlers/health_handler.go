package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskserve/pkg/logger"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelState reports whether a model is loaded and which one.
type ModelState interface {
	Ready() bool
	VersionID() string
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store   Pinger
	model   ModelState
	redis   Pinger
	timeout time.Duration
	log     logger.Logger
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when pointer
// publication is disabled.
func NewHealthHandler(store Pinger, model ModelState, redis Pinger, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		model:   model,
		redis:   redis,
		timeout: 2 * time.Second,
		log:     log.WithComponent("HealthHandler"),
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Checks the artifact store, the loaded model and optional redis.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	checks := h.performChecks(c.Request.Context())

	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":         status,
		"timestamp":      time.Now().UTC(),
		"checks":         checks,
		"active_version": h.model.VersionID(),
	})
}

// LivenessCheck only reports that the process is serving HTTP.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var wg sync.WaitGroup
	checks := make(map[string]string)
	mu := &sync.Mutex{}
	set := func(name, status string) {
		mu.Lock()
		checks[name] = status
		mu.Unlock()
	}

	checkers := map[string]Pinger{"database": h.store}
	if h.redis != nil {
		checkers["redis"] = h.redis
	}

	wg.Add(len(checkers))
	for name, p := range checkers {
		go func(name string, p Pinger) {
			defer wg.Done()
			status := "ok"
			if err := p.Ping(ctx); err != nil {
				h.log.Warn(ctx, "Health check failed", logger.Fields{"check": name, "error": err.Error()})
				status = "error: " + err.Error()
			}
			set(name, status)
		}(name, p)
	}
	wg.Wait()

	if h.model.Ready() {
		checks["model"] = "ok"
	} else {
		checks["model"] = "not loaded"
	}
	return checks
}

//Personal.AI order the ending
