package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/infrastructure/monitoring"
	"github.com/turtacn/riskserve/internal/interfaces/http/handlers"
	"github.com/turtacn/riskserve/pkg/logger"
)

type stubModel struct{}

func (stubModel) Ready() bool       { return true }
func (stubModel) VersionID() string { return "20260101T000000.000000000Z" }

func (stubModel) Predict(context.Context, models.PatientFeatures) (*models.Prediction, error) {
	return &models.Prediction{RiskLevel: models.RiskLow, Confidence: 0.9, VersionID: "20260101T000000.000000000Z"}, nil
}

func (stubModel) EnsureLoaded(context.Context) error { return nil }

func (stubModel) Enqueue(context.Context, *models.Correction) error { return nil }

func (stubModel) ListVersions(context.Context) ([]*models.ModelVersion, error) {
	return []*models.ModelVersion{{ID: "20260101T000000.000000000Z"}}, nil
}

func (stubModel) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, mutate func(*config.Config)) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Environment: "production"},
		Auth:   config.AuthConfig{Enabled: true, HMACSecret: "s3cret", Issuer: "riskserve"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNoopLogger()
	m := stubModel{}
	page, err := handlers.NewPageHandler(m, log)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(cfg, log, Handlers{
		Health:   handlers.NewHealthHandler(m, m, nil, log),
		Risk:     handlers.NewRiskHandler(m, m, log),
		Versions: handlers.NewVersionHandler(m, m, "maternal_health_risk", log),
		Page:     page,
	}, monitoring.NewMetrics(reg), reg, noop.NewTracerProvider().Tracer("test"), nil)
}

func do(r *Router, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.Handler().ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/versions", "").Code)

	predict := do(r, http.MethodPost, "/api/predict",
		`{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86}`)
	assert.Equal(t, http.StatusOK, predict.Code)
	assert.NotEmpty(t, predict.Header().Get("X-Request-ID"))

	// retrain requires an operator token
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/retrain", `{}`).Code)

	notFound := do(r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Contains(t, notFound.Body.String(), "not_found")

	metrics := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "riskserve_http_requests_total")

	// pprof is only mounted outside production
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/debug/pprof/", "").Code)
}

func TestRouter_RetrainWithoutAuth(t *testing.T) {
	r := newTestRouter(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = false
		cfg.Server.Environment = "development"
	})

	w := do(r, http.MethodPost, "/api/retrain",
		`{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86,"ActualRisk":"mid risk"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/debug/pprof/", "").Code)
}
