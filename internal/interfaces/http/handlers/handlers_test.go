package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/application/dto"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePredictor struct {
	got        models.PatientFeatures
	prediction *models.Prediction
	err        error
	notReady   bool
}

func (f *fakePredictor) EnsureLoaded(context.Context) error {
	if f.notReady {
		return errors.NotReady("no model version has been registered")
	}
	return nil
}

func (f *fakePredictor) Predict(_ context.Context, features models.PatientFeatures) (*models.Prediction, error) {
	f.got = features
	return f.prediction, f.err
}

type fakeQueue struct {
	queued []*models.Correction
	err    error
}

func (f *fakeQueue) Enqueue(_ context.Context, corr *models.Correction) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, corr)
	return nil
}

type fakeModel struct {
	id string
}

func (f fakeModel) Ready() bool       { return f.id != "" }
func (f fakeModel) VersionID() string { return f.id }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeVersions struct {
	versions []*models.ModelVersion
	err      error
}

func (f fakeVersions) ListVersions(context.Context) ([]*models.ModelVersion, error) {
	return f.versions, f.err
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const validBody = `{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86}`

func riskRouter(p Predictor, q CorrectionQueue) *gin.Engine {
	h := NewRiskHandler(p, q, logger.NewNoopLogger())
	router := gin.New()
	router.POST("/api/predict", h.Predict)
	router.POST("/api/retrain", h.Retrain)
	return router
}

func TestRiskHandler_Predict(t *testing.T) {
	t.Run("returns the risk level and confidence", func(t *testing.T) {
		p := &fakePredictor{prediction: &models.Prediction{
			RiskLevel:     models.RiskHigh,
			Confidence:    0.87654,
			Probabilities: []float64{0.1, 0.02346, 0.87654},
			VersionID:     "20260101T000000.000000000Z",
		}}
		w := postJSON(riskRouter(p, &fakeQueue{}), "/api/predict", validBody)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.PredictResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "high risk", resp.RiskLevel)
		assert.Equal(t, resp.RiskLevel, resp.Prediction)
		assert.InDelta(t, 87.65, resp.Confidence, 1e-9)
		assert.Equal(t, "20260101T000000.000000000Z", resp.RunID)
		assert.Equal(t, 15.0, p.got.BS)
		assert.Equal(t, 86.0, p.got.HeartRate)
	})

	t.Run("zero blood sugar is a valid value", func(t *testing.T) {
		p := &fakePredictor{prediction: &models.Prediction{RiskLevel: models.RiskLow, Confidence: 1, VersionID: "v"}}
		body := `{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":0,"BodyTemp":98,"HeartRate":86}`
		assert.Equal(t, http.StatusOK, postJSON(riskRouter(p, &fakeQueue{}), "/api/predict", body).Code)
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing field", `{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98}`, "HeartRate"},
		{"below range", `{"Age":5,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86}`, "Age"},
		{"above range", `{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":120,"HeartRate":86}`, "BodyTemp"},
		{"wrong type", `{"Age":"old","SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86}`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePredictor{}
			w := postJSON(riskRouter(p, &fakeQueue{}), "/api/predict", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, errors.CodeValidation, resp.Code)
			fields, ok := resp.Metadata["fields"].(map[string]interface{})
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}

	t.Run("no model loaded", func(t *testing.T) {
		p := &fakePredictor{err: errors.NotReady("no model version registered")}
		w := postJSON(riskRouter(p, &fakeQueue{}), "/api/predict", validBody)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, errors.CodeNotReady, decodeError(t, w).Code)
	})

	t.Run("unexpected failure", func(t *testing.T) {
		p := &fakePredictor{err: goerrors.New("boom")}
		w := postJSON(riskRouter(p, &fakeQueue{}), "/api/predict", validBody)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRiskHandler_Retrain(t *testing.T) {
	withLabel := func(label string) string {
		return `{"Age":25,"SystolicBP":130,"DiastolicBP":80,"BS":15,"BodyTemp":98,"HeartRate":86,"ActualRisk":"` + label + `"}`
	}

	t.Run("queues the correction", func(t *testing.T) {
		q := &fakeQueue{}
		w := postJSON(riskRouter(&fakePredictor{}, q), "/api/retrain", withLabel(" High Risk "))
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.RetrainResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.RetrainAcceptedMessage, resp.Message)
		require.Len(t, q.queued, 1)
		assert.Equal(t, q.queued[0].ID, resp.CorrectionID)
		assert.Equal(t, models.RiskHigh, q.queued[0].Label)
		assert.Equal(t, 25.0, q.queued[0].Features.Age)
	})

	t.Run("unknown label", func(t *testing.T) {
		q := &fakeQueue{}
		w := postJSON(riskRouter(&fakePredictor{}, q), "/api/retrain", withLabel("very high risk"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.CodeUnknownLabel, decodeError(t, w).Code)
		assert.Empty(t, q.queued)
	})

	t.Run("missing label", func(t *testing.T) {
		w := postJSON(riskRouter(&fakePredictor{}, &fakeQueue{}), "/api/retrain", validBody)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("no model loaded", func(t *testing.T) {
		q := &fakeQueue{}
		w := postJSON(riskRouter(&fakePredictor{notReady: true}, q), "/api/retrain", withLabel("mid risk"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, errors.CodeNotReady, decodeError(t, w).Code)
		assert.Empty(t, q.queued)
	})

	t.Run("queue full", func(t *testing.T) {
		q := &fakeQueue{err: errors.QueueFull(8)}
		w := postJSON(riskRouter(&fakePredictor{}, q), "/api/retrain", withLabel("low risk"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, errors.CodeCorrectionQueued, decodeError(t, w).Code)
	})
}

func TestVersionHandler_ListVersions(t *testing.T) {
	now := time.Now().UTC()
	versions := fakeVersions{versions: []*models.ModelVersion{
		{ID: "20260101T000000.000000000Z", CreatedAt: now, Params: map[string]string{"event": "initial_training"}},
		{ID: "20260102T000000.000000000Z", ParentID: "20260101T000000.000000000Z", CreatedAt: now,
			Params: map[string]string{"event": "user_correction"}, Metrics: map[string]float64{"loss": 0.4}},
	}}
	h := NewVersionHandler(versions, fakeModel{id: "20260102T000000.000000000Z"}, "maternal_health_risk", logger.NewNoopLogger())
	router := gin.New()
	router.GET("/api/versions", h.ListVersions)

	w := get(router, "/api/versions")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.VersionListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "maternal_health_risk", resp.Experiment)
	require.Len(t, resp.Versions, 2)
	assert.False(t, resp.Versions[0].Active)
	assert.True(t, resp.Versions[1].Active)
	assert.Equal(t, "20260101T000000.000000000Z", resp.Versions[1].ParentID)
	assert.False(t, resp.Versions[0].Correction)
	assert.True(t, resp.Versions[1].Correction)

	failing := NewVersionHandler(fakeVersions{err: errors.ArtifactStore("list", "", goerrors.New("disk"))}, fakeModel{}, "x", logger.NewNoopLogger())
	router = gin.New()
	router.GET("/api/versions", failing.ListVersions)
	assert.Equal(t, http.StatusInternalServerError, get(router, "/api/versions").Code)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name  string
		store Pinger
		model ModelState
		redis Pinger
		want  int
	}{
		{"all healthy", fakePinger{}, fakeModel{id: "v1"}, fakePinger{}, http.StatusOK},
		{"redis disabled", fakePinger{}, fakeModel{id: "v1"}, nil, http.StatusOK},
		{"no model", fakePinger{}, fakeModel{}, nil, http.StatusServiceUnavailable},
		{"database down", fakePinger{err: goerrors.New("closed")}, fakeModel{id: "v1"}, nil, http.StatusServiceUnavailable},
		{"redis down", fakePinger{}, fakeModel{id: "v1"}, fakePinger{err: goerrors.New("refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.model, tt.redis, logger.NewNoopLogger())
			router := gin.New()
			router.GET("/health", h.HealthCheck)
			router.GET("/live", h.LivenessCheck)

			w := get(router, "/health")
			assert.Equal(t, tt.want, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			checks := body["checks"].(map[string]interface{})
			assert.Contains(t, checks, "database")
			assert.Contains(t, checks, "model")
			if tt.redis == nil {
				assert.NotContains(t, checks, "redis")
			}

			assert.Equal(t, http.StatusOK, get(router, "/live").Code)
		})
	}
}

func TestPageHandler_Index(t *testing.T) {
	h, err := NewPageHandler(fakeModel{id: "20260101T000000.000000000Z"}, logger.NewNoopLogger())
	require.NoError(t, err)
	router := gin.New()
	router.GET("/", h.Index)

	w := get(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	for _, name := range models.FeatureNames {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, "mid risk")
	assert.Contains(t, body, "20260101T000000.000000000Z")
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), RecoveryMiddleware(logger.NewNoopLogger()))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := get(router, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, errors.CodeInternal, decodeError(t, w).Code)
}
