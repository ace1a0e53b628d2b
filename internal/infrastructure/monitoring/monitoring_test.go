package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

func TestZapLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newZapLogger(&config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-1")
	log.WithComponent("Coordinator").Info(ctx, "model loaded", logger.Fields{"version_id": "v1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "model loaded", entry["msg"])
	assert.Equal(t, "Coordinator", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "v1", entry["version_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestZapLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := newZapLogger(&config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	log.Error(context.Background(), "kept", assert.AnError)
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestMetricsAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	a := NewMetricsAdapter(m)

	a.RecordPrediction(constants.RiskLabelHigh, "success", 2*time.Millisecond)
	a.RecordPrediction(constants.RiskLabelHigh, "success", 3*time.Millisecond)
	a.RecordCorrection("success", time.Second)
	a.RecordFineTune(0.25, 1)
	a.SetCorrectionQueueDepth(3)
	a.RecordModelLoad("success", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues(constants.RiskLabelHigh, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrectionsTotal.WithLabelValues("success")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.FineTuneLoss))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FineTuneAccuracy))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CorrectionQueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelLoads.WithLabelValues("success")))
}

func TestMetrics_SetActiveVersionKeepsOneSeries(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetActiveVersion("v1")
	m.SetActiveVersion("v2")

	assert.Equal(t, 1, testutil.CollectAndCount(m.ActiveVersion))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveVersion.WithLabelValues("v2")))
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(&config.TracingConfig{Enabled: false}, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NotNil(t, tm.Tracer())

	err = TraceOperation(context.Background(), tm, "noop", func(context.Context) error { return nil }, nil)
	assert.NoError(t, err)
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestTraceOperation_RecordsError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tm := NewTracingManagerWithProvider(provider, logger.NewNoopLogger())

	err := TraceOperation(context.Background(), tm, "fine_tune", func(ctx context.Context) error {
		assert.NotEmpty(t, tm.GetTraceID(ctx))
		return assert.AnError
	}, map[string]interface{}{"label": constants.RiskLabelLow, "epochs": 10})
	assert.ErrorIs(t, err, assert.AnError)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "fine_tune", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NoError(t, tm.Shutdown(context.Background()))
}
