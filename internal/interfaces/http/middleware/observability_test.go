package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservabilityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("test-tracer")

	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_requests_total"}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_request_duration_seconds"}, []string{"method", "path"})

	router := gin.New()
	router.Use(ObservabilityMiddleware(tracer, total, duration))
	router.GET("/api/versions", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/api/versions", "/missing"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "/api/versions", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "not_found", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(duration))

	spans := exporter.GetSpans()
	assert.Len(t, spans, 2)
	assert.Equal(t, "GET /api/versions", spans[0].Name)
	assert.Equal(t, "HTTP GET", spans[1].Name)
}
