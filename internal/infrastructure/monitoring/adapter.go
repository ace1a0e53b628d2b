// Package monitoring provides adapters to connect the domain's metrics interface with a concrete implementation like Prometheus.
package monitoring

import (
	"time"

	"github.com/turtacn/riskserve/internal/domain/service"
)

// MetricsAdapter implements the domain's service.Metrics interface, sending metrics to a Prometheus backend.
// MetricsAdapter 实现了域的 service.Metrics 接口，将指标发送到 Prometheus 后端。
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter creates a new adapter that wraps a concrete Prometheus Metrics object,
// satisfying the domain's Metrics interface.
// NewMetricsAdapter 创建一个包装具体 Prometheus Metrics 对象的新适配器。
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

// RecordPrediction delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordPrediction(riskLevel, result string, duration time.Duration) {
	a.metrics.RecordPrediction(riskLevel, result, duration)
}

// RecordCorrection delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordCorrection(result string, duration time.Duration) {
	a.metrics.RecordCorrection(result, duration)
}

// RecordFineTune delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordFineTune(loss, accuracy float64) {
	a.metrics.RecordFineTune(loss, accuracy)
}

// SetActiveVersion delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) SetActiveVersion(versionID string) {
	a.metrics.SetActiveVersion(versionID)
}

// SetCorrectionQueueDepth 更新纠正队列深度。
func (a *MetricsAdapter) SetCorrectionQueueDepth(depth int) {
	a.metrics.CorrectionQueueDepth.Set(float64(depth))
}

// RecordModelLoad delegates the call to the underlying Prometheus Metrics object.
func (a *MetricsAdapter) RecordModelLoad(result string, duration time.Duration) {
	a.metrics.RecordModelLoad(result, duration)
}

//Personal.AI order the ending
