// Package service defines the interfaces for domain services.
package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
// 这种抽象使应用层能够独立于具体的监控实现（例如 Prometheus）。
type Metrics interface {
	// RecordPrediction records one predict call, labelled by predicted class and result.
	// RecordPrediction 记录一次预测调用。
	RecordPrediction(riskLevel, result string, duration time.Duration)

	// RecordCorrection records one fine-tune cycle and its outcome.
	// RecordCorrection 记录一次微调周期及其结果。
	RecordCorrection(result string, duration time.Duration)

	// RecordFineTune records the final loss and accuracy of a fine-tune step.
	// RecordFineTune 记录微调步骤的最终损失和准确率。
	RecordFineTune(loss, accuracy float64)

	// SetActiveVersion marks versionID as the serving version.
	// SetActiveVersion 将 versionID 标记为当前服务版本。
	SetActiveVersion(versionID string)

	// SetCorrectionQueueDepth updates the number of corrections waiting to run.
	// SetCorrectionQueueDepth 更新等待运行的纠正数量。
	SetCorrectionQueueDepth(depth int)

	// RecordModelLoad records a load of the latest version from the store.
	// RecordModelLoad 记录一次从存储加载最新版本。
	RecordModelLoad(result string, duration time.Duration)
}

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics implementation that discards everything.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordPrediction(string, string, time.Duration) {}
func (noopMetrics) RecordCorrection(string, time.Duration)         {}
func (noopMetrics) RecordFineTune(float64, float64)                {}
func (noopMetrics) SetActiveVersion(string)                        {}
func (noopMetrics) SetCorrectionQueueDepth(int)                    {}
func (noopMetrics) RecordModelLoad(string, time.Duration)          {}
