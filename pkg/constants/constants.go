// Package constants defines system-wide constants for the risk serving service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Risk Class Constants
// ================================================================================

// Risk labels as submitted by operators and returned by the predict endpoint.
const (
	RiskLabelLow  = "low risk"
	RiskLabelMid  = "mid risk"
	RiskLabelHigh = "high risk"
)

// NumRiskClasses is the width of the classifier output layer.
const NumRiskClasses = 3

// ================================================================================
// Model Lifecycle Constants
// ================================================================================

const (
	// DefaultExperimentName is the namespace versions are registered under.
	DefaultExperimentName = "Maternal_Health_Risk"

	// ModelArtifactFile is the serialized network inside a version directory.
	ModelArtifactFile = "model.json"

	// ScalerArtifactFile is the serialized scaler inside a version directory.
	ScalerArtifactFile = "scaler.json"

	// LatestPointerFile names the file holding the id of the newest committed version.
	LatestPointerFile = "latest_version"

	// DefaultFineTuneEpochs is the number of passes over a single correction.
	DefaultFineTuneEpochs = 10

	// DefaultFineTuneLearningRate is the Adam step size used for a correction.
	DefaultFineTuneLearningRate = 0.01

	// VersionIDLayout renders version ids; fixed width keeps lexical order chronological.
	VersionIDLayout = "20060102T150405.000000000Z"
)

// Version parameter keys.
const (
	ParamEvent         = "event"
	ParamTriggerLabel  = "trigger_label"
	ParamParentVersion = "parent_version"
	ParamCorrectionID  = "correction_id"
	ParamEpochs        = "epochs"
	ParamLearningRate  = "learning_rate"
	ParamMode          = "mode"
)

// Version metric keys.
const (
	MetricLoss     = "loss"
	MetricAccuracy = "accuracy"
)

// Parameter values recorded for the two ways a version is created.
const (
	EventUserCorrection  = "user_correction"
	ModeDemoInitializing = "demo_initialization"
)

// ================================================================================
// Lifecycle Event Types
// ================================================================================

// EventType identifies a model lifecycle event published to the event bus.
type EventType string

const (
	// EventVersionCreated is emitted after a version is persisted.
	EventVersionCreated EventType = "model.version.created"

	// EventVersionActivated is emitted after the serving pointer moves.
	EventVersionActivated EventType = "model.version.activated"

	// EventCorrectionFailed is emitted when a correction could not produce a version.
	EventCorrectionFailed EventType = "correction.failed"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyLogger is the key for a request scoped logger in context
	ContextKeyLogger ContextKey = "logger"

	// ContextKeyOperator is the key for the authenticated operator subject
	ContextKeyOperator ContextKey = "operator"
)

// ================================================================================
// HTTP Constants
// ================================================================================

const (
	// HeaderRequestID carries the request id in and out of the service
	HeaderRequestID = "X-Request-ID"

	// HeaderAuthorization is the standard authorization header
	HeaderAuthorization = "Authorization"

	// OperatorRole is the role claim required to submit corrections
	OperatorRole = "operator"
)

// ================================================================================
// Timeouts
// ================================================================================

const (
	// DefaultShutdownTimeout bounds graceful HTTP shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultDrainTimeout bounds how long queued corrections may run after shutdown starts
	DefaultDrainTimeout = 30 * time.Second

	// DefaultWatchDebounce coalesces bursts of artifact directory events
	DefaultWatchDebounce = 500 * time.Millisecond
)

//Personal.AI order the ending
