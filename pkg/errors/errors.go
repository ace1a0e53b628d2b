// Package errors defines custom error types and error handling utilities for the risk serving service.
// Every error carries a stable code and the HTTP status it maps to, so handlers never
// have to guess how a failure from the coordinator should be surfaced.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	CodeValidation        = "validation_error"
	CodeNotReady          = "service_not_ready"
	CodeUnknownLabel      = "unknown_label"
	CodeArtifactStore     = "artifact_store_error"
	CodeCorrectionQueued  = "correction_queue_full"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal_error"
	CodeInvalidConfig     = "invalid_config"
	CodeTrainingFailed    = "training_failed"
	CodeIncompatibleModel = "incompatible_model"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeDuplicate         = "duplicate_request"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the stable error code
	Code() string

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AppError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        string
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

func (e *baseError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.description
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() string                    { return e.code }
func (e *baseError) HTTPStatus() int                 { return e.httpStatus }
func (e *baseError) Description() string             { return e.description }
func (e *baseError) Unwrap() error                   { return e.cause }
func (e *baseError) Metadata() map[string]interface{} { return e.metadata }

// Is matches any AppError carrying the same code, so callers can compare against the
// package sentinels with errors.Is.
func (e *baseError) Is(target error) bool {
	t, ok := target.(*baseError)
	if !ok {
		return false
	}
	return t.code == e.code
}

func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// NewError creates a new AppError with the specified parameters
func NewError(code string, httpStatus int, description string, message string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Sentinels (compare with errors.Is, never mutate)
// ================================================================================

var (
	ErrValidation        = NewError(CodeValidation, http.StatusUnprocessableEntity, "Request failed validation", "")
	ErrNotReady          = NewError(CodeNotReady, http.StatusServiceUnavailable, "No model version is loaded", "")
	ErrUnknownLabel      = NewError(CodeUnknownLabel, http.StatusBadRequest, "Unknown risk label", "")
	ErrArtifactStore     = NewError(CodeArtifactStore, http.StatusInternalServerError, "Artifact store failure", "")
	ErrQueueFull         = NewError(CodeCorrectionQueued, http.StatusServiceUnavailable, "Correction queue is full", "")
	ErrUnauthorized      = NewError(CodeUnauthorized, http.StatusUnauthorized, "Missing or invalid credentials", "")
	ErrForbidden         = NewError(CodeForbidden, http.StatusForbidden, "Operator role required", "")
	ErrNotFound          = NewError(CodeNotFound, http.StatusNotFound, "Resource not found", "")
	ErrInternal          = NewError(CodeInternal, http.StatusInternalServerError, "Internal server error", "")
	ErrInvalidConfig     = NewError(CodeInvalidConfig, http.StatusInternalServerError, "Invalid configuration", "")
	ErrTrainingFailed    = NewError(CodeTrainingFailed, http.StatusInternalServerError, "Training step failed", "")
	ErrIncompatibleModel = NewError(CodeIncompatibleModel, http.StatusInternalServerError, "Model and scaler do not match the feature contract", "")
	ErrRateLimited       = NewError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests", "")
	ErrDuplicate         = NewError(CodeDuplicate, http.StatusConflict, "Request was already processed", "")
)

// ================================================================================
// Constructors
// ================================================================================

// Validation creates a validation error carrying per-field messages.
func Validation(message string, fields map[string]string) AppError {
	err := NewError(CodeValidation, http.StatusUnprocessableEntity, "Request failed validation", message)
	if len(fields) > 0 {
		err.WithMetadata("fields", fields)
	}
	return err
}

// NotReady creates a service-not-ready error.
func NotReady(reason string) AppError {
	return NewError(CodeNotReady, http.StatusServiceUnavailable, "No model version is loaded", reason)
}

// UnknownLabel creates an unknown risk label error.
func UnknownLabel(label string) AppError {
	return NewError(CodeUnknownLabel, http.StatusBadRequest, "Unknown risk label",
		fmt.Sprintf("unknown risk label %q", label)).
		WithMetadata("label", label)
}

// ArtifactStore wraps a storage failure for the given operation and version.
func ArtifactStore(op, versionID string, cause error) AppError {
	err := NewError(CodeArtifactStore, http.StatusInternalServerError, "Artifact store failure",
		fmt.Sprintf("artifact store %s failed", op)).
		WithMetadata("operation", op).
		WithCause(cause)
	if versionID != "" {
		err.WithMetadata("version_id", versionID)
	}
	return err
}

// QueueFull creates a correction-queue-full error.
func QueueFull(capacity int) AppError {
	return NewError(CodeCorrectionQueued, http.StatusServiceUnavailable, "Correction queue is full",
		fmt.Sprintf("correction queue is full (capacity %d)", capacity)).
		WithMetadata("capacity", capacity)
}

// TrainingFailed wraps a failure inside a training step.
func TrainingFailed(cause error) AppError {
	return NewError(CodeTrainingFailed, http.StatusInternalServerError, "Training step failed", "training step failed").
		WithCause(cause)
}

// IncompatibleModel reports a network or scaler that does not match the feature contract.
func IncompatibleModel(reason string) AppError {
	return NewError(CodeIncompatibleModel, http.StatusInternalServerError,
		"Model and scaler do not match the feature contract", reason)
}

// InvalidConfig reports a configuration value that failed validation.
func InvalidConfig(key, reason string) AppError {
	return NewError(CodeInvalidConfig, http.StatusInternalServerError, "Invalid configuration",
		fmt.Sprintf("invalid config %s: %s", key, reason)).
		WithMetadata("key", key)
}

// NotFound reports a missing resource.
func NotFound(resource, id string) AppError {
	return NewError(CodeNotFound, http.StatusNotFound, "Resource not found",
		fmt.Sprintf("%s %s not found", resource, id)).
		WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// RateLimited reports a client over its request budget.
func RateLimited(retryAfterSeconds int) AppError {
	return NewError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded").
		WithMetadata("retry_after", retryAfterSeconds)
}

// Duplicate reports a request whose idempotency key was already used.
func Duplicate(key string) AppError {
	return NewError(CodeDuplicate, http.StatusConflict, "Request was already processed",
		"request with this idempotency key was already accepted").
		WithMetadata("idempotency_key", key)
}

// Unauthorized reports missing or invalid operator credentials.
func Unauthorized(reason string) AppError {
	return NewError(CodeUnauthorized, http.StatusUnauthorized, "Missing or invalid credentials", reason)
}

// Forbidden reports an authenticated caller without the operator role.
func Forbidden(reason string) AppError {
	return NewError(CodeForbidden, http.StatusForbidden, "Operator role required", reason)
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) AppError {
	return NewError(CodeInternal, http.StatusInternalServerError, "Internal server error", message).
		WithCause(cause)
}

// ================================================================================
// Utilities
// ================================================================================

// AsAppError attempts to find an AppError in err's chain
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is is a convenience re-export of the standard errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// HTTPStatusOf returns the HTTP status mapped to err, 500 when err is not an AppError.
func HTTPStatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Code     string                 `json:"code"`
	Detail   string                 `json:"detail"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error to an ErrorResponse
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		resp := &ErrorResponse{
			Code:   appErr.Code(),
			Detail: appErr.Error(),
		}
		if len(appErr.Metadata()) > 0 {
			resp.Metadata = appErr.Metadata()
		}
		return resp
	}
	return &ErrorResponse{
		Code:   CodeInternal,
		Detail: err.Error(),
	}
}

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	return HTTPStatusOf(err) >= http.StatusInternalServerError
}

//Personal.AI order the ending
