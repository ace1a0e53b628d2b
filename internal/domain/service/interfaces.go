package service

import (
	"context"
	"time"

	"github.com/turtacn/riskserve/pkg/constants"
)

// LifecycleEvent is published when the set of model versions or the serving version changes.
// LifecycleEvent 在模型版本集合或服务版本变化时发布。
type LifecycleEvent struct {
	Type          constants.EventType `json:"type"`
	VersionID     string              `json:"version_id,omitempty"`
	ParentVersion string              `json:"parent_version,omitempty"`
	CorrectionID  string              `json:"correction_id,omitempty"`
	Label         string              `json:"label,omitempty"`
	Metrics       map[string]float64  `json:"metrics,omitempty"`
	Error         string              `json:"error,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

//go:generate mockery --name EventPublisher --output mocks --outpkg mocks
// EventPublisher delivers lifecycle events to an external bus.
// Publishing is best effort: callers log failures and carry on.
// EventPublisher 将生命周期事件投递到外部总线。
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

//go:generate mockery --name PointerPublisher --output mocks --outpkg mocks
// PointerPublisher announces the serving version to other replicas.
// PointerPublisher 向其他副本宣告当前服务版本。
type PointerPublisher interface {
	// PublishActive records versionID as active and notifies subscribers.
	PublishActive(ctx context.Context, versionID string) error
}

type noopEventPublisher struct{}

// NewNoopEventPublisher returns an EventPublisher that drops every event.
func NewNoopEventPublisher() EventPublisher { return noopEventPublisher{} }

func (noopEventPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
func (noopEventPublisher) Close() error                                  { return nil }

type noopPointerPublisher struct{}

// NewNoopPointerPublisher returns a PointerPublisher that does nothing.
func NewNoopPointerPublisher() PointerPublisher { return noopPointerPublisher{} }

func (noopPointerPublisher) PublishActive(context.Context, string) error { return nil }

//Personal.AI order the ending
