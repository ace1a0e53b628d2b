package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/riskserve/internal/domain/service"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event service.LifecycleEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPointerPublisher struct {
	mock.Mock
}

func (m *MockPointerPublisher) PublishActive(ctx context.Context, versionID string) error {
	args := m.Called(ctx, versionID)
	return args.Error(0)
}
