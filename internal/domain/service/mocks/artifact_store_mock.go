package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/internal/ml"
)

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) ListVersions(ctx context.Context) ([]*models.ModelVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ModelVersion), args.Error(1)
}

func (m *MockArtifactStore) Latest(ctx context.Context) (*models.ModelVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelVersion), args.Error(1)
}

func (m *MockArtifactStore) Fetch(ctx context.Context, versionID string) (*ml.Network, *ml.StandardScaler, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*ml.Network), args.Get(1).(*ml.StandardScaler), args.Error(2)
}

func (m *MockArtifactStore) Persist(ctx context.Context, net *ml.Network, scaler *ml.StandardScaler, req repository.PersistRequest) (*models.ModelVersion, error) {
	args := m.Called(ctx, net, scaler, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelVersion), args.Error(1)
}

func (m *MockArtifactStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
