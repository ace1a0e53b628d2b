package repository

import (
	"context"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/ml"
)

// PersistRequest carries the metadata registered alongside a new version.
type PersistRequest struct {
	// ParentID is the version the new one was derived from, empty for initial training.
	ParentID string
	Params   map[string]string
	Metrics  map[string]float64
}

// ArtifactStore is the versioned store of (network, scaler) pairs.
// Versions are immutable once registered and accumulate without garbage collection.
type ArtifactStore interface {
	// ListVersions returns every registered version in ascending order.
	ListVersions(ctx context.Context) ([]*models.ModelVersion, error)

	// Latest returns the newest registered version, or (nil, nil) when there is none.
	Latest(ctx context.Context) (*models.ModelVersion, error)

	// Fetch loads the network and scaler of a version. Callers must treat the
	// returned values as read-only; they may be shared with other callers.
	Fetch(ctx context.Context, versionID string) (*ml.Network, *ml.StandardScaler, error)

	// Persist stores the pair as a new version. The version is visible to Latest
	// only after both artifacts and the metadata are durable.
	Persist(ctx context.Context, net *ml.Network, scaler *ml.StandardScaler, req PersistRequest) (*models.ModelVersion, error)

	// Ping checks that the metadata database is reachable.
	Ping(ctx context.Context) error
}

//Personal.AI order the ending
