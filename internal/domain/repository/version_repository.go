package repository

import (
	"context"

	"github.com/turtacn/riskserve/internal/domain/models"
)

// VersionRepository stores version metadata: the registry row, its parameters and metrics.
type VersionRepository interface {
	// Register inserts the version with its params and metrics atomically.
	Register(ctx context.Context, version *models.ModelVersion) error

	// Latest returns the newest version of the experiment, or (nil, nil) when there is none.
	Latest(ctx context.Context, experiment string) (*models.ModelVersion, error)

	// List returns the versions of the experiment in ascending order.
	List(ctx context.Context, experiment string) ([]*models.ModelVersion, error)

	// Get returns one version; ErrNotFound when it does not exist.
	Get(ctx context.Context, versionID string) (*models.ModelVersion, error)

	// DeleteExperiment removes every version of the experiment.
	DeleteExperiment(ctx context.Context, experiment string) error

	// Ping checks the database connection.
	Ping(ctx context.Context) error
}

//Personal.AI order the ending
