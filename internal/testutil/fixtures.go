// Package testutil builds throwaway artifact stores for tests: a SQLite metadata file
// and an artifact directory under t.TempDir(), optionally seeded with a baseline model.
package testutil

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
	"github.com/turtacn/riskserve/internal/infrastructure/persistence"
	"github.com/turtacn/riskserve/internal/ml"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

// TestStore bundles a store with the paths it writes to.
type TestStore struct {
	Store *artifact.Store
	Repo  repository.VersionRepository
	Paths config.Paths
	Conn  *persistence.DBConnection
}

// NewTestStore opens an empty store in a temp directory.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()
	root := t.TempDir()
	paths, err := config.ResolvePaths(config.TrackingConfig{
		ProjectRoot: root,
		DBFile:      "mlflow.db",
		ArtifactDir: "mlruns",
		ScalerFile:  "scaler.json",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	log := logger.NewNoopLogger()
	conn, err := persistence.NewDBConnection(context.Background(), &config.TrackingConfig{Driver: "sqlite"}, paths, log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	repo := persistence.NewVersionRepository(conn)
	store, err := artifact.NewStore(artifact.Options{
		Experiment:       constants.DefaultExperimentName,
		ArtifactDir:      paths.ArtifactDir,
		ScalerMirrorPath: paths.ScalerPath,
	}, repo, log)
	require.NoError(t, err)

	return &TestStore{Store: store, Repo: repo, Paths: paths, Conn: conn}
}

// NewPair returns a seeded untrained 6-16-8-3 network and a scaler fitted on synthetic data.
func NewPair(t *testing.T, seed int64) (*ml.Network, *ml.StandardScaler) {
	t.Helper()
	net, err := ml.NewNetwork(ml.Architecture{
		Inputs:  models.NumFeatures,
		Hidden:  []int{16, 8},
		Outputs: constants.NumRiskClasses,
		Dropout: 0.2,
	}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)

	scaler, err := ml.FitScaler(ml.SyntheticDataset(200, seed).X)
	require.NoError(t, err)
	return net, scaler
}

// SeedBaseline persists an initial version the way the admin trainer does.
func (ts *TestStore) SeedBaseline(t *testing.T) *models.ModelVersion {
	t.Helper()
	net, scaler := NewPair(t, 42)
	v, err := ts.Store.Persist(context.Background(), net, scaler, repository.PersistRequest{
		Params:  map[string]string{constants.ParamMode: constants.ModeDemoInitializing},
		Metrics: map[string]float64{constants.MetricAccuracy: 0.5, constants.MetricLoss: 1.0},
	})
	require.NoError(t, err)
	return v
}

// VersionDir returns the artifact directory of a version.
func (ts *TestStore) VersionDir(id string) string {
	return filepath.Join(ts.Paths.ArtifactDir, id)
}
