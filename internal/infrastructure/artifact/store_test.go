package artifact_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
	"github.com/turtacn/riskserve/internal/ml"
	"github.com/turtacn/riskserve/internal/testutil"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

func TestStore_EmptyLatest(t *testing.T) {
	ts := testutil.NewTestStore(t)

	latest, err := ts.Store.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)

	versions, err := ts.Store.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.NoError(t, ts.Store.Ping(context.Background()))
}

func TestStore_PersistAndFetch(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestStore(t)
	v := ts.SeedBaseline(t)

	assert.Equal(t, constants.DefaultExperimentName, v.Experiment)
	assert.Equal(t, constants.ModeDemoInitializing, v.Params[constants.ParamMode])
	assert.DirExists(t, ts.VersionDir(v.ID))
	assert.FileExists(t, filepath.Join(ts.VersionDir(v.ID), constants.ModelArtifactFile))
	assert.FileExists(t, filepath.Join(ts.VersionDir(v.ID), constants.ScalerArtifactFile))
	assert.FileExists(t, ts.Paths.ScalerPath, "scaler is mirrored")

	pointer, err := artifact.ReadLatestPointer(ts.Paths.ArtifactDir)
	require.NoError(t, err)
	assert.Equal(t, v.ID, pointer)

	latest, err := ts.Store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v.ID, latest.ID)
	assert.InDelta(t, 0.5, latest.Metrics[constants.MetricAccuracy], 1e-12)

	net, scaler, err := ts.Store.Fetch(ctx, v.ID)
	require.NoError(t, err)
	assert.NoError(t, net.Validate(models.NumFeatures, constants.NumRiskClasses))
	assert.NoError(t, scaler.Validate(models.NumFeatures))
}

func TestStore_FetchFromDiskMatchesPersisted(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestStore(t)
	net, scaler := testutil.NewPair(t, 5)
	v, err := ts.Store.Persist(ctx, net, scaler, repository.PersistRequest{})
	require.NoError(t, err)

	// a second store has a cold cache and must decode from disk
	cold, err := artifact.NewStore(artifact.Options{ArtifactDir: ts.Paths.ArtifactDir}, ts.Repo, logger.NewNoopLogger())
	require.NoError(t, err)
	gotNet, gotScaler, err := cold.Fetch(ctx, v.ID)
	require.NoError(t, err)

	x := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	want, _ := net.Predict(x)
	got, _ := gotNet.Predict(x)
	assert.InDeltaSlice(t, want, got, 1e-12)
	assert.Equal(t, scaler.Mean, gotScaler.Mean)
}

func TestStore_VersionIDsAreStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestStore(t)

	frozen := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store, err := artifact.NewStore(artifact.Options{
		ArtifactDir: ts.Paths.ArtifactDir,
		Clock:       func() time.Time { return frozen },
	}, ts.Repo, logger.NewNoopLogger())
	require.NoError(t, err)

	net, scaler := testutil.NewPair(t, 1)
	var ids []string
	for i := 0; i < 3; i++ {
		v, err := store.Persist(ctx, net, scaler, repository.PersistRequest{})
		require.NoError(t, err)
		ids = append(ids, v.ID)
	}
	assert.True(t, models.VersionNewer(ids[1], ids[0]))
	assert.True(t, models.VersionNewer(ids[2], ids[1]))

	versions, err := store.ListVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, ids[i], v.ID, "listed in ascending order")
	}
}

func TestStore_ConcurrentPersistsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestStore(t)
	net, scaler := testutil.NewPair(t, 1)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := ts.Store.Persist(ctx, net, scaler, repository.PersistRequest{})
			if assert.NoError(t, err) {
				ids[i] = v.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestStore_RejectsIncompatiblePair(t *testing.T) {
	ts := testutil.NewTestStore(t)
	net, _ := testutil.NewPair(t, 1)
	badScaler := &ml.StandardScaler{Mean: []float64{0}, Scale: []float64{1}}

	_, err := ts.Store.Persist(context.Background(), net, badScaler, repository.PersistRequest{})
	assert.True(t, errors.Is(err, errors.ErrIncompatibleModel))

	latest, err := ts.Store.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_FetchErrors(t *testing.T) {
	ts := testutil.NewTestStore(t)
	v := ts.SeedBaseline(t)

	_, _, err := ts.Store.Fetch(context.Background(), "../etc")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	cold, err := artifact.NewStore(artifact.Options{ArtifactDir: ts.Paths.ArtifactDir}, ts.Repo, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ts.VersionDir(v.ID), constants.ModelArtifactFile), []byte("{"), 0o644))
	_, _, err = cold.Fetch(context.Background(), v.ID)
	assert.True(t, errors.Is(err, errors.ErrArtifactStore))
}

type failingRepo struct {
	mock.Mock
	repository.VersionRepository
}

func (m *failingRepo) Latest(ctx context.Context, experiment string) (*models.ModelVersion, error) {
	args := m.Called(ctx, experiment)
	v, _ := args.Get(0).(*models.ModelVersion)
	return v, args.Error(1)
}

func (m *failingRepo) Register(ctx context.Context, v *models.ModelVersion) error {
	return m.Called(ctx, v).Error(0)
}

func TestStore_RegisterFailureRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	repo := &failingRepo{}
	repo.On("Latest", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Register", mock.Anything, mock.Anything).Return(errors.ArtifactStore("register", "", assert.AnError))

	store, err := artifact.NewStore(artifact.Options{ArtifactDir: dir}, repo, logger.NewNoopLogger())
	require.NoError(t, err)
	net, scaler := testutil.NewPair(t, 1)

	_, err = store.Persist(context.Background(), net, scaler, repository.PersistRequest{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no version directory or pointer file is left behind")
	repo.AssertExpectations(t)
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestStore(t)
	ts.SeedBaseline(t)
	ts.SeedBaseline(t)

	require.NoError(t, ts.Store.Purge(ctx))
	versions, err := ts.Store.ListVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	entries, err := os.ReadDir(ts.Paths.ArtifactDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoFileExists(t, ts.Paths.ScalerPath)
}

func TestStore_ArtifactsAreJSON(t *testing.T) {
	ts := testutil.NewTestStore(t)
	v := ts.SeedBaseline(t)

	raw, err := os.ReadFile(filepath.Join(ts.VersionDir(v.ID), constants.ScalerArtifactFile))
	require.NoError(t, err)
	var doc map[string][]float64
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["mean"], models.NumFeatures)
	assert.Len(t, doc["scale"], models.NumFeatures)
}

func TestVersionRepository_GetNotFound(t *testing.T) {
	ts := testutil.NewTestStore(t)
	_, err := ts.Repo.Get(context.Background(), "20260101T000000.000000000Z")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	v := ts.SeedBaseline(t)
	got, err := ts.Repo.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.Params, got.Params)
}

func TestOpen_SharesStoreAcrossHandles(t *testing.T) {
	ctx := context.Background()
	tc := &config.TrackingConfig{
		ProjectRoot: t.TempDir(),
		Driver:      "sqlite",
		DBFile:      "tracking/mlflow.db",
		ArtifactDir: "mlruns",
		ScalerFile:  "scaler.json",
		Experiment:  constants.DefaultExperimentName,
	}

	writer, err := artifact.Open(ctx, tc, logger.NewNoopLogger())
	require.NoError(t, err)
	defer writer.Close()
	assert.Equal(t, filepath.Join(tc.ProjectRoot, "mlruns"), writer.Paths.ArtifactDir)

	net, scaler := testutil.NewPair(t, 3)
	v, err := writer.Store.Persist(ctx, net, scaler, repository.PersistRequest{})
	require.NoError(t, err)

	reader, err := artifact.Open(ctx, tc, logger.NewNoopLogger())
	require.NoError(t, err)
	defer reader.Close()

	latest, err := reader.Store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v.ID, latest.ID)
	assert.FileExists(t, writer.Paths.ScalerPath)
}
