// Package artifact implements the versioned model store. Network and scaler blobs
// live as JSON files under <artifact_dir>/<version_id>/ and the version registry lives
// in the metadata database behind repository.VersionRepository.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/internal/ml"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

const tmpDirPrefix = ".tmp-"

// Options configures a Store.
type Options struct {
	Experiment  string
	ArtifactDir string
	// ScalerMirrorPath, when set, receives a copy of every persisted scaler.
	ScalerMirrorPath string
	CacheTTL         time.Duration
	// Clock is used for version ids; defaults to time.Now.
	Clock func() time.Time
}

type cachedPair struct {
	net    *ml.Network
	scaler *ml.StandardScaler
}

// Store implements repository.ArtifactStore on a directory tree plus the version registry.
type Store struct {
	opts   Options
	repo   repository.VersionRepository
	cache  *cache.Cache
	logger logger.Logger

	// persistMu serializes Persist so version ids stay strictly increasing.
	persistMu sync.Mutex
	lastID    string
}

// NewStore creates the artifact directory if needed and returns a Store.
func NewStore(opts Options, repo repository.VersionRepository, log logger.Logger) (*Store, error) {
	if opts.ArtifactDir == "" {
		return nil, errors.InvalidConfig("tracking.artifact_dir", "must not be empty")
	}
	if opts.Experiment == "" {
		opts.Experiment = constants.DefaultExperimentName
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if err := os.MkdirAll(opts.ArtifactDir, 0o755); err != nil {
		return nil, errors.ArtifactStore("init", "", err)
	}
	return &Store{
		opts:   opts,
		repo:   repo,
		cache:  cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger: log.WithComponent("ArtifactStore"),
	}, nil
}

// Dir returns the artifact root directory.
func (s *Store) Dir() string { return s.opts.ArtifactDir }

// Experiment returns the experiment the store registers versions under.
func (s *Store) Experiment() string { return s.opts.Experiment }

// ListVersions returns every version of the experiment, oldest first.
func (s *Store) ListVersions(ctx context.Context) ([]*models.ModelVersion, error) {
	return s.repo.List(ctx, s.opts.Experiment)
}

// Latest returns the newest registered version, or (nil, nil).
func (s *Store) Latest(ctx context.Context) (*models.ModelVersion, error) {
	return s.repo.Latest(ctx, s.opts.Experiment)
}

// Ping checks the metadata database.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Fetch loads and validates the artifacts of a version. Decoded pairs are cached by id;
// versions are immutable so cached values never go stale.
func (s *Store) Fetch(ctx context.Context, versionID string) (*ml.Network, *ml.StandardScaler, error) {
	if cached, ok := s.cache.Get(versionID); ok {
		pair := cached.(*cachedPair)
		return pair.net, pair.scaler, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if !validVersionID(versionID) {
		return nil, nil, errors.NotFound("version", versionID)
	}

	dir := filepath.Join(s.opts.ArtifactDir, versionID)
	var net ml.Network
	if err := readJSON(filepath.Join(dir, constants.ModelArtifactFile), &net); err != nil {
		return nil, nil, errors.ArtifactStore("fetch", versionID, err)
	}
	var scaler ml.StandardScaler
	if err := readJSON(filepath.Join(dir, constants.ScalerArtifactFile), &scaler); err != nil {
		return nil, nil, errors.ArtifactStore("fetch", versionID, err)
	}
	if err := checkContract(&net, &scaler); err != nil {
		return nil, nil, err
	}

	s.cache.SetDefault(versionID, &cachedPair{net: &net, scaler: &scaler})
	s.logger.Debug(ctx, "Loaded version artifacts", logger.Fields{"version_id": versionID})
	return &net, &scaler, nil
}

// Persist writes the artifacts into a temporary directory, renames it into place,
// registers the metadata and finally moves the latest-version pointer file.
// A failure at any step leaves no registered version behind.
func (s *Store) Persist(ctx context.Context, net *ml.Network, scaler *ml.StandardScaler, req repository.PersistRequest) (*models.ModelVersion, error) {
	if err := checkContract(net, scaler); err != nil {
		return nil, err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	id, err := s.nextVersionID(ctx)
	if err != nil {
		return nil, err
	}
	createdAt, _ := models.ParseVersionID(id)
	version := &models.ModelVersion{
		ID:         id,
		Experiment: s.opts.Experiment,
		ParentID:   req.ParentID,
		CreatedAt:  createdAt,
		Params:     copyParams(req.Params),
		Metrics:    copyMetrics(req.Metrics),
	}
	log := s.logger.WithFields(logger.Fields{"version_id": id, "parent_version": req.ParentID})

	tmpDir := filepath.Join(s.opts.ArtifactDir, tmpDirPrefix+id)
	finalDir := filepath.Join(s.opts.ArtifactDir, id)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, errors.ArtifactStore("persist", id, err)
	}
	if err := writeJSON(filepath.Join(tmpDir, constants.ModelArtifactFile), net); err != nil {
		os.RemoveAll(tmpDir)
		return nil, errors.ArtifactStore("persist", id, err)
	}
	if err := writeJSON(filepath.Join(tmpDir, constants.ScalerArtifactFile), scaler); err != nil {
		os.RemoveAll(tmpDir)
		return nil, errors.ArtifactStore("persist", id, err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, errors.ArtifactStore("persist", id, err)
	}

	if err := s.repo.Register(ctx, version); err != nil {
		log.Error(ctx, "Failed to register version, removing artifacts", err)
		os.RemoveAll(finalDir)
		return nil, err
	}
	s.lastID = id

	if err := writeFileAtomic(filepath.Join(s.opts.ArtifactDir, constants.LatestPointerFile), []byte(id+"\n")); err != nil {
		log.Warn(ctx, "Failed to update latest version pointer file", logger.Fields{"error": err.Error()})
	}
	if s.opts.ScalerMirrorPath != "" {
		if err := writeJSONAtomic(s.opts.ScalerMirrorPath, scaler); err != nil {
			log.Warn(ctx, "Failed to mirror scaler", logger.Fields{"error": err.Error(), "path": s.opts.ScalerMirrorPath})
		}
	}

	s.cache.SetDefault(id, &cachedPair{net: net.Clone(), scaler: scaler.Clone()})
	log.Info(ctx, "Persisted model version", logger.Fields{"params": version.Params, "metrics": version.Metrics})
	return version, nil
}

// Purge removes every version of the experiment and its artifacts.
func (s *Store) Purge(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.repo.DeleteExperiment(ctx, s.opts.Experiment); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.opts.ArtifactDir)
	if err != nil {
		return errors.ArtifactStore("purge", "", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.opts.ArtifactDir, e.Name())); err != nil {
			return errors.ArtifactStore("purge", "", err)
		}
	}
	if s.opts.ScalerMirrorPath != "" {
		if err := os.Remove(s.opts.ScalerMirrorPath); err != nil && !os.IsNotExist(err) {
			return errors.ArtifactStore("purge", "", err)
		}
	}
	s.cache.Flush()
	s.lastID = ""
	s.logger.Info(ctx, "Purged experiment", logger.Fields{"experiment": s.opts.Experiment})
	return nil
}

// nextVersionID stamps the current time; when the clock has not advanced past the last
// issued id the previous id plus one nanosecond is used instead.
func (s *Store) nextVersionID(ctx context.Context) (string, error) {
	if s.lastID == "" {
		latest, err := s.repo.Latest(ctx, s.opts.Experiment)
		if err != nil {
			return "", err
		}
		if latest != nil {
			s.lastID = latest.ID
		}
	}

	id := models.FormatVersionID(s.opts.Clock())
	if s.lastID != "" && !models.VersionNewer(id, s.lastID) {
		last, err := models.ParseVersionID(s.lastID)
		if err != nil {
			return "", errors.ArtifactStore("persist", s.lastID, err)
		}
		id = models.FormatVersionID(last.Add(time.Nanosecond))
	}
	return id, nil
}

func checkContract(net *ml.Network, scaler *ml.StandardScaler) error {
	if net == nil || scaler == nil {
		return errors.IncompatibleModel("network and scaler are required")
	}
	if err := net.Validate(models.NumFeatures, constants.NumRiskClasses); err != nil {
		return errors.IncompatibleModel(err.Error())
	}
	if err := scaler.Validate(models.NumFeatures); err != nil {
		return errors.IncompatibleModel(err.Error())
	}
	return nil
}

func validVersionID(id string) bool {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return false
	}
	_, err := models.ParseVersionID(id)
	return err == nil
}

func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyMetrics(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSONAtomic(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(path, raw)
}

// writeFileAtomic writes through a sibling temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// ReadLatestPointer returns the version id recorded in the pointer file, "" when absent.
func ReadLatestPointer(artifactDir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(artifactDir, constants.LatestPointerFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

//Personal.AI order the ending
