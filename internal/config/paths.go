package config

import (
	"os"
	"path/filepath"

	"github.com/turtacn/riskserve/pkg/errors"
)

// Paths holds the absolute locations the tracking layer works with.
type Paths struct {
	ProjectRoot    string
	TrackingDBPath string
	ArtifactDir    string
	ScalerPath     string
}

// ResolvePaths computes absolute paths for the tracking configuration.
// Relative entries are joined onto the project root, which defaults to the
// working directory of the process.
func ResolvePaths(tc TrackingConfig) (Paths, error) {
	root := tc.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Paths{}, errors.Internal("failed to resolve working directory", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, errors.InvalidConfig("tracking.project_root", err.Error())
	}

	return Paths{
		ProjectRoot:    root,
		TrackingDBPath: resolve(root, tc.DBFile),
		ArtifactDir:    resolve(root, tc.ArtifactDir),
		ScalerPath:     resolve(root, tc.ScalerFile),
	}, nil
}

func resolve(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// EnsureDirs creates the directories the tracking layer writes into.
func (p Paths) EnsureDirs() error {
	if err := os.MkdirAll(p.ArtifactDir, 0o755); err != nil {
		return errors.Internal("failed to create artifact directory", err)
	}
	if p.TrackingDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(p.TrackingDBPath), 0o755); err != nil {
			return errors.Internal("failed to create tracking directory", err)
		}
	}
	return nil
}
