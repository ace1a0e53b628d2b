package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults_AreValid(t *testing.T) {
	cfg := defaultConfig(t)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Tracking.Driver)
	assert.Equal(t, constants.DefaultExperimentName, cfg.Tracking.Experiment)
	assert.Equal(t, []int{16, 8}, cfg.Model.HiddenLayers)
	assert.Equal(t, constants.DefaultFineTuneEpochs, cfg.Model.FineTuneEpochs)
	assert.InDelta(t, constants.DefaultFineTuneLearningRate, cfg.Model.FineTuneLearningRate, 1e-12)
	assert.Equal(t, "10s", cfg.Kafka.WriteTimeout.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Tracking.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Tracking.Driver = "postgres" }},
		{"empty experiment", func(c *Config) { c.Tracking.Experiment = "" }},
		{"zero fine tune epochs", func(c *Config) { c.Model.FineTuneEpochs = 0 }},
		{"test ratio out of range", func(c *Config) { c.Model.TestRatio = 1 }},
		{"dropout out of range", func(c *Config) { c.Model.Dropout = 1 }},
		{"zero width layer", func(c *Config) { c.Model.HiddenLayers = []int{16, 0} }},
		{"zero queue", func(c *Config) { c.Correction.QueueSize = 0 }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }},
		{"kafka without topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9100\ntracking:\n  artifact_dir: runs\n")
	require.NoError(t, os.WriteFile(file, content, 0o600))

	t.Setenv("RISKSERVE_TRACKING_EXPERIMENT", "from_env")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "runs", cfg.Tracking.ArtifactDir)
	assert.Equal(t, "from_env", cfg.Tracking.Experiment)
}

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "scaler.json")

	paths, err := ResolvePaths(TrackingConfig{
		ProjectRoot: root,
		DBFile:      "mlflow.db",
		ArtifactDir: "mlruns",
		ScalerFile:  abs,
	})
	require.NoError(t, err)

	assert.Equal(t, root, paths.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "mlflow.db"), paths.TrackingDBPath)
	assert.Equal(t, filepath.Join(root, "mlruns"), paths.ArtifactDir)
	assert.Equal(t, abs, paths.ScalerPath)

	require.NoError(t, paths.EnsureDirs())
	info, err := os.Stat(paths.ArtifactDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolvePaths_DefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	paths, err := ResolvePaths(TrackingConfig{DBFile: "mlflow.db"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "mlflow.db"), paths.TrackingDBPath)
}
