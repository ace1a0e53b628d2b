package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/riskserve/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Model      ModelConfig      `mapstructure:"model"`
	Correction CorrectionConfig `mapstructure:"correction"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TrackingConfig locates the version metadata database and the artifact directory.
// Relative paths are resolved against ProjectRoot; an empty ProjectRoot means the
// process working directory.
type TrackingConfig struct {
	ProjectRoot string `mapstructure:"project_root"`
	Driver      string `mapstructure:"driver"` // sqlite | postgres
	DBFile      string `mapstructure:"db_file"`
	DSN         string `mapstructure:"dsn"` // postgres only
	ArtifactDir string `mapstructure:"artifact_dir"`
	ScalerFile  string `mapstructure:"scaler_file"`
	Experiment  string `mapstructure:"experiment"`
	Watch       bool   `mapstructure:"watch"`
	CacheTTL    int    `mapstructure:"cache_ttl"` // in minutes
}

type ModelConfig struct {
	HiddenLayers         []int   `mapstructure:"hidden_layers"`
	Dropout              float64 `mapstructure:"dropout"`
	TrainEpochs          int     `mapstructure:"train_epochs"`
	BatchSize            int     `mapstructure:"batch_size"`
	LearningRate         float64 `mapstructure:"learning_rate"`
	TestRatio            float64 `mapstructure:"test_ratio"`
	Seed                 int64   `mapstructure:"seed"`
	FineTuneEpochs       int     `mapstructure:"fine_tune_epochs"`
	FineTuneLearningRate float64 `mapstructure:"fine_tune_learning_rate"`
}

type CorrectionConfig struct {
	QueueSize    int `mapstructure:"queue_size"`
	DrainTimeout int `mapstructure:"drain_timeout"` // in seconds
}

// DrainDuration returns the drain timeout as a duration.
func (c *CorrectionConfig) DrainDuration() time.Duration {
	return time.Duration(c.DrainTimeout) * time.Second
}

type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Address        string `mapstructure:"address"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	Channel        string `mapstructure:"channel"`
	Key            string `mapstructure:"key"`
	IdempotencyTTL int    `mapstructure:"idempotency_ttl"` // in seconds, 0 disables Idempotency-Key handling
}

// IdempotencyWindow returns the Idempotency-Key retention as a duration.
func (c *RedisConfig) IdempotencyWindow() time.Duration {
	return time.Duration(c.IdempotencyTTL) * time.Second
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Consume      bool          `mapstructure:"consume"` // reload on version events from other processes
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	HMACSecret string `mapstructure:"hmac_secret"`
	Issuer     string `mapstructure:"issuer"`
}

// RateLimitConfig bounds requests per client IP on the POST endpoints.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.InvalidConfig("server.port", "must be between 1 and 65535")
	}
	switch strings.ToLower(c.Tracking.Driver) {
	case "sqlite":
	case "postgres":
		if c.Tracking.DSN == "" {
			return errors.InvalidConfig("tracking.dsn", "required for the postgres driver")
		}
	default:
		return errors.InvalidConfig("tracking.driver", "must be sqlite or postgres")
	}
	if c.Tracking.Experiment == "" {
		return errors.InvalidConfig("tracking.experiment", "must not be empty")
	}
	if c.Model.FineTuneEpochs <= 0 {
		return errors.InvalidConfig("model.fine_tune_epochs", "must be positive")
	}
	if c.Model.FineTuneLearningRate <= 0 {
		return errors.InvalidConfig("model.fine_tune_learning_rate", "must be positive")
	}
	if c.Model.TestRatio <= 0 || c.Model.TestRatio >= 1 {
		return errors.InvalidConfig("model.test_ratio", "must be in (0, 1)")
	}
	if c.Model.Dropout < 0 || c.Model.Dropout >= 1 {
		return errors.InvalidConfig("model.dropout", "must be in [0, 1)")
	}
	for _, width := range c.Model.HiddenLayers {
		if width <= 0 {
			return errors.InvalidConfig("model.hidden_layers", "widths must be positive")
		}
	}
	if c.Correction.QueueSize <= 0 {
		return errors.InvalidConfig("correction.queue_size", "must be positive")
	}
	if c.Auth.Enabled && c.Auth.HMACSecret == "" {
		return errors.InvalidConfig("auth.hmac_secret", "required when auth is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.InvalidConfig("kafka", "brokers and topic are required when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.InvalidConfig("rate_limit", "requests_per_second and burst must be positive when enabled")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.InvalidConfig("redis.address", "required when redis is enabled")
	}
	return nil
}

//Personal.AI order the ending
