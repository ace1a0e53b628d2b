package config

import (
	"strings"

	"github.com/spf13/viper"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. RISKSERVE_SERVER_PORT.
const EnvPrefix = "RISKSERVE"

// SetDefaults registers every configuration key with its default value.
// Keys without a default are invisible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("tracking.project_root", "")
	v.SetDefault("tracking.driver", "sqlite")
	v.SetDefault("tracking.db_file", "mlflow.db")
	v.SetDefault("tracking.dsn", "")
	v.SetDefault("tracking.artifact_dir", "mlruns")
	v.SetDefault("tracking.scaler_file", "scaler.json")
	v.SetDefault("tracking.experiment", constants.DefaultExperimentName)
	v.SetDefault("tracking.watch", true)
	v.SetDefault("tracking.cache_ttl", 30)

	v.SetDefault("model.hidden_layers", []int{16, 8})
	v.SetDefault("model.dropout", 0.2)
	v.SetDefault("model.train_epochs", 10)
	v.SetDefault("model.batch_size", 16)
	v.SetDefault("model.learning_rate", 0.001)
	v.SetDefault("model.test_ratio", 0.2)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.fine_tune_epochs", constants.DefaultFineTuneEpochs)
	v.SetDefault("model.fine_tune_learning_rate", constants.DefaultFineTuneLearningRate)

	v.SetDefault("correction.queue_size", 16)
	v.SetDefault("correction.drain_timeout", int(constants.DefaultDrainTimeout.Seconds()))

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "riskserve:model:activated")
	v.SetDefault("redis.key", "riskserve:model:active")
	v.SetDefault("redis.idempotency_ttl", 600)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.consume", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "riskserve.model-events")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.issuer", "riskserve")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "riskserve")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 1.0)
}

// LoadConfig loads the configuration from file and environment variables.
// An empty configFile searches /etc/riskserve/ and the working directory for config.yaml.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// Set default values
	SetDefaults(v)

	// Load from config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/riskserve/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Internal("failed to read config file", err)
		}
	}

	// Load from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Internal("failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

//Personal.AI order the ending
