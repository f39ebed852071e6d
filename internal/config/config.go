package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/markberger/awswrappers/internal/s3_client"
	"github.com/markberger/awswrappers/internal/sqs_client"
	"github.com/markberger/awswrappers/metrics"
	log "github.com/sirupsen/logrus"
)

// Config is read from AWSW_* environment variables.
type Config struct {
	LogLevel string `env:"AWSW_LOG_LEVEL" envDefault:"info"`

	S3      s3_client.S3ClientConfig   `envPrefix:""`
	SQS     sqs_client.SQSClientConfig `envPrefix:""`
	Metrics metrics.Config             `envPrefix:""`
}

// Load parses Config from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyLogLevel sets the logrus level from LogLevel.
func (c Config) ApplyLogLevel() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	log.SetLevel(level)
	return nil
}
