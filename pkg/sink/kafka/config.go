package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	FramingSingleObject = "single-object"
	FramingConfluent    = "confluent"
)

// Config is the "kafka" configuration section.
type Config struct {
	Brokers        string               `mapstructure:"brokers"`
	Topic          string               `mapstructure:"topic"`
	ClientID       string               `mapstructure:"client-id"`
	Framing        string               `mapstructure:"framing"`
	KeyField       string               `mapstructure:"key-field"`
	SchemaRegistry SchemaRegistryConfig `mapstructure:"schema-registry"`

	// FlushTimeout bounds how long Close waits for queued messages.
	FlushTimeout time.Duration `mapstructure:"flush-timeout"`
	// MaxRetries bounds the retries of a produce call rejected by a full local queue.
	MaxRetries uint64 `mapstructure:"max-retries"`

	ReadinessTimeoutSeconds int  `mapstructure:"readiness-timeout-seconds"`
	FailOnBrokerError       bool `mapstructure:"fail-on-broker-error"`
}

type SchemaRegistryConfig struct {
	URL string `mapstructure:"url"`
}

func newConfig(v *viper.Viper) (Config, error) {
	return (&moduleOptions{}).load(v)
}

func (c *Config) applyDefaults() {
	if c.Framing == "" {
		c.Framing = FramingSingleObject
	}
	if c.ClientID == "" {
		c.ClientID = "avropipe"
	}
	if c.FlushTimeout == 0 {
		c.FlushTimeout = 15 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.ReadinessTimeoutSeconds == 0 {
		c.ReadinessTimeoutSeconds = 30
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Brokers == "" {
		errs = append(errs, errors.New("brokers is required"))
	}
	if c.Topic == "" {
		errs = append(errs, errors.New("topic is required"))
	}
	switch c.Framing {
	case FramingSingleObject:
	case FramingConfluent:
		if c.SchemaRegistry.URL == "" {
			errs = append(errs, errors.New("schema-registry.url is required for confluent framing"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown framing %q", c.Framing))
	}
	if c.ReadinessTimeoutSeconds < 0 || c.ReadinessTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("readiness-timeout-seconds must be between 0 and 600, got %d", c.ReadinessTimeoutSeconds))
	}
	return errors.Join(errs...)
}
