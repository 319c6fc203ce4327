package observability

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Sokol111/avropipe/pkg/core/config"
)

const (
	DefaultMetricsInterval      = 10 * time.Second
	DefaultSampleRatio          = 1.0
	DefaultShutdownTimeout      = 5 * time.Second
	DefaultRuntimeStatsInterval = time.Second

	TracingComponentName = "tracing"
	MetricsComponentName = "metrics"
)

// Config is the "observability" configuration section.
type Config struct {
	OtelCollectorEndpoint string        `mapstructure:"otel-collector-endpoint"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample-ratio"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := config.Section(v, "observability", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid observability config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Metrics.Interval == 0 {
		cfg.Metrics.Interval = DefaultMetricsInterval
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultSampleRatio
	}
}

func (c Config) Validate() error {
	if c.Metrics.Enabled && c.OtelCollectorEndpoint == "" {
		return fmt.Errorf("metrics require otel-collector-endpoint")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample-ratio must be within [0, 1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}
