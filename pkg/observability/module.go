package observability

import (
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

type moduleOptions struct {
	config         *Config
	disableTracing bool
	disableMetrics bool
}

// Option configures NewObservabilityModule.
type Option func(*moduleOptions)

// WithConfig provides a static Config instead of the viper "observability" section.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithDisableTracing disables tracing regardless of configuration.
func WithDisableTracing() Option {
	return func(o *moduleOptions) {
		o.disableTracing = true
	}
}

// WithDisableMetrics disables metrics regardless of configuration.
func WithDisableMetrics() Option {
	return func(o *moduleOptions) {
		o.disableMetrics = true
	}
}

// NewObservabilityModule provides metric.MeterProvider and
// trace.TracerProvider. Disabled signals get no-op providers.
func NewObservabilityModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("observability",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				var cfg Config
				if o.config != nil {
					cfg = *o.config
					applyDefaults(&cfg)
				} else {
					var err error
					if cfg, err = newConfig(v); err != nil {
						return cfg, err
					}
				}
				if o.disableTracing {
					cfg.Tracing.Enabled = false
				}
				if o.disableMetrics {
					cfg.Metrics.Enabled = false
				}
				return cfg, cfg.Validate()
			},
			provideMeterProvider,
			provideTracerProvider,
		),
		fx.Invoke(func(metric.MeterProvider, trace.TracerProvider) {}),
	)
}
