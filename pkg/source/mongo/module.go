package mongo

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/core/config"
	"github.com/Sokol111/avropipe/pkg/core/health"
	"github.com/Sokol111/avropipe/pkg/target"
)

type moduleOptions struct {
	config     *Config
	collection string
}

// Option configures NewExporterModule.
type Option func(*moduleOptions)

// WithConfig provides a static Config instead of the viper "mongo" section.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithCollection overrides the configured collection.
func WithCollection(name string) Option {
	return func(o *moduleOptions) {
		o.collection = name
	}
}

// NewExporterModule provides the mongo client and an *Exporter writing to
// the *target.LocalTarget supplied by the application.
func NewExporterModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("mongo",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				return o.load(v)
			},
			provideClient,
			func(c *Client) DocumentSource { return c },
			provideExporter,
		),
	)
}

func (o *moduleOptions) load(v *viper.Viper) (Config, error) {
	var cfg Config
	if o.config != nil {
		cfg = *o.config
	} else if err := config.Section(v, "mongo", &cfg); err != nil {
		return cfg, err
	}
	if o.collection != "" {
		cfg.Collection = o.collection
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid mongo config: %w", err)
	}
	return cfg, nil
}

func provideClient(lc fx.Lifecycle, log *zap.Logger, appConf config.AppConfig, conf Config, readiness health.ComponentManager) (*Client, error) {
	c, err := NewClient(log, conf, appConf.ServiceName)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("mongo")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Connect(ctx); err != nil {
				return err
			}
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.Disconnect(ctx)
		},
	})

	return c, nil
}

func provideExporter(source DocumentSource, format *avro.Format, out *target.LocalTarget, log *zap.Logger) *Exporter {
	return NewExporter(source, format, out, log.Named("mongo-export"))
}
