package avro

import (
	"fmt"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// ModuleOption configures NewFormatModule.
type ModuleOption func(*moduleOptions)

// WithConfig provides a static Config instead of the viper "avro" section.
func WithConfig(cfg Config) ModuleOption {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// NewFormatModule provides Config, *Metrics and a *Format built from them.
func NewFormatModule(opts ...ModuleOption) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("avro",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					cfg := *o.config
					cfg.applyDefaults()
					return cfg, cfg.Validate()
				}
				return newConfig(v)
			},
			provideMetrics,
			provideFormat,
		),
	)
}

type metricsParams struct {
	fx.In
	MeterProvider metric.MeterProvider `optional:"true"`
}

func provideMetrics(p metricsParams) (*Metrics, error) {
	mp := p.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return NewMetrics(mp)
}

func provideFormat(cfg Config, metrics *Metrics, log *zap.Logger) (*Format, error) {
	schema, err := cfg.LoadSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load avro schema: %w", err)
	}
	writerOpts, err := cfg.WriterOptions()
	if err != nil {
		return nil, err
	}
	writerOpts = append(writerOpts, WithWriterLogger(log), WithWriterMetrics(metrics))

	log.Info("avro format configured",
		zap.String("schemaFile", cfg.SchemaFile),
		zap.String("codec", cfg.Codec),
		zap.Int("blockLength", cfg.BlockLength),
	)

	return NewFormat(
		WithSchema(schema),
		WithWriterOptions(writerOpts...),
		WithReaderOptions(WithReaderLogger(log), WithReaderMetrics(metrics)),
	), nil
}
