package kafka

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/core/config"
	"github.com/Sokol111/avropipe/pkg/core/health"
	"github.com/Sokol111/avropipe/pkg/target"
)

type moduleOptions struct {
	config   *Config
	topic    string
	producer Producer
}

// Option configures NewPublisherModule.
type Option func(*moduleOptions)

// WithConfig provides a static Config instead of the viper "kafka" section.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = &cfg
	}
}

// WithTopic overrides the configured topic.
func WithTopic(topic string) Option {
	return func(o *moduleOptions) {
		o.topic = topic
	}
}

// WithProducer replaces the librdkafka producer, skipping the broker check.
func WithProducer(p Producer) Option {
	return func(o *moduleOptions) {
		o.producer = p
	}
}

// NewPublisherModule provides a *Publisher reading the *target.LocalTarget
// supplied by the application.
func NewPublisherModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("kafka",
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				return o.load(v)
			},
			func(lc fx.Lifecycle, conf Config, log *zap.Logger, readiness health.ComponentManager) (Producer, error) {
				if o.producer != nil {
					return o.producer, nil
				}
				return provideProducer(lc, conf, log, readiness)
			},
			provideFramer,
			providePublisher,
		),
	)
}

func (o *moduleOptions) load(v *viper.Viper) (Config, error) {
	var cfg Config
	if o.config != nil {
		cfg = *o.config
	} else if err := config.Section(v, "kafka", &cfg); err != nil {
		return cfg, err
	}
	if o.topic != "" {
		cfg.Topic = o.topic
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid kafka config: %w", err)
	}
	return cfg, nil
}

func provideProducer(lc fx.Lifecycle, conf Config, log *zap.Logger, readiness health.ComponentManager) (Producer, error) {
	p, err := newKafkaProducer(conf)
	if err != nil {
		return nil, err
	}

	markReady := readiness.AddComponent("kafka-producer")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Polling may outlast the fx start timeout.
			go func() {
				if err := waitForBrokers(context.Background(), p, log, conf.ReadinessTimeoutSeconds, conf.FailOnBrokerError); err != nil {
					log.Error("kafka producer not ready", zap.Error(err))
					return
				}
				markReady()
			}()
			return nil
		},
	})
	return p, nil
}

func provideFramer(lc fx.Lifecycle, conf Config, log *zap.Logger) (Framer, error) {
	if conf.Framing != FramingConfluent {
		return NewSingleObjectFramer(), nil
	}

	client, err := schemaregistry.NewClient(schemaregistry.NewConfig(conf.SchemaRegistry.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry client: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing schema registry client")
			return client.Close()
		},
	})
	return NewConfluentFramer(client, conf.Topic), nil
}

func providePublisher(lc fx.Lifecycle, producer Producer, framer Framer, conf Config, format *avro.Format, in *target.LocalTarget, log *zap.Logger) *Publisher {
	p := NewPublisher(producer, framer, conf, format, in, log.Named("kafka-publish"))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	return p
}
