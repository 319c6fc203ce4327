package logger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type moduleOptions struct {
	config *Config
}

// Option is a functional option for the logging module.
type Option func(*moduleOptions)

// WithLoggerConfig provides a static Config instead of the viper "logger" section.
func WithLoggerConfig(cfg Config) Option {
	return func(opts *moduleOptions) {
		opts.config = &cfg
	}
}

// NewZapLoggingModule provides a configured *zap.Logger and routes fx
// events through it.
func NewZapLoggingModule(opts ...Option) fx.Option {
	o := &moduleOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		fx.Provide(
			func(v *viper.Viper) (Config, error) {
				if o.config != nil {
					return *o.config, nil
				}
				return newConfig(v)
			},
			provideLogger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
	)
}

func provideLogger(lc fx.Lifecycle, conf Config) (*zap.Logger, error) {
	log, _, err := New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return Sync(log)
		},
	})

	return log, nil
}

// Sync flushes log, ignoring the errors syncing a terminal produces.
func Sync(log *zap.Logger) error {
	err := log.Sync()
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && (errors.Is(pathErr.Err, syscall.EINVAL) || errors.Is(pathErr.Err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
