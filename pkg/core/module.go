package core

import (
	"time"

	"github.com/Sokol111/avropipe/pkg/core/config"
	"github.com/Sokol111/avropipe/pkg/core/health"
	"github.com/Sokol111/avropipe/pkg/core/logger"
	"go.uber.org/fx"
)

type coreOptions struct {
	appConfig     *config.AppConfig
	loggerConfig  *logger.Config
	configPath    string
	disableDotEnv bool
	noConfigFile  bool
}

// Option is a functional option for configuring the core module.
type Option func(*coreOptions)

// WithAppConfig provides a static AppConfig (useful for tests).
func WithAppConfig(cfg config.AppConfig) Option {
	return func(opts *coreOptions) {
		opts.appConfig = &cfg
	}
}

// WithLoggerConfig provides a static logger Config (useful for tests).
func WithLoggerConfig(cfg logger.Config) Option {
	return func(opts *coreOptions) {
		opts.loggerConfig = &cfg
	}
}

// WithConfigFile reads configuration from path instead of CONFIG_FILE.
func WithConfigFile(path string) Option {
	return func(opts *coreOptions) {
		opts.configPath = path
	}
}

// WithoutEnvFile disables loading of the .env file.
func WithoutEnvFile() Option {
	return func(opts *coreOptions) {
		opts.disableDotEnv = true
	}
}

// WithoutConfigFile disables loading of any config file.
func WithoutConfigFile() Option {
	return func(opts *coreOptions) {
		opts.noConfigFile = true
	}
}

// NewCoreModule provides config, logger and readiness tracking.
//
//	core.NewCoreModule(
//	    core.WithLoggerConfig(logger.Config{Level: zapcore.DebugLevel}),
//	    core.WithoutEnvFile(),
//	    core.WithoutConfigFile(),
//	)
func NewCoreModule(opts ...Option) fx.Option {
	cfg := &coreOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Options(
		fx.StartTimeout(time.Minute),
		fx.StopTimeout(time.Minute),

		dotEnvModule(cfg),
		viperModule(cfg),
		appConfigModule(cfg),
		loggerModule(cfg),
		health.NewReadinessModule(),
	)
}

func dotEnvModule(cfg *coreOptions) fx.Option {
	if cfg.disableDotEnv {
		return fx.Options()
	}
	return config.NewDotEnvModule()
}

func viperModule(cfg *coreOptions) fx.Option {
	switch {
	case cfg.noConfigFile:
		return config.NewViperModule(config.WithoutConfigFile())
	case cfg.configPath != "":
		return config.NewViperModule(config.WithConfigPath(cfg.configPath))
	default:
		return config.NewViperModule()
	}
}

func appConfigModule(cfg *coreOptions) fx.Option {
	if cfg.appConfig != nil {
		return config.NewAppConfigModule(config.WithAppConfig(*cfg.appConfig))
	}
	return config.NewAppConfigModule()
}

func loggerModule(cfg *coreOptions) fx.Option {
	if cfg.loggerConfig != nil {
		return logger.NewZapLoggingModule(logger.WithLoggerConfig(*cfg.loggerConfig))
	}
	return logger.NewZapLoggingModule()
}
