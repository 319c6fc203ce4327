package config

import (
	"cmp"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Environment variable names
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
)

// Defaults used when the environment does not name the service.
const (
	DefaultServiceName    = "avropipe"
	DefaultServiceVersion = "dev"
	DefaultEnvironment    = "local"
)

// AppConfig identifies the running process. It feeds the telemetry
// resource and the startup log line.
type AppConfig struct {
	ServiceName    string
	ServiceVersion string
	// Environment is the deployment environment (e.g. "local", "staging", "pro")
	Environment string
}

type appConfigOptions struct {
	config *AppConfig
}

// AppConfigOption is a functional option for the app config module.
type AppConfigOption func(*appConfigOptions)

// WithAppConfig provides a static AppConfig (useful for tests).
func WithAppConfig(cfg AppConfig) AppConfigOption {
	return func(opts *appConfigOptions) {
		opts.config = &cfg
	}
}

// NewAppConfigModule provides AppConfig, loaded from APP_ENV,
// APP_SERVICE_NAME and APP_SERVICE_VERSION unless a static one is given.
// Unset variables fall back to the defaults above.
func NewAppConfigModule(opts ...AppConfigOption) fx.Option {
	o := &appConfigOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("appconfig",
		fx.Provide(func() AppConfig {
			if o.config != nil {
				return *o.config
			}
			return LoadAppConfig()
		}),
		fx.Invoke(func(logger *zap.Logger, conf AppConfig) {
			logger.Debug("loaded application configuration",
				zap.String("service", conf.ServiceName),
				zap.String("version", conf.ServiceVersion),
				zap.String("environment", conf.Environment),
			)
		}),
	)
}

// LoadAppConfig reads the application identity from the environment.
func LoadAppConfig() AppConfig {
	return AppConfig{
		ServiceName:    cmp.Or(os.Getenv(envAppServiceName), DefaultServiceName),
		ServiceVersion: cmp.Or(os.Getenv(envAppServiceVersion), DefaultServiceVersion),
		Environment:    cmp.Or(os.Getenv(envAppEnv), DefaultEnvironment),
	}
}
