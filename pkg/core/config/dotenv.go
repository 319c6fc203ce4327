package config

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type dotenvConfig struct {
	paths  []string
	loaded []string
}

// DotEnvOption is a functional option for configuring the dotenv module.
type DotEnvOption func(*dotenvConfig)

// WithDotEnvPaths replaces the list of .env files to load. Missing files are skipped.
func WithDotEnvPaths(paths ...string) DotEnvOption {
	return func(cfg *dotenvConfig) {
		cfg.paths = paths
	}
}

// NewDotEnvModule loads environment variables from .env files.
// Loading happens when the module is created so that later providers see
// the variables. Variables already set in the environment win.
func NewDotEnvModule(opts ...DotEnvOption) fx.Option {
	cfg := &dotenvConfig{paths: []string{".env"}}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.loaded = loadDotEnv(cfg.paths)

	return fx.Module("dotenv",
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if len(cfg.loaded) > 0 {
						logger.Debug("loaded .env files", zap.Strings("paths", cfg.loaded))
					}
					return nil
				},
			})
		}),
	)
}

func loadDotEnv(paths []string) []string {
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}
