package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type viperConfig struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption is a functional option for configuring the Viper module.
type ViperOption func(*viperConfig)

// WithConfigPath sets a direct path to the configuration file,
// overriding CONFIG_FILE.
func WithConfigPath(path string) ViperOption {
	return func(cfg *viperConfig) {
		cfg.configPath = &path
	}
}

// WithoutConfigFile disables loading of any config file.
// Viper is still provided, backed by the environment only.
func WithoutConfigFile() ViperOption {
	return func(cfg *viperConfig) {
		cfg.noConfigFile = true
	}
}

// FilePath is the path of the configuration file. Empty means none.
type FilePath string

// NewViperModule provides *viper.Viper. The config file comes from
// WithConfigPath, else from CONFIG_FILE, else there is none.
func NewViperModule(opts ...ViperOption) fx.Option {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("viper",
		fx.Supply(resolveConfigPath(cfg)),
		fx.Provide(func(path FilePath) (*viper.Viper, error) {
			return NewViper(string(path))
		}),
		fx.Invoke(logViperConfig),
	)
}

func logViperConfig(logger *zap.Logger, v *viper.Viper) {
	logger.Debug("configuration loaded",
		zap.String("configFile", v.ConfigFileUsed()),
		zap.Strings("configKeys", v.AllKeys()),
	)
}

func resolveConfigPath(cfg *viperConfig) FilePath {
	if cfg.noConfigFile {
		return ""
	}
	if cfg.configPath != nil {
		return FilePath(*cfg.configPath)
	}
	return FilePath(os.Getenv(envConfigFile))
}

// NewViper builds a viper instance that reads configFile (when set) and lets
// environment variables override any key: "kafka.schema-registry.url" is
// read from KAFKA_SCHEMA_REGISTRY_URL.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", configFile, err)
	}
	return v, nil
}

// Section unmarshals the sub tree at key into out. A missing section
// leaves out untouched. Environment overrides of keys present in the file
// are honored through the sub tree.
func Section(v *viper.Viper, key string, out any) error {
	sub := v.Sub(key)
	if sub == nil {
		return nil
	}
	if err := sub.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to load %s config: %w", key, err)
	}
	return nil
}
