package logger

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is the minimum enabled level.
	Level zapcore.Level

	// Development switches to console encoding with human readable timestamps.
	Development bool

	// OutputPaths lists URLs or file paths to write logs to. Defaults to stderr,
	// which keeps stdout free for records.
	OutputPaths []string

	// ErrorOutputPaths lists URLs or file paths for internal logger errors.
	ErrorOutputPaths []string

	// StacktraceLevel is the minimum level at which stacktraces are captured.
	StacktraceLevel zapcore.Level
}

// DefaultConfig is used when no logger section is configured.
func DefaultConfig() Config {
	return Config{
		Level:           zapcore.InfoLevel,
		StacktraceLevel: zapcore.ErrorLevel,
	}
}

func (c Config) Validate() error {
	if err := validatePaths(c.OutputPaths, "outputPaths"); err != nil {
		return err
	}
	return validatePaths(c.ErrorOutputPaths, "errorOutputPaths")
}

func validatePaths(paths []string, fieldName string) error {
	for i, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%s[%d] cannot be empty or whitespace", fieldName, i)
		}
	}
	return nil
}

func newConfig(v *viper.Viper) (Config, error) {
	sub := v.Sub("logger")
	if sub == nil {
		return DefaultConfig(), nil
	}

	var raw struct {
		Level            string   `mapstructure:"level"`
		Development      bool     `mapstructure:"development"`
		OutputPaths      []string `mapstructure:"outputPaths"`
		ErrorOutputPaths []string `mapstructure:"errorOutputPaths"`
		StacktraceLevel  string   `mapstructure:"stacktraceLevel"`
	}
	if err := sub.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("failed to load logger config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Development = raw.Development
	cfg.OutputPaths = raw.OutputPaths
	cfg.ErrorOutputPaths = raw.ErrorOutputPaths

	if raw.Level != "" {
		level, err := zapcore.ParseLevel(raw.Level)
		if err != nil {
			return Config{}, fmt.Errorf("invalid log level '%s': %w", raw.Level, err)
		}
		cfg.Level = level
	}
	if raw.StacktraceLevel != "" {
		level, err := zapcore.ParseLevel(raw.StacktraceLevel)
		if err != nil {
			return Config{}, fmt.Errorf("invalid stacktrace level '%s': %w", raw.StacktraceLevel, err)
		}
		cfg.StacktraceLevel = level
	}

	return cfg, nil
}
