package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from conf and installs it as the global and
// default logger.
func New(conf Config) (*zap.Logger, zap.AtomicLevel, error) {
	if err := conf.Validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logger configuration validation failed: %w", err)
	}

	var cfg zap.Config
	if conf.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	atomicLevel := zap.NewAtomicLevelAt(conf.Level)
	cfg.Level = atomicLevel
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if len(conf.OutputPaths) > 0 {
		cfg.OutputPaths = conf.OutputPaths
	}
	if len(conf.ErrorOutputPaths) > 0 {
		cfg.ErrorOutputPaths = conf.ErrorOutputPaths
	}

	log, err := cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(conf.StacktraceLevel),
	)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	zap.ReplaceGlobals(log)
	defaultLogger = log

	log.Debug("logger initialized",
		zap.String("level", conf.Level.String()),
		zap.Bool("development", conf.Development),
	)

	return log, atomicLevel, nil
}
