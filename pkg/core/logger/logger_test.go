package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "development", cfg: Config{Level: zapcore.DebugLevel, Development: true}},
		{name: "production", cfg: Config{Level: zapcore.WarnLevel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := defaultLogger
			t.Cleanup(func() { defaultLogger = original })

			log, level, err := New(tt.cfg)

			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Equal(t, tt.cfg.Level, level.Level())
			assert.Same(t, log, defaultLogger)
			assert.Same(t, log, zap.L())
		})
	}
}

func TestNew_WritesToOutputPath(t *testing.T) {
	// Arrange
	original := defaultLogger
	t.Cleanup(func() { defaultLogger = original })
	path := filepath.Join(t.TempDir(), "out.log")

	// Act
	log, _, err := New(Config{Level: zapcore.InfoLevel, OutputPaths: []string{path}})
	require.NoError(t, err)
	log.Info("hello")

	// Assert
	require.NoError(t, log.Sync())
	assert.FileExists(t, path)
}

func TestNew_InvalidOutputPath(t *testing.T) {
	_, _, err := New(Config{OutputPaths: []string{"  "}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outputPaths[0]")
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults without section", func(t *testing.T) {
		cfg, err := newConfig(viper.New())

		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("parses levels", func(t *testing.T) {
		v := viper.New()
		v.Set("logger.level", "debug")
		v.Set("logger.stacktraceLevel", "fatal")
		v.Set("logger.development", true)

		cfg, err := newConfig(v)

		require.NoError(t, err)
		assert.Equal(t, zapcore.DebugLevel, cfg.Level)
		assert.Equal(t, zapcore.FatalLevel, cfg.StacktraceLevel)
		assert.True(t, cfg.Development)
	})

	t.Run("invalid level", func(t *testing.T) {
		v := viper.New()
		v.Set("logger.level", "loud")

		_, err := newConfig(v)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestContext(t *testing.T) {
	original := defaultLogger
	defaultLogger = zap.NewNop()
	t.Cleanup(func() { defaultLogger = original })

	core, _ := observer.New(zapcore.InfoLevel)
	custom := zap.New(core)

	assert.Same(t, defaultLogger, Get(nil)) //nolint:staticcheck // nil context is supported
	assert.Same(t, defaultLogger, Get(context.Background()))
	assert.Same(t, custom, Get(With(context.Background(), custom)))
	assert.Same(t, custom, Get(With(nil, custom))) //nolint:staticcheck // nil context is supported
}
