package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewViper_ReadsYAML(t *testing.T) {
	// Arrange
	path := writeConfig(t, "config.yaml", `
avro:
  codec: deflate
  block-length: 500
kafka:
  brokers: localhost:9092
`)

	// Act
	v, err := NewViper(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "deflate", v.GetString("avro.codec"))
	assert.Equal(t, 500, v.GetInt("avro.block-length"))
	assert.Equal(t, "localhost:9092", v.GetString("kafka.brokers"))
}

func TestNewViper_NoFile(t *testing.T) {
	// Act
	v, err := NewViper("")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, v.AllSettings())
}

func TestNewViper_FileNotFound(t *testing.T) {
	// Act
	v, err := NewViper("/nonexistent/path/config.yaml")

	// Assert
	require.Error(t, err)
	assert.Nil(t, v)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewViper_InvalidYAML(t *testing.T) {
	// Arrange
	path := writeConfig(t, "config.yaml", "avro:\n  codec: null\ninvalid yaml: [[[\n")

	// Act
	_, err := NewViper(path)

	// Assert
	require.Error(t, err)
}

func TestNewViper_EnvKeyReplacer(t *testing.T) {
	// Arrange
	path := writeConfig(t, "config.yaml", `
kafka:
  schema-registry:
    url: http://from-file
`)
	t.Setenv("KAFKA_SCHEMA_REGISTRY_URL", "http://from-env")

	// Act
	v, err := NewViper(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", v.GetString("kafka.schema-registry.url"))
}

func TestSection(t *testing.T) {
	type mongoSection struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		BatchSize int32  `mapstructure:"batch-size"`
	}

	t.Run("unmarshals sub tree", func(t *testing.T) {
		// Arrange
		path := writeConfig(t, "config.yaml", `
mongo:
  host: localhost
  port: 27017
  batch-size: 100
`)
		v, err := NewViper(path)
		require.NoError(t, err)

		// Act
		var cfg mongoSection
		err = Section(v, "mongo", &cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, mongoSection{Host: "localhost", Port: 27017, BatchSize: 100}, cfg)
	})

	t.Run("env overrides file value", func(t *testing.T) {
		// Arrange
		path := writeConfig(t, "config.yaml", `
mongo:
  host: localhost
  port: 27017
`)
		t.Setenv("MONGO_PORT", "27018")
		v, err := NewViper(path)
		require.NoError(t, err)

		// Act
		var cfg mongoSection
		err = Section(v, "mongo", &cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 27018, cfg.Port)
	})

	t.Run("missing section leaves value untouched", func(t *testing.T) {
		// Arrange
		v, err := NewViper("")
		require.NoError(t, err)
		cfg := mongoSection{Host: "keep"}

		// Act
		err = Section(v, "mongo", &cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "keep", cfg.Host)
	})
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		explicit := "/explicit.yaml"
		path := resolveConfigPath(&viperConfig{configPath: &explicit})
		assert.Equal(t, FilePath("/explicit.yaml"), path)
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath("/from/env.yaml"), resolveConfigPath(&viperConfig{}))
	})

	t.Run("disabled", func(t *testing.T) {
		t.Setenv(envConfigFile, "/from/env.yaml")
		assert.Equal(t, FilePath(""), resolveConfigPath(&viperConfig{noConfigFile: true}))
	})
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(envAppEnv, "")
		t.Setenv(envAppServiceName, "")
		t.Setenv(envAppServiceVersion, "")

		cfg := LoadAppConfig()

		assert.Equal(t, AppConfig{
			ServiceName:    DefaultServiceName,
			ServiceVersion: DefaultServiceVersion,
			Environment:    DefaultEnvironment,
		}, cfg)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv(envAppEnv, "staging")
		t.Setenv(envAppServiceName, "exporter")
		t.Setenv(envAppServiceVersion, "1.2.3")

		cfg := LoadAppConfig()

		assert.Equal(t, "staging", cfg.Environment)
		assert.Equal(t, "exporter", cfg.ServiceName)
		assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	})
}
