package avro

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Sokol111/avropipe/pkg/core/config"
)

// Config is the "avro" configuration section.
type Config struct {
	SchemaFile       string            `mapstructure:"schema-file"`
	RecordName       string            `mapstructure:"record-name"`
	Namespace        string            `mapstructure:"namespace"`
	Codec            string            `mapstructure:"codec"`
	BlockLength      int               `mapstructure:"block-length"`
	CompressionLevel *int              `mapstructure:"compression-level"`
	Metadata         map[string]string `mapstructure:"metadata"`
}

func newConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := config.Section(v, "avro", &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid avro config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RecordName == "" {
		c.RecordName = DefaultRecordName
	}
	if c.BlockLength == 0 {
		c.BlockLength = 100
	}
}

func (c Config) Validate() error {
	var errs []error
	if _, err := ParseCodec(c.Codec); err != nil {
		errs = append(errs, err)
	}
	if c.BlockLength < 0 {
		errs = append(errs, errors.New("block-length must not be negative"))
	}
	if c.CompressionLevel != nil && (*c.CompressionLevel < -1 || *c.CompressionLevel > 9) {
		errs = append(errs, fmt.Errorf("compression-level %d is out of range [-1, 9]", *c.CompressionLevel))
	}
	return errors.Join(errs...)
}

// LoadSchema loads SchemaFile, returning nil when none is configured.
func (c Config) LoadSchema() (*Schema, error) {
	if c.SchemaFile == "" {
		return nil, nil
	}
	return LoadSchemaFile(c.SchemaFile)
}

// WriterOptions translates the section into writer options.
func (c Config) WriterOptions() ([]WriterOption, error) {
	codec, err := ParseCodec(c.Codec)
	if err != nil {
		return nil, err
	}
	opts := []WriterOption{
		WithCodec(codec),
		WithBlockLength(c.BlockLength),
		WithInference(WithRecordName(c.RecordName), WithNamespace(c.Namespace)),
	}
	if c.CompressionLevel != nil {
		opts = append(opts, WithCompressionLevel(*c.CompressionLevel))
	}
	if len(c.Metadata) > 0 {
		opts = append(opts, WithMetadata(c.Metadata))
	}
	return opts, nil
}
