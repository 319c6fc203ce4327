// Package main provides the avropipe CLI.
//
// Usage:
//
//	avropipe convert --in orders.jsonl --out orders.avro --codec snappy
//	avropipe cat orders.avro -n 10
//	avropipe export --config config.yaml --out orders.avro
//	avropipe publish --config config.yaml --in orders.avro --topic orders
//
// Local commands (cat, schema, infer, convert, gen) need no configuration.
// export and publish run as an fx application configured from the file
// given with --config (or CONFIG_FILE) and the environment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Sokol111/avropipe/pkg/core/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "avropipe",
		Short:         "Read, write and move Avro container files",
		Long:          `avropipe converts JSON lines to Avro container files, inspects them, exports MongoDB collections and publishes records to Kafka.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newCatCmd(opts),
		newSchemaCmd(),
		newInferCmd(),
		newConvertCmd(opts),
		newExportCmd(opts),
		newPublishCmd(opts),
		newGenCmd(opts),
	)

	return rootCmd
}

// logger builds the logger of the local commands. It writes to stderr so
// stdout carries only command output.
func (o *rootOptions) logger() (*zap.Logger, error) {
	log, _, err := logger.New(o.loggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func (o *rootOptions) loggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = zapcore.WarnLevel
	if o.verbose {
		cfg.Level = zapcore.DebugLevel
		cfg.Development = true
	}
	return cfg
}
