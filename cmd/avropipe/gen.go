package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sokol111/avropipe/internal/codegen"
)

func newGenCmd(opts *rootOptions) *cobra.Command {
	cfg := &codegen.Config{}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go types from an Avro schema",
		Long: `Generate Go types from an Avro schema.

Every record of the schema becomes a struct with avro and json tags, and
the schema document is embedded next to them.

Example:
  avropipe gen --schema order.avsc --out gen/orders/order.gen.go --package orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Verbose = opts.verbose
			return runGen(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.SchemaFile, "schema", "s", "", "Schema file (.avsc) (required)")
	cmd.Flags().StringVarP(&cfg.OutputFile, "out", "o", "", "Output Go file (required)")
	cmd.Flags().StringVarP(&cfg.Package, "package", "p", "records", "Go package name of the generated file")

	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runGen(cfg *codegen.Config) error {
	gen, err := codegen.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	if err := gen.Generate(); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}
