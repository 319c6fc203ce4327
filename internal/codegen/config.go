// Package codegen generates Go struct types from an Avro record schema.
//
// The generated types carry `avro` tags, so they can be passed straight to
// hamba/avro Marshal and Unmarshal, and the schema document is embedded as
// a constant next to them.
//
// Basic usage:
//
//	gen, err := codegen.New(&codegen.Config{
//		SchemaFile: "./order.avsc",
//		OutputFile: "./gen/order.gen.go",
//		Package:    "orders",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := gen.Generate(); err != nil {
//		log.Fatal(err)
//	}
package codegen

import (
	"errors"
	"fmt"
	"path/filepath"
)

const defaultPackage = "records"

// Config holds the configuration for the generator.
type Config struct {
	// SchemaFile is the .avsc file holding a record schema. Required.
	SchemaFile string
	// OutputFile is where the generated code is written. Required.
	OutputFile string
	// Package is the Go package name of the generated file. Defaults to "records".
	Package string
	// Verbose enables progress output during generation.
	Verbose bool
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.SchemaFile == "" {
		errs = append(errs, errors.New("schema file is required"))
	}
	if c.OutputFile == "" {
		errs = append(errs, errors.New("output file is required"))
	}
	if c.Package == "" {
		c.Package = defaultPackage
	}
	return errors.Join(errs...)
}

// AbsolutePaths converts relative paths to absolute paths.
func (c *Config) AbsolutePaths() error {
	var err error
	if c.SchemaFile, err = filepath.Abs(c.SchemaFile); err != nil {
		return fmt.Errorf("failed to resolve schema file: %w", err)
	}
	if c.OutputFile, err = filepath.Abs(c.OutputFile); err != nil {
		return fmt.Errorf("failed to resolve output file: %w", err)
	}
	return nil
}
