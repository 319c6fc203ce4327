package codegen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"

	"github.com/Sokol111/avropipe/pkg/avro"
)

const header = "Code generated by avropipe gen. DO NOT EDIT."

// Generator renders Go types for one schema file.
type Generator struct {
	config *Config
	out    io.Writer
}

// New validates cfg and returns a generator.
func New(cfg *Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.AbsolutePaths(); err != nil {
		return nil, err
	}
	return &Generator{config: cfg, out: os.Stdout}, nil
}

// Generate loads the schema and writes the generated file.
func (g *Generator) Generate() error {
	g.log("Loading schema %s", g.config.SchemaFile)
	schema, err := avro.LoadSchemaFile(g.config.SchemaFile)
	if err != nil {
		return err
	}

	f, err := Render(schema, g.config.Package)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(g.config.OutputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.Save(g.config.OutputFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", g.config.OutputFile, err)
	}

	g.log("  Created %s", filepath.Base(g.config.OutputFile))
	return nil
}

// Render builds the Go file for schema. Nested records become their own
// struct types, declared after the type that first references them.
func Render(schema *avro.Schema, pkg string) (*jen.File, error) {
	doc, err := schema.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	structs, err := collectStructs(schema.Avro())
	if err != nil {
		return nil, err
	}

	f := jen.NewFile(pkg)
	f.HeaderComment(header)

	base := typeName(schema.Avro())
	f.Commentf("%sSchemaJSON is the Avro schema of %s.", base, base)
	f.Const().Id(base + "SchemaJSON").Op("=").Lit(string(doc))
	f.Line()

	f.Commentf("%sSchema is the parsed form of %sSchemaJSON.", base, base)
	f.Var().Id(base+"Schema").Op("=").Qual(avroImport, "MustParseSchema").Call(jen.Id(base + "SchemaJSON"))
	f.Line()

	for _, s := range structs {
		if s.doc != "" {
			f.Comment(s.doc)
		} else {
			f.Commentf("%s maps the %s record.", s.name, s.fullName)
		}
		f.Type().Id(s.name).Struct(s.fields...)
		f.Line()
	}

	return f, nil
}

func (g *Generator) log(format string, args ...any) {
	if g.config.Verbose {
		_, _ = fmt.Fprintf(g.out, format+"\n", args...)
	}
}
