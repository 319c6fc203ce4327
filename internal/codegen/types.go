package codegen

import (
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/ettle/strcase"
	hambavro "github.com/hamba/avro/v2"
)

const avroImport = "github.com/Sokol111/avropipe/pkg/avro"

type structDef struct {
	name     string
	fullName string
	doc      string
	fields   []jen.Code
}

// collectStructs walks the record tree depth first and returns one struct
// per distinct record name, root first.
func collectStructs(root *hambavro.RecordSchema) ([]structDef, error) {
	var out []structDef
	seen := map[string]bool{}

	var walk func(rec *hambavro.RecordSchema) error
	walk = func(rec *hambavro.RecordSchema) error {
		if seen[rec.FullName()] {
			return nil
		}
		seen[rec.FullName()] = true

		def := structDef{name: typeName(rec), fullName: rec.FullName(), doc: rec.Doc()}
		var nested []*hambavro.RecordSchema
		for _, field := range rec.Fields() {
			typ, deps, err := goType(field.Type())
			if err != nil {
				return fmt.Errorf("field %s.%s: %w", rec.FullName(), field.Name(), err)
			}
			nested = append(nested, deps...)

			stmt := jen.Id(strcase.ToGoPascal(field.Name())).Add(typ).Tag(map[string]string{
				"avro": field.Name(),
				"json": field.Name(),
			})
			if field.Doc() != "" {
				stmt.Comment(field.Doc())
			}
			def.fields = append(def.fields, stmt)
		}
		out = append(out, def)

		for _, n := range nested {
			if err := walk(n); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// goType returns the Go type of an Avro type along with any records it
// references that still need a struct.
func goType(schema hambavro.Schema) (*jen.Statement, []*hambavro.RecordSchema, error) {
	switch t := schema.(type) {
	case *hambavro.RefSchema:
		return jen.Id(typeName(t.Schema())), nil, nil
	case *hambavro.RecordSchema:
		return jen.Id(typeName(t)), []*hambavro.RecordSchema{t}, nil
	case *hambavro.NullSchema:
		return jen.Any(), nil, nil
	case *hambavro.PrimitiveSchema:
		return primitiveType(t)
	case *hambavro.UnionSchema:
		if !t.Nullable() {
			return jen.Any(), nil, nil
		}
		for _, branch := range t.Types() {
			if branch.Type() == hambavro.Null {
				continue
			}
			typ, deps, err := goType(branch)
			if err != nil {
				return nil, nil, err
			}
			return jen.Op("*").Add(typ), deps, nil
		}
		return jen.Any(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported avro type %s", schema.Type())
	}
}

func primitiveType(t *hambavro.PrimitiveSchema) (*jen.Statement, []*hambavro.RecordSchema, error) {
	if logical := t.Logical(); logical != nil {
		switch logical.Type() {
		case hambavro.TimestampMillis, hambavro.TimestampMicros,
			hambavro.LocalTimestampMillis, hambavro.LocalTimestampMicros, hambavro.Date:
			return jen.Qual("time", "Time"), nil, nil
		case hambavro.TimeMillis, hambavro.TimeMicros:
			return jen.Qual("time", "Duration"), nil, nil
		case hambavro.Decimal:
			return jen.Op("*").Qual("math/big", "Rat"), nil, nil
		}
	}

	switch t.Type() {
	case hambavro.Boolean:
		return jen.Bool(), nil, nil
	case hambavro.Int:
		return jen.Int32(), nil, nil
	case hambavro.Long:
		return jen.Int64(), nil, nil
	case hambavro.Float:
		return jen.Float32(), nil, nil
	case hambavro.Double:
		return jen.Float64(), nil, nil
	case hambavro.Bytes:
		return jen.Index().Byte(), nil, nil
	case hambavro.String:
		return jen.String(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported primitive %s", t.Type())
	}
}

func typeName(n hambavro.NamedSchema) string {
	return strcase.ToGoPascal(n.Name())
}
