package avro

import (
	"fmt"
	"os"
	"strings"

	hambavro "github.com/hamba/avro/v2"
	"github.com/samber/lo"
)

// Schema is an immutable named record type.
type Schema struct {
	rec *hambavro.RecordSchema
}

// FieldInfo is the name and type tag of a schema field.
type FieldInfo struct {
	Name string
	Type string
}

// NewSchema wraps an already parsed record schema.
func NewSchema(rec *hambavro.RecordSchema) *Schema {
	return &Schema{rec: rec}
}

// ParseSchema parses an Avro schema document. The top level type must be a
// record and every nested type must be representable by Value.
func ParseSchema(schemaJSON string) (*Schema, error) {
	parsed, err := hambavro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse avro schema: %w", err)
	}
	rec, ok := parsed.(*hambavro.RecordSchema)
	if !ok {
		return nil, fmt.Errorf("expected record schema, got %s", parsed.Type())
	}
	if err := checkSupported(rec, "", map[string]bool{}); err != nil {
		return nil, err
	}
	return NewSchema(rec), nil
}

// LoadSchemaFile reads and parses a schema file (.avsc).
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return ParseSchema(string(data))
}

// MustParseSchema is like ParseSchema but panics on error.
func MustParseSchema(schemaJSON string) *Schema {
	s, err := ParseSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string      { return s.rec.Name() }
func (s *Schema) Namespace() string { return s.rec.Namespace() }
func (s *Schema) FullName() string  { return s.rec.FullName() }

// Avro returns the underlying record schema.
func (s *Schema) Avro() *hambavro.RecordSchema { return s.rec }

// String returns the parsing canonical form of the schema.
func (s *Schema) String() string { return s.rec.String() }

// JSON returns the full schema document, including defaults and docs.
func (s *Schema) JSON() ([]byte, error) {
	return s.rec.MarshalJSON()
}

// Fields returns the ordered field names and type tags.
func (s *Schema) Fields() []FieldInfo {
	return lo.Map(s.rec.Fields(), func(f *hambavro.Field, _ int) FieldInfo {
		return FieldInfo{Name: f.Name(), Type: typeTag(f.Type())}
	})
}

// FieldNames returns the ordered field names.
func (s *Schema) FieldNames() []string {
	return lo.Map(s.rec.Fields(), func(f *hambavro.Field, _ int) string { return f.Name() })
}

// Validate checks that rec can be encoded with the schema. It returns a
// *SchemaMismatchError describing the first offending field.
func (s *Schema) Validate(rec *Record) error {
	_, err := encodeRecord(s.rec, rec, "")
	return err
}

// Project returns a copy of rec without the fields the schema does not
// declare, along with the names that were dropped.
func (s *Schema) Project(rec *Record) (*Record, []string) {
	known := lo.SliceToMap(s.rec.Fields(), func(f *hambavro.Field) (string, struct{}) {
		return f.Name(), struct{}{}
	})
	out := NewRecord()
	var dropped []string
	for _, f := range rec.Fields() {
		if _, ok := known[f.Name]; !ok {
			dropped = append(dropped, f.Name)
			continue
		}
		out.Set(f.Name, f.Value)
	}
	return out, dropped
}

// Equal reports whether both schemas share the same canonical form.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.String() == o.String()
}

func typeTag(schema hambavro.Schema) string {
	switch t := schema.(type) {
	case *hambavro.RefSchema:
		return t.Schema().FullName()
	case *hambavro.RecordSchema:
		return t.FullName()
	case *hambavro.UnionSchema:
		return strings.Join(lo.Map(t.Types(), func(b hambavro.Schema, _ int) string {
			return typeTag(b)
		}), "|")
	case hambavro.NamedSchema:
		return t.FullName()
	default:
		return string(schema.Type())
	}
}

func checkSupported(schema hambavro.Schema, path string, seen map[string]bool) error {
	switch t := schema.(type) {
	case *hambavro.RefSchema:
		return nil
	case *hambavro.RecordSchema:
		if seen[t.FullName()] {
			return nil
		}
		seen[t.FullName()] = true
		for _, f := range t.Fields() {
			if err := checkSupported(f.Type(), joinPath(path, f.Name()), seen); err != nil {
				return err
			}
		}
		return nil
	case *hambavro.UnionSchema:
		for _, b := range t.Types() {
			if err := checkSupported(b, path, seen); err != nil {
				return err
			}
		}
		return nil
	case *hambavro.NullSchema, *hambavro.PrimitiveSchema:
		return nil
	default:
		return fmt.Errorf("unsupported avro type %s at field %q", schema.Type(), path)
	}
}
