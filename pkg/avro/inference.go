package avro

import (
	"fmt"

	"github.com/ettle/strcase"
	hambavro "github.com/hamba/avro/v2"
)

// DefaultRecordName names inferred schemas when no name is configured.
const DefaultRecordName = "UnknownType"

type inferOptions struct {
	name      string
	namespace string
}

// InferOption configures InferSchema.
type InferOption func(*inferOptions)

// WithRecordName sets the name of the inferred top level record.
func WithRecordName(name string) InferOption {
	return func(o *inferOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithNamespace sets the namespace of the inferred records.
func WithNamespace(ns string) InferOption {
	return func(o *inferOptions) {
		o.namespace = ns
	}
}

// InferSchema derives a record schema from a single record. Fields keep the
// record's order and each value kind maps to exactly one Avro primitive.
// Nested records become nested record types named after their parent and
// field. Nothing is unified across records: only rec is looked at.
func InferSchema(rec *Record, opts ...InferOption) (*Schema, error) {
	o := inferOptions{name: DefaultRecordName}
	for _, opt := range opts {
		opt(&o)
	}

	rs, err := inferRecord(rec, o.name, o.namespace, "")
	if err != nil {
		return nil, err
	}
	return NewSchema(rs), nil
}

func inferRecord(rec *Record, name, namespace, path string) (*hambavro.RecordSchema, error) {
	fields := make([]*hambavro.Field, 0, rec.Len())
	for _, f := range rec.Fields() {
		fieldPath := joinPath(path, f.Name)
		typ, err := inferType(f, name, namespace, fieldPath)
		if err != nil {
			return nil, err
		}
		field, err := hambavro.NewField(f.Name, typ)
		if err != nil {
			return nil, &SchemaInferenceError{Field: fieldPath, TypeName: f.Value.Kind().String(), Err: err}
		}
		fields = append(fields, field)
	}

	rs, err := hambavro.NewRecordSchema(name, namespace, fields)
	if err != nil {
		return nil, &SchemaInferenceError{Field: path, TypeName: KindRecord.String(), Err: err}
	}
	return rs, nil
}

func inferType(f Field, parent, namespace, path string) (hambavro.Schema, error) {
	switch k := f.Value.Kind(); k {
	case KindRecord:
		return inferRecord(f.Value.AsRecord(), parent+strcase.ToPascal(f.Name), namespace, path)
	case KindNull:
		return hambavro.NewNullSchema(), nil
	default:
		t, ok := kindTypes[k]
		if !ok {
			return nil, &SchemaInferenceError{Field: path, TypeName: fmt.Sprintf("avro.Value(%s)", k)}
		}
		return hambavro.NewPrimitiveSchema(t, nil), nil
	}
}
