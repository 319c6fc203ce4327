package avro

import (
	"errors"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Field is a named value inside a Record.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for building a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Record is an ordered association of field names to values.
// Field order is insertion order; replacing a field keeps its position.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields in the given order.
// A repeated name replaces the earlier value in place.
func NewRecord(fields ...Field) *Record {
	r := &Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// RecordFromMap converts a native map into a record. Go maps carry no order,
// so fields are laid out by sorted key name.
func RecordFromMap(m map[string]any) (*Record, error) {
	keys := lo.Keys(m)
	slices.Sort(keys)

	r := NewRecord()
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			var inferErr *SchemaInferenceError
			if errors.As(err, &inferErr) {
				inferErr.Field = joinPath(k, inferErr.Field)
			}
			return nil, err
		}
		r.Set(k, v)
	}
	return r, nil
}

// Set assigns a field value. New names are appended.
func (r *Record) Set(name string, v Value) *Record {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return r
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
	return r
}

// Get returns the value for name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return slices.Clone(r.fields)
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	return lo.Map(r.fields, func(f Field, _ int) string { return f.Name })
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Map returns the native view of the record. Nested records become nested maps.
func (r *Record) Map() map[string]any {
	if r == nil {
		return nil
	}
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

// Equal compares two records field by field, ignoring field order.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.fields) != len(o.fields) {
		return false
	}
	for _, f := range r.fields {
		ov, ok := o.Get(f.Name)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	if r == nil {
		return "{}"
	}
	parts := lo.Map(r.fields, func(f Field, _ int) string {
		return f.Name + ": " + f.Value.String()
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

func joinPath(parent, child string) string {
	if child == "" {
		return parent
	}
	if parent == "" {
		return child
	}
	return parent + "." + child
}
