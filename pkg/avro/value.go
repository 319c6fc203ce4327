package avro

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindInvalid is the kind of the zero Value. It maps to no Avro type.
	KindInvalid Kind = iota
	KindNull
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindRecord
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBytes:   "bytes",
	KindString:  "string",
	KindRecord:  "record",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a tagged union of the values a record field can hold.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	rec  *Record
}

// Null returns a null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBoolean, b: v} }

// Int returns a 32-bit integer value.
func Int(v int32) Value { return Value{kind: KindInt, i: int64(v)} }

// Long returns a 64-bit integer value.
func Long(v int64) Value { return Value{kind: KindLong, i: v} }

// Float returns a single precision value.
func Float(v float32) Value { return Value{kind: KindFloat, f: float64(v)} }

// Double returns a double precision value.
func Double(v float64) Value { return Value{kind: KindDouble, f: v} }

// Bytes returns a byte sequence value.
func Bytes(v []byte) Value { return Value{kind: KindBytes, raw: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Nested returns a value holding a nested record. A nil record is a null value.
func Nested(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRecord, rec: r}
}

// Kind reports which variant v holds. The zero Value is KindInvalid.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload, false for other kinds.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload truncated to 32 bits.
func (v Value) AsInt() int32 { return int32(v.i) }

// AsLong returns the integer payload of an int or long value.
func (v Value) AsLong() int64 { return v.i }

// AsFloat returns the floating point payload as float32.
func (v Value) AsFloat() float32 { return float32(v.f) }

// AsDouble returns the floating point payload of a float or double value.
func (v Value) AsDouble() float64 { return v.f }

// AsBytes returns the bytes payload, nil for other kinds.
func (v Value) AsBytes() []byte { return v.raw }

// AsString returns the string payload, empty for other kinds.
func (v Value) AsString() string { return v.s }

// AsRecord returns the nested record, nil for other kinds.
func (v Value) AsRecord() *Record { return v.rec }

// Interface returns the native Go form of the value:
// nil, bool, int32, int64, float32, float64, []byte, string or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInt:
		return int32(v.i)
	case KindLong:
		return v.i
	case KindFloat:
		return float32(v.f)
	case KindDouble:
		return v.f
	case KindBytes:
		return v.raw
	case KindString:
		return v.s
	case KindRecord:
		return v.rec.Map()
	default:
		return nil
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.b == o.b
	case KindInt, KindLong:
		return v.i == o.i
	case KindFloat, KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindString:
		return v.s == o.s
	case KindRecord:
		return v.rec.Equal(o.rec)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindRecord:
		return v.rec.String()
	case KindBytes:
		return fmt.Sprintf("%x", v.raw)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindInvalid:
		return "<invalid>"
	default:
		return fmt.Sprint(v.Interface())
	}
}

// ValueOf converts a native Go value into a Value.
// Supported inputs are nil, bool, signed and unsigned integers that fit in
// 64 bits, float32, float64, []byte, string, map[string]any, *Record and Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Record:
		return Nested(t), nil
	case bool:
		return Bool(t), nil
	case int8:
		return Int(int32(t)), nil
	case int16:
		return Int(int32(t)), nil
	case int32:
		return Int(t), nil
	case uint8:
		return Int(int32(t)), nil
	case uint16:
		return Int(int32(t)), nil
	case int:
		return Long(int64(t)), nil
	case int64:
		return Long(t), nil
	case uint32:
		return Long(int64(t)), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return Value{}, &SchemaInferenceError{TypeName: "uint", Err: fmt.Errorf("value %d overflows long", t)}
		}
		return Long(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, &SchemaInferenceError{TypeName: "uint64", Err: fmt.Errorf("value %d overflows long", t)}
		}
		return Long(int64(t)), nil
	case float32:
		return Float(t), nil
	case float64:
		return Double(t), nil
	case []byte:
		return Bytes(t), nil
	case string:
		return String(t), nil
	case map[string]any:
		r, err := RecordFromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Nested(r), nil
	default:
		return Value{}, &SchemaInferenceError{TypeName: reflect.TypeOf(x).String()}
	}
}
