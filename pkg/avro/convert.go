package avro

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	hambavro "github.com/hamba/avro/v2"
)

// kindTypes is the closed mapping from value kinds to Avro primitive types.
// KindRecord and KindInvalid are deliberately absent.
var kindTypes = map[Kind]hambavro.Type{
	KindNull:    hambavro.Null,
	KindBoolean: hambavro.Boolean,
	KindInt:     hambavro.Int,
	KindLong:    hambavro.Long,
	KindFloat:   hambavro.Float,
	KindDouble:  hambavro.Double,
	KindBytes:   hambavro.Bytes,
	KindString:  hambavro.String,
}

func mismatch(path string, schema hambavro.Schema, v Value) *SchemaMismatchError {
	actual := v.Kind().String()
	if v.Kind() == KindInvalid {
		actual = "missing"
	}
	return &SchemaMismatchError{Field: path, Expected: typeTag(schema), Actual: actual}
}

// encodeRecord converts rec into the native map hamba encodes for schema rs.
func encodeRecord(rs *hambavro.RecordSchema, rec *Record, path string) (map[string]any, error) {
	if rec == nil {
		return nil, &SchemaMismatchError{Field: path, Expected: rs.FullName(), Actual: "null"}
	}

	declared := make(map[string]struct{}, len(rs.Fields()))
	for _, f := range rs.Fields() {
		declared[f.Name()] = struct{}{}
	}
	for _, f := range rec.fields {
		if _, ok := declared[f.Name]; !ok {
			return nil, &SchemaMismatchError{
				Field:    joinPath(path, f.Name),
				Expected: "no such field in " + rs.FullName(),
				Actual:   f.Value.Kind().String(),
			}
		}
	}

	out := make(map[string]any, len(rs.Fields()))
	for _, f := range rs.Fields() {
		fieldPath := joinPath(path, f.Name())
		v, ok := rec.Get(f.Name())
		if !ok {
			if f.HasDefault() {
				continue
			}
			return nil, mismatch(fieldPath, f.Type(), Value{})
		}
		native, err := encodeValue(f.Type(), v, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name()] = native
	}
	return out, nil
}

func encodeValue(schema hambavro.Schema, v Value, path string) (any, error) {
	switch t := schema.(type) {
	case *hambavro.RefSchema:
		return encodeValue(t.Schema(), v, path)
	case *hambavro.NullSchema:
		if v.Kind() == KindNull {
			return nil, nil
		}
	case *hambavro.PrimitiveSchema:
		if native, ok := promote(t.Type(), v); ok {
			return native, nil
		}
	case *hambavro.RecordSchema:
		if v.Kind() == KindRecord {
			return encodeRecord(t, v.AsRecord(), path)
		}
	case *hambavro.UnionSchema:
		return encodeUnion(t, v, path)
	}
	return nil, mismatch(path, schema, v)
}

// encodeUnion picks the first branch of the exact kind, falling back to the
// first branch the value can be promoted to.
func encodeUnion(u *hambavro.UnionSchema, v Value, path string) (any, error) {
	branches := u.Types()
	for _, b := range branches {
		if !exactBranch(b, v.Kind()) {
			continue
		}
		native, err := encodeValue(b, v, path)
		if err != nil {
			return nil, err
		}
		return wrapUnion(b, native), nil
	}
	for _, b := range branches {
		native, err := encodeValue(b, v, path)
		if err == nil {
			return wrapUnion(b, native), nil
		}
	}
	return nil, mismatch(path, u, v)
}

func exactBranch(schema hambavro.Schema, k Kind) bool {
	if ref, ok := schema.(*hambavro.RefSchema); ok {
		schema = ref.Schema()
	}
	if k == KindRecord {
		return schema.Type() == hambavro.Record
	}
	t, ok := kindTypes[k]
	return ok && schema.Type() == t
}

// wrapUnion wraps branches the encoder cannot resolve from the Go type
// alone: records and logical primitives become a single-key map holding the
// branch name.
func wrapUnion(branch hambavro.Schema, native any) any {
	if native == nil {
		return nil
	}
	if ref, ok := branch.(*hambavro.RefSchema); ok {
		branch = ref.Schema()
	}
	switch t := branch.(type) {
	case *hambavro.RecordSchema:
		return map[string]any{t.FullName(): native}
	case *hambavro.PrimitiveSchema:
		if t.Logical() != nil {
			return map[string]any{unionBranchName(t): native}
		}
	}
	return native
}

// unionBranchName is the name a union branch is resolved by: the full name
// of named types, otherwise the type with its logical type appended,
// as in "long.timestamp-millis".
func unionBranchName(schema hambavro.Schema) string {
	if ref, ok := schema.(*hambavro.RefSchema); ok {
		schema = ref.Schema()
	}
	if named, ok := schema.(hambavro.NamedSchema); ok {
		return named.FullName()
	}
	if p, ok := schema.(*hambavro.PrimitiveSchema); ok && p.Logical() != nil {
		return string(p.Type()) + "." + string(p.Logical().Type())
	}
	return string(schema.Type())
}

func promote(t hambavro.Type, v Value) (any, bool) {
	k := v.Kind()
	switch t {
	case hambavro.Null:
		return nil, k == KindNull
	case hambavro.Boolean:
		return v.AsBool(), k == KindBoolean
	case hambavro.Int:
		return v.AsInt(), k == KindInt
	case hambavro.Long:
		return v.AsLong(), k == KindInt || k == KindLong
	case hambavro.Float:
		switch k {
		case KindInt, KindLong:
			return float32(v.AsLong()), true
		case KindFloat:
			return v.AsFloat(), true
		}
	case hambavro.Double:
		switch k {
		case KindInt, KindLong:
			return float64(v.AsLong()), true
		case KindFloat, KindDouble:
			return v.AsDouble(), true
		}
	case hambavro.String:
		switch k {
		case KindString:
			return v.AsString(), true
		case KindBytes:
			return string(v.AsBytes()), true
		}
	case hambavro.Bytes:
		switch k {
		case KindBytes:
			return v.AsBytes(), true
		case KindString:
			return []byte(v.AsString()), true
		}
	}
	return nil, false
}

var errUnexpectedNative = errors.New("unexpected decoded value")

// decodeRecord converts a decoded native map back into a record laid out in
// schema field order.
func decodeRecord(rs *hambavro.RecordSchema, m map[string]any, path string) (*Record, error) {
	rec := NewRecord()
	for _, f := range rs.Fields() {
		raw, ok := m[f.Name()]
		if !ok {
			continue
		}
		v, err := decodeValue(f.Type(), raw, joinPath(path, f.Name()))
		if err != nil {
			return nil, err
		}
		rec.Set(f.Name(), v)
	}
	return rec, nil
}

func decodeValue(schema hambavro.Schema, x any, path string) (Value, error) {
	switch t := schema.(type) {
	case *hambavro.RefSchema:
		return decodeValue(t.Schema(), x, path)
	case *hambavro.NullSchema:
		if x == nil {
			return Null(), nil
		}
	case *hambavro.RecordSchema:
		if m, ok := x.(map[string]any); ok {
			rec, err := decodeRecord(t, m, path)
			if err != nil {
				return Value{}, err
			}
			return Nested(rec), nil
		}
	case *hambavro.UnionSchema:
		return decodeUnion(t, x, path)
	case *hambavro.PrimitiveSchema:
		if v, ok := decodePrimitive(t, x); ok {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("%w %T for %s at field %q", errUnexpectedNative, x, typeTag(schema), path)
}

// decodeUnion accepts both the wrapped form (a single-key map naming the
// branch) and the resolved form (the bare branch value).
func decodeUnion(u *hambavro.UnionSchema, x any, path string) (Value, error) {
	if x == nil {
		return Null(), nil
	}
	if m, ok := x.(map[string]any); ok && len(m) == 1 {
		for name, inner := range m {
			if b := branchByName(u, name); b != nil {
				return decodeValue(b, inner, path)
			}
		}
	}
	for _, b := range u.Types() {
		if b.Type() == hambavro.Null {
			continue
		}
		if v, err := decodeValue(b, x, path); err == nil {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("%w %T for %s at field %q", errUnexpectedNative, x, typeTag(u), path)
}

func branchByName(u *hambavro.UnionSchema, name string) hambavro.Schema {
	for _, b := range u.Types() {
		if unionBranchName(b) == name {
			return b
		}
		resolved := b
		if ref, ok := b.(*hambavro.RefSchema); ok {
			resolved = ref.Schema()
		}
		if named, ok := resolved.(hambavro.NamedSchema); ok && named.Name() == name {
			return b
		}
	}
	return nil
}

func decodePrimitive(s *hambavro.PrimitiveSchema, x any) (Value, bool) {
	logical := ""
	if ls := s.Logical(); ls != nil {
		logical = string(ls.Type())
	}

	switch s.Type() {
	case hambavro.Null:
		return Null(), x == nil
	case hambavro.Boolean:
		b, ok := x.(bool)
		return Bool(b), ok
	case hambavro.Int:
		switch n := x.(type) {
		case int:
			return Int(int32(n)), true
		case int32:
			return Int(n), true
		case time.Time:
			return Int(int32(epochDays(n))), true
		case time.Duration:
			return Int(int32(n.Milliseconds())), true
		}
	case hambavro.Long:
		switch n := x.(type) {
		case int64:
			return Long(n), true
		case int:
			return Long(int64(n)), true
		case time.Time:
			if strings.HasSuffix(logical, "millis") {
				return Long(n.UnixMilli()), true
			}
			return Long(n.UnixMicro()), true
		case time.Duration:
			return Long(n.Microseconds()), true
		}
	case hambavro.Float:
		f, ok := x.(float32)
		return Float(f), ok
	case hambavro.Double:
		f, ok := x.(float64)
		return Double(f), ok
	case hambavro.String:
		str, ok := x.(string)
		return String(str), ok
	case hambavro.Bytes:
		switch b := x.(type) {
		case []byte:
			return Bytes(b), true
		case *big.Rat:
			if dec, ok := s.Logical().(*hambavro.DecimalLogicalSchema); ok {
				return Bytes(decimalBytes(b, dec.Scale())), true
			}
		}
	}
	return Value{}, false
}

// decimalBytes returns the unscaled value of r as big-endian two's
// complement in the fewest bytes, the bytes form of a decimal.
func decimalBytes(r *big.Rat, scale int) []byte {
	unscaled := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	unscaled.Mul(unscaled, r.Num())
	unscaled.Quo(unscaled, r.Denom())

	if unscaled.Sign() >= 0 {
		return unscaled.FillBytes(make([]byte, unscaled.BitLen()/8+1))
	}
	size := new(big.Int).Not(unscaled).BitLen()/8 + 1
	unscaled.Add(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	return unscaled.FillBytes(make([]byte, size))
}

func epochDays(t time.Time) int64 {
	secs := t.Unix()
	days := secs / 86400
	if secs%86400 < 0 {
		days--
	}
	return days
}
