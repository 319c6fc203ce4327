// Package recordjson reads and writes records as JSON lines. Object keys
// keep their document order, so a schema inferred from a decoded record
// follows the order of the source.
package recordjson

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/go-faster/jx"

	"github.com/Sokol111/avropipe/pkg/avro"
)

// MaxLineSize bounds a single JSON line.
const MaxLineSize = 16 << 20

// FormatText tags the JSON lines side of a pipe.
const FormatText = "jsonl"

// ErrUnsupported is returned for JSON values with no record representation.
var ErrUnsupported = errors.New("unsupported json value")

// Decode parses one JSON object into a record. Integers become longs,
// other numbers doubles, and nested objects nested records.
func Decode(data []byte) (*avro.Record, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, fmt.Errorf("%w: top level value must be an object", ErrUnsupported)
	}
	rec, err := decodeObject(d, "")
	if err != nil {
		return nil, err
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrUnsupported)
	}
	return rec, nil
}

func decodeObject(d *jx.Decoder, path string) (*avro.Record, error) {
	rec := avro.NewRecord()
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		name := string(key)
		field := name
		if path != "" {
			field = path + "." + name
		}
		v, err := decodeValue(d, field)
		if err != nil {
			return err
		}
		rec.Set(name, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(d *jx.Decoder, field string) (avro.Value, error) {
	switch d.Next() {
	case jx.Null:
		if err := d.Null(); err != nil {
			return avro.Value{}, err
		}
		return avro.Null(), nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return avro.Value{}, err
		}
		return avro.Bool(b), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return avro.Value{}, err
		}
		return avro.String(s), nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return avro.Value{}, err
		}
		if n.IsInt() {
			if i, err := n.Int64(); err == nil {
				return avro.Long(i), nil
			}
		}
		f, err := n.Float64()
		if err != nil {
			return avro.Value{}, fmt.Errorf("failed to parse number at %q: %w", field, err)
		}
		return avro.Double(f), nil
	case jx.Object:
		nested, err := decodeObject(d, field)
		if err != nil {
			return avro.Value{}, err
		}
		return avro.Nested(nested), nil
	case jx.Array:
		return avro.Value{}, fmt.Errorf("%w: array at %q", ErrUnsupported, field)
	default:
		return avro.Value{}, fmt.Errorf("%w: malformed value at %q", ErrUnsupported, field)
	}
}

// Encode renders rec as a single JSON object without a trailing newline.
// Bytes are base64 encoded.
func Encode(rec *avro.Record) []byte {
	var e jx.Encoder
	encodeRecord(&e, rec)
	return e.Bytes()
}

func encodeRecord(e *jx.Encoder, rec *avro.Record) {
	e.ObjStart()
	for _, f := range rec.Fields() {
		e.FieldStart(f.Name)
		encodeValue(e, f.Value)
	}
	e.ObjEnd()
}

func encodeValue(e *jx.Encoder, v avro.Value) {
	switch v.Kind() {
	case avro.KindBoolean:
		e.Bool(v.AsBool())
	case avro.KindInt:
		e.Int32(v.AsInt())
	case avro.KindLong:
		e.Int64(v.AsLong())
	case avro.KindFloat, avro.KindDouble:
		f := v.AsDouble()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			e.Null()
			return
		}
		if v.Kind() == avro.KindFloat {
			e.Float32(v.AsFloat())
			return
		}
		e.Float64(f)
	case avro.KindBytes:
		e.Base64(v.AsBytes())
	case avro.KindString:
		e.Str(v.AsString())
	case avro.KindRecord:
		encodeRecord(e, v.AsRecord())
	default:
		e.Null()
	}
}

// Reader yields records from a JSON lines stream. Blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	return &Reader{scanner: s}
}

func (r *Reader) Input() string  { return FormatText }
func (r *Reader) Output() string { return avro.FormatInput }

// Next returns the next record or io.EOF.
func (r *Reader) Next() (*avro.Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read json lines: %w", err)
	}
	return nil, io.EOF
}

// All iterates the remaining records, stopping at the first error.
func (r *Reader) All() iter.Seq2[*avro.Record, error] {
	return func(yield func(*avro.Record, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Writer writes one JSON object per line.
type Writer struct {
	w   io.Writer
	enc jx.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Input() string  { return avro.FormatInput }
func (w *Writer) Output() string { return FormatText }

func (w *Writer) Write(rec *avro.Record) error {
	w.enc.Reset()
	encodeRecord(&w.enc, rec)
	buf := append(w.enc.Bytes(), '\n')
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write json line: %w", err)
	}
	return nil
}
