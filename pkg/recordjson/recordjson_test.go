package recordjson

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/target"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *avro.Record
	}{
		{
			name:  "scalars keep document order",
			input: `{"b": 2, "a": "1", "c": 1.5, "d": true, "e": null}`,
			want: avro.NewRecord(
				avro.F("b", avro.Long(2)),
				avro.F("a", avro.String("1")),
				avro.F("c", avro.Double(1.5)),
				avro.F("d", avro.Bool(true)),
				avro.F("e", avro.Null()),
			),
		},
		{
			name:  "nested object",
			input: `{"id": 1, "address": {"city": "Kyiv", "zip": "01001"}}`,
			want: avro.NewRecord(
				avro.F("id", avro.Long(1)),
				avro.F("address", avro.Nested(avro.NewRecord(
					avro.F("city", avro.String("Kyiv")),
					avro.F("zip", avro.String("01001")),
				))),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got, err := Decode([]byte(tt.input))

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want.Names(), got.Names())
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDecode_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array field", input: `{"tags": ["a"]}`},
		{name: "top level array", input: `[1, 2]`},
		{name: "top level string", input: `"x"`},
		{name: "trailing junk", input: `{"a": 1} junk`},
		{name: "second object", input: `{"a": 1}{"b": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))

			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestDecode_TrailingWhitespace(t *testing.T) {
	rec, err := Decode([]byte("{\"a\": 1}  \t"))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1)}, rec.Map())
}

func TestEncode(t *testing.T) {
	rec := avro.NewRecord(
		avro.F("z", avro.Long(1)),
		avro.F("a", avro.String("x")),
		avro.F("raw", avro.Bytes([]byte("hi"))),
		avro.F("n", avro.Null()),
		avro.F("in", avro.Nested(avro.NewRecord(avro.F("ok", avro.Bool(false))))),
	)

	got := Encode(rec)

	assert.JSONEq(t, `{"z":1,"a":"x","raw":"aGk=","n":null,"in":{"ok":false}}`, string(got))
	assert.True(t, strings.HasPrefix(string(got), `{"z":1,"a":"x"`), "field order is kept")
}

func TestReaderWriter(t *testing.T) {
	// Arrange
	input := "{\"a\": 1}\n\n{\"a\": 2, \"b\": \"x\"}\n"
	r := NewReader(strings.NewReader(input))
	var out bytes.Buffer
	w := NewWriter(&out)

	// Act
	var count int
	for rec, err := range r.All() {
		require.NoError(t, err)
		require.NoError(t, w.Write(rec))
		count++
	}

	// Assert
	assert.Equal(t, 2, count)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2,\"b\":\"x\"}\n", out.String())
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ReportsLine(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\": 1}\n{\"a\": [1]}\n"))

	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Contains(t, err.Error(), "line 2")
}

func TestPipeCompatibility(t *testing.T) {
	format := avro.NewFormat()
	r := NewReader(strings.NewReader(""))
	w := NewWriter(io.Discard)

	assert.NoError(t, target.CheckCompatible(r, format))
	assert.ErrorIs(t, target.CheckCompatible(format, w), target.ErrIncompatible)
	assert.NoError(t, target.CheckCompatible(r, w))
}
