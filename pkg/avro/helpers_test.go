package avro

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStream is an in-memory io.ReadWriteCloser that records Close calls.
type memStream struct {
	bytes.Buffer
	closes   int
	closeErr error
}

func (m *memStream) Close() error {
	m.closes++
	return m.closeErr
}

func reopen(m *memStream) *memStream {
	return &memStream{Buffer: *bytes.NewBuffer(bytes.Clone(m.Bytes()))}
}

const eventSchemaJSON = `{
  "type": "record",
  "name": "Event",
  "namespace": "test.avropipe",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": "string"},
    {"name": "score", "type": "double", "default": 0},
    {"name": "note", "type": ["null", "string"], "default": null},
    {"name": "payload", "type": "bytes"}
  ]
}`

func writeRecords(t *testing.T, schema *Schema, recs []*Record, opts ...WriterOption) *memStream {
	t.Helper()
	out := &memStream{}
	w := NewWriter(out, schema, opts...)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	return out
}

func readRecords(t *testing.T, in io.ReadCloser) []*Record {
	t.Helper()
	r, err := NewReader(in)
	require.NoError(t, err)
	defer r.Close()
	recs, err := r.ReadAll()
	require.NoError(t, err)
	return recs
}
