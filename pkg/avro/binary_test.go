package avro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_MarshalUnmarshal(t *testing.T) {
	// Arrange
	schema := MustParseSchema(eventSchemaJSON)
	rec := NewRecord(F("id", Int(5)), F("name", String("n")), F("payload", Bytes([]byte{9})))

	// Act
	data, err := schema.Marshal(rec)
	require.NoError(t, err)
	got, err := schema.Unmarshal(data)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score", "note", "payload"}, got.Names())
	assert.Equal(t, int64(5), got.Map()["id"])
	assert.True(t, got.Map()["note"] == nil)
}

func TestSchema_MarshalMismatch(t *testing.T) {
	schema := MustParseSchema(eventSchemaJSON)

	_, err := schema.Marshal(NewRecord(F("id", String("x"))))

	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSchema_Fingerprint(t *testing.T) {
	a := MustParseSchema(eventSchemaJSON)
	b := MustParseSchema(eventSchemaJSON)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)

	assert.Len(t, fa, 8)
	assert.Equal(t, fa, fb)
}
