package kafka

import (
	"slices"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sokol111/avropipe/pkg/avro"
)

const orderSchemaJSON = `{"type":"record","name":"Order","namespace":"com.acme","fields":[
	{"name":"id","type":"long"},
	{"name":"status","type":"string"}
]}`

func TestSingleObjectFramer(t *testing.T) {
	// Arrange
	schema := avro.MustParseSchema(orderSchemaJSON)
	framer := NewSingleObjectFramer()
	payload := []byte{0x02, 0x04}

	// Act
	framed, err := framer.Frame(schema, payload)
	require.NoError(t, err)
	again, err := framer.Frame(schema, payload)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, framed, again)
	assert.Equal(t, []byte{0xC3, 0x01}, framed[:2])

	fp, body, err := ParseSingleObject(framed)
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	want, err := schema.Fingerprint()
	require.NoError(t, err)
	slices.Reverse(want)
	assert.Equal(t, want, fp, "fingerprint is little-endian")
}

func TestParseSingleObject_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "short", data: []byte{0xC3, 0x01, 0x00}},
		{name: "bad marker", data: make([]byte, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseSingleObject(tt.data)

			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}
}

func TestConfluentFramer(t *testing.T) {
	// Arrange
	client, err := schemaregistry.NewClient(schemaregistry.NewConfig("mock://framing"))
	require.NoError(t, err)
	schema := avro.MustParseSchema(orderSchemaJSON)
	framer := NewConfluentFramer(client, "orders")

	// Act
	framed, err := framer.Frame(schema, []byte{0x0A})
	require.NoError(t, err)

	// Assert
	id, body, err := ParseConfluent(framed)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A}, body)

	assert.Positive(t, id)
	subjects, err := client.GetAllSubjects()
	require.NoError(t, err)
	assert.Contains(t, subjects, "orders-value")

	second, err := framer.Frame(schema, nil)
	require.NoError(t, err)
	assert.Equal(t, framed[:confluentHeaderLen], second)
}

func TestParseConfluent_Invalid(t *testing.T) {
	_, _, err := ParseConfluent([]byte{0x01, 0, 0, 0, 1})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, _, err = ParseConfluent([]byte{0x00})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}
