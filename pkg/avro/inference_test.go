package avro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchema_PrimitiveFields(t *testing.T) {
	// Arrange
	rec := NewRecord(
		F("a", String("1")),
		F("b", Long(2)),
		F("c", Int(3)),
		F("d", Float(1.5)),
		F("e", Double(2.5)),
		F("f", Bool(true)),
		F("g", Bytes([]byte("x"))),
		F("h", Null()),
	)

	// Act
	schema, err := InferSchema(rec)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, DefaultRecordName, schema.Name())
	assert.Equal(t, []FieldInfo{
		{Name: "a", Type: "string"},
		{Name: "b", Type: "long"},
		{Name: "c", Type: "int"},
		{Name: "d", Type: "float"},
		{Name: "e", Type: "double"},
		{Name: "f", Type: "boolean"},
		{Name: "g", Type: "bytes"},
		{Name: "h", Type: "null"},
	}, schema.Fields())
}

func TestInferSchema_FollowsRecordOrder(t *testing.T) {
	schema, err := InferSchema(NewRecord(F("zeta", Long(1)), F("alpha", Long(2))))

	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, schema.FieldNames())
}

func TestInferSchema_NestedRecord(t *testing.T) {
	// Arrange
	rec := NewRecord(
		F("id", Long(1)),
		F("shipping_address", Nested(NewRecord(F("city", String("Kyiv"))))),
	)

	// Act
	schema, err := InferSchema(rec, WithRecordName("Order"), WithNamespace("com.acme"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "com.acme.Order", schema.FullName())
	assert.Equal(t, []FieldInfo{
		{Name: "id", Type: "long"},
		{Name: "shipping_address", Type: "com.acme.OrderShippingAddress"},
	}, schema.Fields())
}

func TestInferSchema_EmptyNameKeepsDefault(t *testing.T) {
	schema, err := InferSchema(NewRecord(F("a", Long(1))), WithRecordName(""))

	require.NoError(t, err)
	assert.Equal(t, DefaultRecordName, schema.Name())
}

func TestInferSchema_UnmappedValue(t *testing.T) {
	tests := []struct {
		name  string
		rec   *Record
		field string
	}{
		{
			name:  "top level",
			rec:   NewRecord(F("ok", Long(1)), F("bad", Value{})),
			field: "bad",
		},
		{
			name:  "nested",
			rec:   NewRecord(F("outer", Nested(NewRecord(F("bad", Value{}))))),
			field: "outer.bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := InferSchema(tt.rec)

			require.ErrorIs(t, err, ErrSchemaInference)
			assert.Nil(t, schema)
			var inferErr *SchemaInferenceError
			require.True(t, errors.As(err, &inferErr))
			assert.Equal(t, tt.field, inferErr.Field)
		})
	}
}

func TestInferSchema_InvalidFieldName(t *testing.T) {
	_, err := InferSchema(NewRecord(F("not valid", Long(1))))

	require.ErrorIs(t, err, ErrSchemaInference)
}
