package avro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_KeepsInsertionOrder(t *testing.T) {
	// Arrange
	r := NewRecord(F("z", Int(1)), F("a", Int(2)))

	// Act
	r.Set("m", Int(3)).Set("z", Int(9))

	// Assert
	assert.Equal(t, []string{"z", "a", "m"}, r.Names())
	v, ok := r.Get("z")
	require.True(t, ok)
	assert.Equal(t, int32(9), v.AsInt())
	assert.Equal(t, 3, r.Len())
}

func TestRecord_FieldsIsACopy(t *testing.T) {
	r := NewRecord(F("a", Int(1)))

	fields := r.Fields()
	fields[0].Value = Int(2)

	v, _ := r.Get("a")
	assert.Equal(t, int32(1), v.AsInt())
}

func TestRecord_NilReceiver(t *testing.T) {
	var r *Record

	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
	assert.Nil(t, r.Names())
	assert.Nil(t, r.Map())
}

func TestRecord_Equal(t *testing.T) {
	a := NewRecord(F("x", String("1")), F("y", Long(2)))
	b := NewRecord(F("y", Long(2)), F("x", String("1")))
	c := NewRecord(F("x", String("1")), F("y", Int(2)))

	assert.True(t, a.Equal(b), "order does not matter")
	assert.False(t, a.Equal(c), "kinds must match")
	assert.False(t, a.Equal(NewRecord(F("x", String("1")))))
}

func TestRecordFromMap_SortsKeys(t *testing.T) {
	// Act
	r, err := RecordFromMap(map[string]any{"b": 2, "a": "1", "c": nil})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.Equal(t, map[string]any{"a": "1", "b": int64(2), "c": nil}, r.Map())
}

func TestRecordFromMap_ReportsNestedPath(t *testing.T) {
	// Act
	_, err := RecordFromMap(map[string]any{
		"outer": map[string]any{"bad": []int{1}},
	})

	// Assert
	var inferErr *SchemaInferenceError
	require.True(t, errors.As(err, &inferErr))
	assert.Equal(t, "outer.bad", inferErr.Field)
	assert.Equal(t, "[]int", inferErr.TypeName)
	assert.Contains(t, err.Error(), `field "outer.bad"`)
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		parent, child, want string
	}{
		{parent: "", child: "a", want: "a"},
		{parent: "outer", child: "bad", want: "outer.bad"},
		{parent: "outer", child: "", want: "outer"},
		{parent: "", child: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, joinPath(tt.parent, tt.child))
		})
	}
}
