package avro

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaInference is returned when a record value has no Avro type mapping.
	ErrSchemaInference = errors.New("schema inference failed")

	// ErrStreamFormat is returned when an input stream is not an Avro container file.
	ErrStreamFormat = errors.New("invalid avro container stream")

	// ErrSchemaMismatch is returned when a record cannot be encoded with the bound schema.
	ErrSchemaMismatch = errors.New("record does not match schema")

	// ErrClosed is returned by reads and writes after Close.
	ErrClosed = errors.New("resource is closed")
)

// SchemaInferenceError identifies the field whose value could not be mapped.
type SchemaInferenceError struct {
	Field    string
	TypeName string
	Err      error
}

func (e *SchemaInferenceError) Error() string {
	msg := fmt.Sprintf("%s: unsupported value type %s", ErrSchemaInference, e.TypeName)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q has unsupported value type %s", ErrSchemaInference, e.Field, e.TypeName)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaInferenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchemaInference}
	}
	return []error{ErrSchemaInference, e.Err}
}

// SchemaMismatchError describes the first field of a record that does not
// conform to the schema.
type SchemaMismatchError struct {
	Field    string
	Expected string
	Actual   string
	Err      error
}

func (e *SchemaMismatchError) Error() string {
	msg := ErrSchemaMismatch.Error()
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Expected != "" || e.Actual != "" {
		msg += fmt.Sprintf(": expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaMismatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchemaMismatch}
	}
	return []error{ErrSchemaMismatch, e.Err}
}

// StreamFormatError wraps the decoder failure raised while reading a container header.
type StreamFormatError struct {
	Err error
}

func (e *StreamFormatError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStreamFormat, e.Err)
}

func (e *StreamFormatError) Unwrap() []error {
	return []error{ErrStreamFormat, e.Err}
}
