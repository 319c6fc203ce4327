package avro

import (
	"errors"
	"fmt"
	"io"

	"github.com/hamba/avro/v2/ocf"
	"go.uber.org/zap"
)

type writerState uint8

const (
	stateUnbound writerState = iota
	stateBound
	stateClosed
)

// Writer appends records to an Avro container stream.
//
// The container header carries the schema, so nothing is written until the
// first record arrives: the writer then binds the supplied schema, or one
// inferred from that record, and every later record must conform to it.
// A Writer is not safe for concurrent use.
type Writer struct {
	stream   io.WriteCloser
	supplied *Schema
	schema   *Schema
	enc      *ocf.Encoder
	state    writerState
	count    int64
	opts     writerOptions
}

// NewWriter wraps stream. When schema is nil the schema is inferred from
// the first record written.
func NewWriter(stream io.WriteCloser, schema *Schema, opts ...WriterOption) *Writer {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Writer{
		stream:   stream,
		supplied: schema,
		opts:     o,
	}
}

// Write appends rec. A record that does not match the bound schema fails
// with *SchemaMismatchError and nothing is appended.
func (w *Writer) Write(rec *Record) error {
	switch w.state {
	case stateClosed:
		return ErrClosed
	case stateUnbound:
		return w.bind(rec)
	}

	payload, err := w.schema.Marshal(rec)
	if err != nil {
		w.opts.metrics.writeFailed("mismatch")
		return err
	}
	return w.append(payload)
}

// WriteMap converts m with RecordFromMap and writes it.
func (w *Writer) WriteMap(m map[string]any) error {
	if w.state == stateClosed {
		return ErrClosed
	}
	rec, err := RecordFromMap(m)
	if err != nil {
		w.opts.metrics.writeFailed("inference")
		return err
	}
	return w.Write(rec)
}

func (w *Writer) bind(rec *Record) error {
	schema, source := w.supplied, "supplied"
	if schema == nil {
		inferred, err := InferSchema(rec, w.opts.inferOptions...)
		if err != nil {
			w.opts.metrics.writeFailed("inference")
			return err
		}
		schema, source = inferred, "inferred"
	}

	payload, err := schema.Marshal(rec)
	if err != nil {
		w.opts.metrics.writeFailed("mismatch")
		return err
	}

	enc, err := ocf.NewEncoderWithSchema(schema.rec, w.stream, w.opts.encoderOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open avro container: %w", err)
	}

	w.enc = enc
	w.schema = schema
	w.state = stateBound
	w.opts.metrics.bound(source)
	w.opts.log.Debug("avro writer bound schema",
		zap.String("schema", schema.FullName()),
		zap.String("source", source),
		zap.String("codec", string(w.opts.codec)),
	)

	return w.append(payload)
}

// append adds an encoded datum to the current block. Records are encoded
// before they reach the container, so a rejected record never leaves
// partial bytes behind.
func (w *Writer) append(payload []byte) error {
	if _, err := w.enc.Write(payload); err != nil {
		w.opts.metrics.writeFailed("encode")
		return fmt.Errorf("failed to write avro block: %w", err)
	}
	w.count++
	w.opts.metrics.written(w.schema.FullName())
	return nil
}

// Flush writes buffered records as a container block.
func (w *Writer) Flush() error {
	switch w.state {
	case stateClosed:
		return ErrClosed
	case stateUnbound:
		return nil
	}
	if err := w.enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush avro block: %w", err)
	}
	return nil
}

// Schema returns the bound schema, or the supplied one while unbound.
func (w *Writer) Schema() *Schema {
	if w.schema != nil {
		return w.schema
	}
	return w.supplied
}

// Bound reports whether the container header has been written.
func (w *Writer) Bound() bool {
	return w.schema != nil
}

// Count returns the number of records appended.
func (w *Writer) Count() int64 {
	return w.count
}

// Close flushes pending records and closes the stream. An unbound writer
// closes the stream without writing a header. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	wasBound := w.state == stateBound
	w.state = stateClosed

	var errs []error
	if wasBound {
		if err := w.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close avro encoder: %w", err))
		}
	}
	if err := w.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close output stream: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		w.opts.log.Warn("avro writer closed with errors", zap.Error(err))
		return err
	}
	w.opts.log.Debug("avro writer closed", zap.Int64("records", w.count), zap.Bool("bound", wasBound))
	return nil
}
