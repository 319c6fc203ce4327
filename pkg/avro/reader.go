package avro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/hamba/avro/v2/ocf"
	"go.uber.org/zap"
)

const schemaMetadataKey = "avro.schema"

// Reader decodes records from an Avro container stream.
// It is forward-only and not safe for concurrent use.
type Reader struct {
	stream   io.ReadCloser
	dec      *ocf.Decoder
	schema   *Schema
	metadata map[string]string
	closed   bool
	err      error
	count    int64
	opts     readerOptions
}

// NewReader reads the container header from stream. A zero-length stream
// is what a writer closed before any record leaves behind: it yields a
// reader with no schema and no records. Any other stream without a valid
// header fails with an error wrapping ErrStreamFormat, and stream is left
// open for the caller.
func NewReader(stream io.ReadCloser, opts ...ReaderOption) (*Reader, error) {
	o := readerOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	buffered := bufio.NewReader(stream)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			o.log.Debug("avro reader opened on empty stream")
			return &Reader{stream: stream, metadata: map[string]string{}, opts: o}, nil
		}
		return nil, &StreamFormatError{Err: err}
	}

	dec, err := ocf.NewDecoder(buffered)
	if err != nil {
		return nil, &StreamFormatError{Err: err}
	}

	header := dec.Metadata()
	schema, err := ParseSchema(string(header[schemaMetadataKey]))
	if err != nil {
		return nil, &StreamFormatError{Err: err}
	}

	metadata := make(map[string]string)
	for k, v := range header {
		if strings.HasPrefix(k, "avro.") {
			continue
		}
		metadata[k] = string(v)
	}

	o.log.Debug("avro reader opened", zap.String("schema", schema.FullName()))

	return &Reader{
		stream:   stream,
		dec:      dec,
		schema:   schema,
		metadata: metadata,
		opts:     o,
	}, nil
}

// Next returns the next record, or io.EOF once the stream is exhausted.
// A decode failure is sticky: every later call returns it again.
func (r *Reader) Next() (*Record, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.dec == nil {
		return nil, io.EOF
	}

	if !r.dec.HasNext() {
		if err := r.dec.Error(); err != nil {
			r.err = &StreamFormatError{Err: fmt.Errorf("failed to read block: %w", err)}
			return nil, r.err
		}
		return nil, io.EOF
	}

	native := map[string]any{}
	if err := r.dec.Decode(&native); err != nil {
		r.err = &StreamFormatError{Err: fmt.Errorf("failed to decode record %d: %w", r.count, err)}
		return nil, r.err
	}
	rec, err := decodeRecord(r.schema.rec, native, "")
	if err != nil {
		r.err = &StreamFormatError{Err: fmt.Errorf("failed to convert record %d: %w", r.count, err)}
		return nil, r.err
	}

	r.count++
	r.opts.metrics.read(r.schema.FullName())
	return rec, nil
}

// All returns a single-pass sequence over the remaining records. A failure
// is yielded once and ends the sequence.
func (r *Reader) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
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

// Read returns up to n records. A negative n reads everything that is left.
// Reaching the end of the stream early is not an error.
func (r *Reader) Read(n int) ([]*Record, error) {
	if r.closed {
		return nil, ErrClosed
	}

	out := []*Record{}
	for n < 0 || len(out) < n {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]*Record, error) {
	return r.Read(-1)
}

// Schema returns the writer schema stored in the container header, or nil
// for an empty stream.
func (r *Reader) Schema() *Schema {
	return r.schema
}

// Metadata returns the user metadata of the container header.
func (r *Reader) Metadata() map[string]string {
	return r.metadata
}

// Count returns the number of records decoded so far.
func (r *Reader) Count() int64 {
	return r.count
}

// Close releases the stream. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.stream.Close(); err != nil {
		r.opts.log.Warn("avro reader close failed", zap.Error(err))
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return nil
}
