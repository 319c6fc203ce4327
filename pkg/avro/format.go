package avro

import (
	"errors"
	"io"
)

const (
	// FormatInput is the value type a Format writer accepts.
	FormatInput = "record"
	// FormatOutput is the byte layout a Format produces.
	FormatOutput = "avro"

	FileExtension = ".avro"
	ContentType   = "avro/binary"
)

var errNilStream = errors.New("stream is nil")

// Format adapts byte streams into record readers and writers.
type Format struct {
	schema        *Schema
	writerOptions []WriterOption
	readerOptions []ReaderOption
}

// FormatOption configures a Format.
type FormatOption func(*Format)

// WithSchema fixes the schema handed to every writer. Without it writers
// infer their schema from the first record.
func WithSchema(s *Schema) FormatOption {
	return func(f *Format) {
		f.schema = s
	}
}

// WithWriterOptions applies opts to every writer the format creates.
func WithWriterOptions(opts ...WriterOption) FormatOption {
	return func(f *Format) {
		f.writerOptions = append(f.writerOptions, opts...)
	}
}

// WithReaderOptions applies opts to every reader the format creates.
func WithReaderOptions(opts ...ReaderOption) FormatOption {
	return func(f *Format) {
		f.readerOptions = append(f.readerOptions, opts...)
	}
}

func NewFormat(opts ...FormatOption) *Format {
	f := &Format{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Schema returns the configured schema, which may be nil.
func (f *Format) Schema() *Schema { return f.schema }

func (f *Format) Input() string         { return FormatInput }
func (f *Format) Output() string        { return FormatOutput }
func (f *Format) FileExtension() string { return FileExtension }
func (f *Format) ContentType() string   { return ContentType }

// PipeReader opens a record reader over in.
func (f *Format) PipeReader(in io.ReadCloser) (*Reader, error) {
	if in == nil {
		return nil, errNilStream
	}
	return NewReader(in, f.readerOptions...)
}

// PipeWriter wraps out in a record writer.
func (f *Format) PipeWriter(out io.WriteCloser) (*Writer, error) {
	if out == nil {
		return nil, errNilStream
	}
	return NewWriter(out, f.schema, f.writerOptions...), nil
}
