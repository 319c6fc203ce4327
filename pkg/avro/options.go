package avro

import (
	"fmt"
	"strings"

	"github.com/hamba/avro/v2/ocf"
	"go.uber.org/zap"
)

// ParseCodec maps a codec name to the container codec. An empty name is the
// null codec.
func ParseCodec(name string) (ocf.CodecName, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "null":
		return ocf.Null, nil
	case "deflate":
		return ocf.Deflate, nil
	case "snappy":
		return ocf.Snappy, nil
	case "zstandard", "zstd":
		return ocf.ZStandard, nil
	default:
		return "", fmt.Errorf("unknown avro codec %q", name)
	}
}

type writerOptions struct {
	codec        ocf.CodecName
	blockLength  int
	compression  *int
	metadata     map[string][]byte
	syncMarker   *[16]byte
	inferOptions []InferOption
	log          *zap.Logger
	metrics      *Metrics
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		codec: ocf.Null,
		log:   zap.NewNop(),
	}
}

func (o writerOptions) encoderOptions() []ocf.EncoderFunc {
	opts := []ocf.EncoderFunc{ocf.WithCodec(o.codec)}
	if o.blockLength > 0 {
		opts = append(opts, ocf.WithBlockLength(o.blockLength))
	}
	if o.compression != nil {
		opts = append(opts, ocf.WithCompressionLevel(*o.compression))
	}
	if len(o.metadata) > 0 {
		opts = append(opts, ocf.WithMetadata(o.metadata))
	}
	if o.syncMarker != nil {
		opts = append(opts, ocf.WithSyncBlock(*o.syncMarker))
	}
	return opts
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

// WithCodec sets the block compression codec.
func WithCodec(codec ocf.CodecName) WriterOption {
	return func(o *writerOptions) {
		o.codec = codec
	}
}

// WithBlockLength sets how many records are buffered per container block.
func WithBlockLength(n int) WriterOption {
	return func(o *writerOptions) {
		o.blockLength = n
	}
}

// WithCompressionLevel sets the deflate compression level.
func WithCompressionLevel(level int) WriterOption {
	return func(o *writerOptions) {
		o.compression = &level
	}
}

// WithMetadata adds user metadata to the container header.
func WithMetadata(md map[string]string) WriterOption {
	return func(o *writerOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string][]byte, len(md))
		}
		for k, v := range md {
			o.metadata[k] = []byte(v)
		}
	}
}

// WithSyncMarker fixes the container sync marker, which is random otherwise.
func WithSyncMarker(sync [16]byte) WriterOption {
	return func(o *writerOptions) {
		o.syncMarker = &sync
	}
}

// WithInference passes options to schema inference when no schema is supplied.
func WithInference(opts ...InferOption) WriterOption {
	return func(o *writerOptions) {
		o.inferOptions = append(o.inferOptions, opts...)
	}
}

// WithWriterLogger sets the writer logger.
func WithWriterLogger(log *zap.Logger) WriterOption {
	return func(o *writerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithWriterMetrics sets the instruments the writer records into.
func WithWriterMetrics(m *Metrics) WriterOption {
	return func(o *writerOptions) {
		o.metrics = m
	}
}

type readerOptions struct {
	log     *zap.Logger
	metrics *Metrics
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerOptions)

// WithReaderLogger sets the reader logger.
func WithReaderLogger(log *zap.Logger) ReaderOption {
	return func(o *readerOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithReaderMetrics sets the instruments the reader records into.
func WithReaderMetrics(m *Metrics) ReaderOption {
	return func(o *readerOptions) {
		o.metrics = m
	}
}
