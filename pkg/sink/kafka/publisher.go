package kafka

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/target"
)

const (
	tracerName = "github.com/Sokol111/avropipe/pkg/sink/kafka"

	// SchemaHeader carries the full name of the writer schema.
	SchemaHeader = "avro.schema.name"
)

// Stats summarises a publish run.
type Stats struct {
	Produced  int64
	Delivered int64
}

// Publisher sends every record of an avro container to a topic, one
// message per record, and waits for the delivery reports.
type Publisher struct {
	producer Producer
	framer   Framer
	conf     Config
	format   *avro.Format
	in       *target.LocalTarget
	log      *zap.Logger
	tracer   trace.Tracer
}

func NewPublisher(producer Producer, framer Framer, conf Config, format *avro.Format, in *target.LocalTarget, log *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		framer:   framer,
		conf:     conf,
		format:   format,
		in:       in,
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run publishes the input target.
func (p *Publisher) Run(ctx context.Context) error {
	r, err := p.in.OpenReader(p.format)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			p.log.Warn("failed to close input", zap.Error(err))
		}
	}()

	stats, err := p.Publish(ctx, r)
	if err != nil {
		return err
	}
	p.log.Info("publish finished",
		zap.String("input", p.in.Path()),
		zap.String("topic", p.conf.Topic),
		zap.Int64("delivered", stats.Delivered),
	)
	return nil
}

// Publish produces every remaining record of r. The first failed delivery
// stops producing; reports for messages already queued are still drained.
// An empty container publishes nothing.
func (p *Publisher) Publish(ctx context.Context, r *avro.Reader) (stats Stats, err error) {
	if r.Schema() == nil {
		p.log.Info("input holds no records, nothing to publish")
		return Stats{}, nil
	}

	ctx, span := p.tracer.Start(ctx, "kafka.publish", trace.WithAttributes(
		attribute.String("messaging.destination.name", p.conf.Topic),
		attribute.String("avropipe.schema", r.Schema().FullName()),
	))
	defer func() {
		span.SetAttributes(attribute.Int64("avropipe.records.delivered", stats.Delivered))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	deliveries := make(chan kafka.Event, 256)
	total := make(chan int64, 1)
	var produced, delivered atomic.Int64

	produceCtx, abort := context.WithCancel(ctx)
	defer abort()

	var g errgroup.Group
	g.Go(func() error {
		err := p.produceAll(produceCtx, r, deliveries, &produced)
		total <- produced.Load()
		if err != nil && produceCtx.Err() != nil && ctx.Err() == nil {
			// aborted by a failed delivery, reported by the collector
			return nil
		}
		return err
	})
	g.Go(func() error {
		return collectDeliveries(ctx, deliveries, total, &delivered, abort)
	})

	err = g.Wait()
	return Stats{Produced: produced.Load(), Delivered: delivered.Load()}, err
}

func (p *Publisher) produceAll(ctx context.Context, r *avro.Reader, deliveries chan kafka.Event, produced *atomic.Int64) error {
	schema := r.Schema()
	headers := []kafka.Header{{Key: SchemaHeader, Value: []byte(schema.FullName())}}

	for rec, err := range r.All() {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := p.message(schema, rec, headers)
		if err != nil {
			return err
		}
		if err := produceWithRetry(ctx, p.producer, msg, deliveries, p.conf.MaxRetries); err != nil {
			return fmt.Errorf("failed to produce record %d: %w", produced.Load(), err)
		}
		produced.Add(1)
	}
	return nil
}

func (p *Publisher) message(schema *avro.Schema, rec *avro.Record, headers []kafka.Header) (*kafka.Message, error) {
	payload, err := schema.Marshal(rec)
	if err != nil {
		return nil, err
	}
	value, err := p.framer.Frame(schema, payload)
	if err != nil {
		return nil, err
	}

	topic := p.conf.Topic
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
		Headers:        headers,
	}
	if p.conf.KeyField != "" {
		if v, ok := rec.Get(p.conf.KeyField); ok {
			msg.Key = messageKey(v)
		}
	}
	return msg, nil
}

func messageKey(v avro.Value) []byte {
	switch v.Kind() {
	case avro.KindString:
		return []byte(v.AsString())
	case avro.KindBytes:
		return v.AsBytes()
	case avro.KindInt, avro.KindLong:
		return []byte(strconv.FormatInt(v.AsLong(), 10))
	case avro.KindNull:
		return nil
	default:
		return []byte(v.String())
	}
}

// collectDeliveries reads delivery reports until as many arrived as total
// eventually reports. The first failed report calls abort and is returned
// once every outstanding report has been read, so the producer never blocks
// on a full delivery channel.
func collectDeliveries(ctx context.Context, deliveries <-chan kafka.Event, total <-chan int64, delivered *atomic.Int64, abort func()) error {
	expected := int64(-1)
	var received int64
	var failed error
	for expected < 0 || received < expected {
		select {
		case n := <-total:
			expected = n
			total = nil
		case ev := <-deliveries:
			msg, ok := ev.(*kafka.Message)
			if !ok {
				continue
			}
			received++
			if err := msg.TopicPartition.Error; err != nil {
				if failed == nil {
					failed = fmt.Errorf("delivery to %s failed: %w", msg.TopicPartition, err)
					abort()
				}
				continue
			}
			delivered.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failed
}

// Close flushes queued messages and closes the producer.
func (p *Publisher) Close() error {
	remaining := p.producer.Flush(int(p.conf.FlushTimeout.Milliseconds()))
	p.producer.Close()
	if remaining > 0 {
		return fmt.Errorf("%d messages still queued after flush", remaining)
	}
	return nil
}

var _ io.Closer = (*Publisher)(nil)
