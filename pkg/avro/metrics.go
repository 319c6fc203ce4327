package avro

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/Sokol111/avropipe/pkg/avro"

// Metrics holds the counters readers and writers record into.
// A nil *Metrics records nothing.
type Metrics struct {
	recordsWritten metric.Int64Counter
	recordsRead    metric.Int64Counter
	writeErrors    metric.Int64Counter
	schemasBound   metric.Int64Counter
}

// NewMetrics creates the instruments on mp. A nil provider yields no-op instruments.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	written, err := meter.Int64Counter("avro.records.written",
		metric.WithDescription("Records appended to avro containers"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create records written counter: %w", err)
	}
	read, err := meter.Int64Counter("avro.records.read",
		metric.WithDescription("Records decoded from avro containers"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create records read counter: %w", err)
	}
	writeErrors, err := meter.Int64Counter("avro.write.errors",
		metric.WithDescription("Rejected record writes"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create write errors counter: %w", err)
	}
	bound, err := meter.Int64Counter("avro.schemas.bound",
		metric.WithDescription("Writers bound to a schema, by schema source"),
		metric.WithUnit("{writer}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create schemas bound counter: %w", err)
	}

	return &Metrics{
		recordsWritten: written,
		recordsRead:    read,
		writeErrors:    writeErrors,
		schemasBound:   bound,
	}, nil
}

func (m *Metrics) written(schema string) {
	if m == nil {
		return
	}
	m.recordsWritten.Add(context.Background(), 1, metric.WithAttributes(attribute.String("schema", schema)))
}

func (m *Metrics) read(schema string) {
	if m == nil {
		return
	}
	m.recordsRead.Add(context.Background(), 1, metric.WithAttributes(attribute.String("schema", schema)))
}

func (m *Metrics) writeFailed(reason string) {
	if m == nil {
		return
	}
	m.writeErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) bound(source string) {
	if m == nil {
		return
	}
	m.schemasBound.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", source)))
}
