package kafka

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/target"
)

// mockProducer acknowledges every message on the delivery channel.
type mockProducer struct {
	mu          sync.Mutex
	messages    []*kafka.Message
	produceErrs []error
	deliveryErr error
	flushed     bool
	closed      bool
}

func (m *mockProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	m.mu.Lock()
	if len(m.produceErrs) > 0 {
		err := m.produceErrs[0]
		m.produceErrs = m.produceErrs[1:]
		m.mu.Unlock()
		if err != nil {
			return err
		}
	} else {
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	report := *msg
	report.TopicPartition.Error = m.deliveryErr
	deliveryChan <- &report
	return nil
}

func (m *mockProducer) Flush(int) int {
	m.flushed = true
	return 0
}

func (m *mockProducer) Close() { m.closed = true }

func writeOrders(t *testing.T, n int) *target.LocalTarget {
	t.Helper()
	out := target.NewLocalTarget(filepath.Join(t.TempDir(), "orders.avro"))
	w, _, err := out.CreateWriter(avro.NewFormat(avro.WithSchema(avro.MustParseSchema(orderSchemaJSON))))
	require.NoError(t, err)
	for i := range n {
		require.NoError(t, w.Write(avro.NewRecord(avro.F("id", avro.Long(int64(i+1))), avro.F("status", avro.String("paid")))))
	}
	require.NoError(t, w.Close())
	return out
}

func testConfig() Config {
	cfg := Config{Brokers: "localhost:9092", Topic: "orders", KeyField: "id"}
	cfg.applyDefaults()
	return cfg
}

func TestPublisher_Run(t *testing.T) {
	// Arrange
	in := writeOrders(t, 3)
	producer := &mockProducer{}
	publisher := NewPublisher(producer, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())

	// Act
	err := publisher.Run(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, producer.messages, 3)

	msg := producer.messages[1]
	assert.Equal(t, "orders", *msg.TopicPartition.Topic)
	assert.Equal(t, []byte("2"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, SchemaHeader, msg.Headers[0].Key)
	assert.Equal(t, "com.acme.Order", string(msg.Headers[0].Value))

	_, payload, err := ParseSingleObject(msg.Value)
	require.NoError(t, err)
	rec, err := avro.MustParseSchema(orderSchemaJSON).Unmarshal(payload)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(2), "status": "paid"}, rec.Map())

	require.NoError(t, publisher.Close())
	assert.True(t, producer.flushed)
	assert.True(t, producer.closed)
}

func TestPublisher_Publish_Stats(t *testing.T) {
	in := writeOrders(t, 5)
	publisher := NewPublisher(&mockProducer{}, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())
	r, err := in.OpenReader(avro.NewFormat())
	require.NoError(t, err)
	defer r.Close()

	stats, err := publisher.Publish(context.Background(), r)

	require.NoError(t, err)
	assert.Equal(t, Stats{Produced: 5, Delivered: 5}, stats)
}

func TestPublisher_RetriesFullQueue(t *testing.T) {
	// Arrange
	in := writeOrders(t, 1)
	queueFull := kafka.NewError(kafka.ErrQueueFull, "queue full", false)
	producer := &mockProducer{produceErrs: []error{queueFull, queueFull}}
	publisher := NewPublisher(producer, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())

	// Act
	err := publisher.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Len(t, producer.messages, 1)
}

func TestPublisher_Failures(t *testing.T) {
	permanent := errors.New("unknown topic")
	delivery := kafka.NewError(kafka.ErrMsgTimedOut, "timed out", false)

	tests := []struct {
		name     string
		producer *mockProducer
		wantErr  error
	}{
		{
			name:     "produce error is not retried",
			producer: &mockProducer{produceErrs: []error{permanent}},
			wantErr:  permanent,
		},
		{
			name:     "failed delivery aborts",
			producer: &mockProducer{deliveryErr: delivery},
			wantErr:  delivery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := writeOrders(t, 2)
			publisher := NewPublisher(tt.producer, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())

			err := publisher.Run(context.Background())

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// pollingProducer queues reports and hands them to the delivery channel from
// a separate goroutine, the way librdkafka's poller does. Only the first
// report fails.
type pollingProducer struct {
	mu       sync.Mutex
	queue    chan *kafka.Message
	started  bool
	done     chan struct{}
	produced int
	failWith error
}

func newPollingProducer(failWith error) *pollingProducer {
	return &pollingProducer{
		queue:    make(chan *kafka.Message, 1024),
		done:     make(chan struct{}),
		failWith: failWith,
	}
}

func (m *pollingProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		m.started = true
		go m.poll(deliveryChan)
	}
	report := *msg
	if m.produced == 0 {
		report.TopicPartition.Error = m.failWith
	}
	m.produced++
	m.queue <- &report
	return nil
}

func (m *pollingProducer) poll(deliveryChan chan kafka.Event) {
	defer close(m.done)
	for report := range m.queue {
		deliveryChan <- report
	}
}

func (m *pollingProducer) Flush(int) int { return 0 }

func (m *pollingProducer) Close() { close(m.queue) }

func TestPublisher_FailedDeliveryDrainsReports(t *testing.T) {
	// Arrange: more records in flight than the delivery channel holds
	in := writeOrders(t, 300)
	delivery := kafka.NewError(kafka.ErrMsgTimedOut, "timed out", false)
	producer := newPollingProducer(delivery)
	publisher := NewPublisher(producer, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())
	r, err := in.OpenReader(avro.NewFormat())
	require.NoError(t, err)
	defer r.Close()

	// Act
	stats, err := publisher.Publish(context.Background(), r)

	// Assert
	require.ErrorIs(t, err, delivery)
	assert.Equal(t, stats.Produced-1, stats.Delivered)

	require.NoError(t, publisher.Close())
	select {
	case <-producer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("delivery reports left undrained")
	}
}

func TestPublisher_EmptyInput(t *testing.T) {
	// Arrange
	in := writeOrders(t, 0)
	producer := &mockProducer{}
	publisher := NewPublisher(producer, NewSingleObjectFramer(), testConfig(), avro.NewFormat(), in, zap.NewNop())

	// Act
	err := publisher.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Empty(t, producer.messages)
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, []byte("k"), messageKey(avro.String("k")))
	assert.Equal(t, []byte("7"), messageKey(avro.Int(7)))
	assert.Equal(t, []byte{1}, messageKey(avro.Bytes([]byte{1})))
	assert.Nil(t, messageKey(avro.Null()))
	assert.True(t, bytes.Equal([]byte("true"), messageKey(avro.Bool(true))))
}
