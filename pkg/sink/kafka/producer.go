package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer is the part of *kafka.Producer the publisher uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

func newKafkaProducer(conf Config) (*kafka.Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": conf.Brokers,
		"client.id":         conf.ClientID,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return p, nil
}

// produceWithRetry retries while librdkafka reports a full local queue,
// backing off exponentially up to maxRetries times.
func produceWithRetry(ctx context.Context, p Producer, msg *kafka.Message, deliveries chan kafka.Event, maxRetries uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	return backoff.Retry(func() error {
		err := p.Produce(msg, deliveries)
		if err == nil {
			return nil
		}
		var kerr kafka.Error
		if errors.As(err, &kerr) && kerr.Code() == kafka.ErrQueueFull {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}

func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeoutSec int, failOnError bool) error {
	log.Info("waiting for kafka brokers", zap.Int("timeout_seconds", timeoutSec))

	if timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	if err := pollBrokers(ctx, p); err != nil {
		if failOnError {
			return fmt.Errorf("kafka brokers not available: %w", err)
		}
		log.Warn("brokers not ready, continuing", zap.Error(err))
		return nil
	}

	log.Info("producer ready")
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider) error {
	for {
		if meta, err := p.GetMetadata(nil, false, 1000); err == nil && len(meta.Brokers) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
