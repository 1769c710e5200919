// Package kafka wraps the franz-go client behind the small surface the
// service needs. Only producing is wired here; consumers of the event topic
// live in other services.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records to Kafka.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects to the given brokers. Returns nil if brokers is empty
// (Kafka not configured).
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("build kafka client: %w", err)
	}
	return &Producer{client: client}, nil
}

// Produce synchronously publishes one record and waits for the broker ack.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the connection.
func (p *Producer) Close() {
	p.client.Close()
}
