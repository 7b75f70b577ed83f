package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/waranyu/saas-admin-platform/pkg/logger"
)

// KafkaConfig holds producer settings
type KafkaConfig struct {
	Brokers  []string
	ClientID string
}

// KafkaPublisher implements Publisher over a franz-go producer.
// Produce is asynchronous: delivery failures are logged, not returned,
// so request latency never depends on the broker.
type KafkaPublisher struct {
	client *kgo.Client
	log    *logger.Logger
}

// NewKafkaPublisher creates a producer and verifies broker connectivity
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: failed to ping brokers: %w", err)
	}

	return &KafkaPublisher{client: client, log: log}, nil
}

// Publish serializes the event and hands it to the producer. The event is
// keyed by tenant ID so consumers see per-tenant order.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(event.TenantID),
		Value: data,
	}

	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.log.Error("failed to publish event",
				zap.String("topic", topic),
				zap.String("event_type", event.Type),
				zap.Error(err),
			)
		}
	})

	return nil
}

// Close flushes pending records and shuts the producer down
func (p *KafkaPublisher) Close() {
	flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.client.Flush(flushCtx); err != nil {
		p.log.Warn("failed to flush pending events", zap.Error(err))
	}
	p.client.Close()
}
