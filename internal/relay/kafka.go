package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-escrow-go/internal/models"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events to one topic keyed by aggregate id, so events
// of the same reservation or wallet stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(cfg models.KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, event models.OutboxEvent) error {
	msg, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func kafkaMessage(event models.OutboxEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event %s: %w", event.Id, err)
	}
	return kafka.Message{
		Key:   []byte(event.AggregateId),
		Value: payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.Id)},
			{Key: "event-type", Value: []byte(event.EventType)},
		},
	}, nil
}
