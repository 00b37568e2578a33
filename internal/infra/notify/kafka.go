package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes one message per notification, keyed by user so a
// user's events stay ordered within a partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka notifier requires a topic")
	}
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}, nil
}

type message struct {
	UserID     uint                   `json:"user_id"`
	EventType  string                 `json:"event_type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (k *KafkaNotifier) Notify(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) error {
	value, err := json.Marshal(message{UserID: userID, EventType: eventType, Payload: payload, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(userID), 10)),
		Value: value,
	})
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
