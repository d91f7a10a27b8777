package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

func NewSyncProducer(cfg KafkaConfig) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return producer, nil
}

type TransitionMessage struct {
	PaymentID     uint64 `json:"payment_id"`
	PaymentNumber string `json:"payment_number"`
	EventType     string `json:"event_type"`
	OldState      string `json:"old_state,omitempty"`
	NewState      string `json:"new_state"`
	OccurredAt    string `json:"occurred_at"`
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: strings.TrimSpace(topic)}
}

// PublishTransition keys messages by payment number so one payment's transitions stay ordered.
func (p *KafkaPublisher) PublishTransition(_ context.Context, event *entity.PaymentStateEvent) error {
	message := TransitionMessage{
		PaymentID:     event.PaymentID,
		PaymentNumber: event.PaymentNumber,
		EventType:     event.EventType,
		NewState:      string(event.NewState),
		OccurredAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.OldState != nil {
		message.OldState = string(*event.OldState)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PaymentNumber),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
