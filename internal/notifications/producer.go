package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaSinkConfig contains configuration for the Kafka notification sink
type KafkaSinkConfig struct {
	Brokers       []string
	TicketsTopic  string
	ActivityTopic string
	RetryMax      int
	TimeoutMs     int
}

// DefaultKafkaSinkConfig returns a default sink configuration
func DefaultKafkaSinkConfig() *KafkaSinkConfig {
	return &KafkaSinkConfig{
		Brokers:       []string{"localhost:9092"},
		TicketsTopic:  "tickets-issued",
		ActivityTopic: "activity-log",
		RetryMax:      3,
		TimeoutMs:     10000,
	}
}

// TicketsIssuedMessage is the payload consumed by the delivery service.
type TicketsIssuedMessage struct {
	RecipientEmail string    `json:"recipient_email"`
	EventTitle     string    `json:"event_title"`
	TicketCount    int       `json:"ticket_count"`
	IssuedAt       time.Time `json:"issued_at"`
}

// ActivityMessage is one audit-trail entry.
type ActivityMessage struct {
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	RecordedAt time.Time `json:"recorded_at"`
}

// KafkaSink publishes notification signals to Kafka. The engine treats every
// publish as fire-and-forget; a broker outage costs a notification, never a
// reservation.
type KafkaSink struct {
	producer sarama.SyncProducer
	config   *KafkaSinkConfig
}

// NewKafkaSink creates a Kafka-backed notification sink
func NewKafkaSink(config *KafkaSinkConfig) (*KafkaSink, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond

	// Hash partitioner keeps one recipient's notifications ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaSink{
		producer: producer,
		config:   config,
	}, nil
}

func (s *KafkaSink) NotifyTicketsIssued(ctx context.Context, recipientEmail, eventTitle string, ticketCount int) error {
	payload, err := json.Marshal(TicketsIssuedMessage{
		RecipientEmail: recipientEmail,
		EventTitle:     eventTitle,
		TicketCount:    ticketCount,
		IssuedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tickets-issued message: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.config.TicketsTopic,
		Key:   sarama.StringEncoder(recipientEmail),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish tickets-issued message: %w", err)
	}
	return nil
}

func (s *KafkaSink) RecordActivity(ctx context.Context, kind, summary string) error {
	payload, err := json.Marshal(ActivityMessage{
		Kind:       kind,
		Summary:    summary,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.config.ActivityTopic,
		Key:   sarama.StringEncoder(kind),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish activity message: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (s *KafkaSink) Close() error {
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
