// Package audit emits pipeline lifecycle events to Kafka for downstream
// consumers. Publishing is best effort and never blocks or fails a run.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"fhir-bridge/internal/platform/kafka/producer"
)

// Event types emitted over the audit topic.
const (
	EventPatientReceived = "patient_received"
	EventPatientCreated  = "patient_created"
	EventPatientRejected = "patient_rejected"
	EventDateFallback    = "date_fallback"
)

// Event is one audit entry. It identifies the run, never the patient.
type Event struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	Outcome   string    `json:"outcome,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits audit events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// messageProducer is the producer surface the Kafka publisher needs.
type messageProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaPublisher publishes audit events to a Kafka topic, keyed by request
// id so events of one run land on the same partition.
type KafkaPublisher struct {
	producer messageProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(p messageProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, logger: logger}
}

// Publish encodes the event and hands it to the async producer. Failures
// are logged and dropped.
func (k *KafkaPublisher) Publish(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		k.logger.Error("encoding audit event", "type", event.Type, "error", err)
		return
	}
	err = k.producer.ProduceAsync(&producer.Message{
		Topic: k.topic,
		Key:   []byte(event.RequestID),
		Value: value,
	})
	if err != nil {
		k.logger.Error("publishing audit event", "type", event.Type, "error", err)
	}
}

// NoopPublisher drops all events. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) {}
