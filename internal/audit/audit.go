// Package audit records privileged admin mutations on an external trail.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is one privileged mutation. Fields lists which contract fields the
// actor overwrote; Detail carries any free-form context.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Fields    []string  `json:"fields,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Publisher emits audit events. Emission is best-effort and must never block
// or fail the mutation it describes.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// LogPublisher writes audit events to the structured log. Used when no
// broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) {
	p.logger.InfoContext(ctx, "audit event",
		"actor_id", event.ActorID,
		"action", event.Action,
		"entity", event.Entity,
		"entity_id", event.EntityID,
		"fields", event.Fields,
	)
}

// KafkaPublisher produces audit events to a Kafka topic. Produces are
// asynchronous; delivery failures are logged, not surfaced.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "audit event marshal failed", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EntityID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit event delivery failed",
				"error", err,
				"action", event.Action,
				"entity_id", event.EntityID,
			)
		}
	})
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
