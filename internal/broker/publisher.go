package appkafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/tweetfeed/internal/models"
)

// EventPublisher announces completed writes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Publisher encodes events as JSON and writes them keyed by actor.
type Publisher struct {
	writer KafkaWriter
	now    func() time.Time
}

func NewPublisher(w KafkaWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// Publish fills in ID and OccurredAt when unset.
func (p *Publisher) Publish(ctx context.Context, ev models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = p.now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.ActorID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// DecodeEvent parses a message value produced by Publish.
func DecodeEvent(value []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case models.EventTweetCreated, models.EventUserFollowed:
	default:
		return models.Event{}, fmt.Errorf("decode event: unknown type %q", ev.Type)
	}
	if ev.ActorID == "" {
		return models.Event{}, fmt.Errorf("decode event: missing actor_id")
	}
	return ev, nil
}

// NopPublisher drops events; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev models.Event) error { return nil }
