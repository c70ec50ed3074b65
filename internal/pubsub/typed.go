package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event[T] wraps a topic name and provides type-safe publishing and
// subscribing for JSON payloads.
type Event[T any] struct {
	topicName   string
	description string
}

// NewEvent creates a typed event for a topic.
func NewEvent[T any](name string, description string) Event[T] {
	return Event[T]{
		topicName:   name,
		description: description,
	}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topicName
}

// Description returns the human-readable topic description.
func (e Event[T]) Description() string {
	return e.description
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.Name(), err)
	}

	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		Payload: data,
	})
}

// Subscribe listens on a typed event's topic, decoding each payload into T
// before invoking the handler. Messages that fail to decode are reported as
// handler errors and otherwise skipped.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Name(), err)
		}
		return handler(ctx, payload)
	})
}
