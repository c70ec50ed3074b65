package pubsub

import (
	"context"
)

// Message is the structure passed between session participants on the bus.
// It is intentionally simple to act as a wrapper for raw data.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g., "relay.requests").
	Topic string
	// SenderID identifies the session participant who published the message.
	SenderID string
	// Payload contains the raw message data (JSON).
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context.
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the bus.
type Subscriber interface {
	// Subscribe starts listening to the given topic, processing messages
	// with the handler. The subscription stays active until ctx is
	// canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Bus combines both sides of the shared session channel.
type Bus interface {
	Publisher
	Subscriber
}
