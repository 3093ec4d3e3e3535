// Package bus defines the publish/subscribe interfaces for lifecycle events.
// The transport itself (redelivery, backoff, ordering) is an external
// collaborator; this package only covers publish and subscribe primitives.
package bus

import "context"

// Message is one delivered bus message.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Publisher pushes messages with routing attributes to a topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Handler consumes one delivered message. Returning an error signals the
// transport to redeliver according to its own policy.
type Handler func(ctx context.Context, msg Message) error

// Subscriber delivers messages to a handler until the context finishes.
type Subscriber interface {
	Receive(ctx context.Context, handler Handler) error
}
