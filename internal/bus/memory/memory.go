// Package memory contains an in-memory bus for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/neuralnyx/domaincrawler/internal/bus"
)

// Bus is an in-process publisher/subscriber pair backed by a channel.
type Bus struct {
	mu       sync.RWMutex
	messages []bus.Message
	ch       chan bus.Message
}

// New returns a Bus with the given delivery buffer.
func New(buffer int) *Bus {
	return &Bus{ch: make(chan bus.Message, buffer)}
}

// Publish records the message and offers it for delivery.
func (b *Bus) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	b.mu.Lock()
	id := fmt.Sprintf("memory-%d", len(b.messages)+1)
	msg := bus.Message{
		ID:         id,
		Data:       append([]byte(nil), data...),
		Attributes: attributes,
	}
	b.messages = append(b.messages, msg)
	b.mu.Unlock()

	select {
	case b.ch <- msg:
	case <-ctx.Done():
		return "", fmt.Errorf("publish canceled: %w", ctx.Err())
	}
	return id, nil
}

// Receive delivers published messages to the handler until the context ends.
// Handler errors are ignored here; the in-memory bus does not redeliver.
func (b *Bus) Receive(ctx context.Context, handler bus.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-b.ch:
			_ = handler(ctx, msg)
		}
	}
}

// Messages returns a copy of every published message for inspection.
func (b *Bus) Messages() []bus.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]bus.Message, len(b.messages))
	copy(out, b.messages)
	return out
}
