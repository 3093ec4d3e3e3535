// Package memory provides the bounded channel-backed event queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neuralnyx/domaincrawler/internal/events"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan events.DomainLifecycleEvent
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan events.DomainLifecycleEvent, capacity),
	}
}

// Enqueue pushes an event into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, event events.DomainLifecycleEvent) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- event:
		return nil
	}
}

// Dequeue pops the next event, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (events.DomainLifecycleEvent, error) {
	select {
	case <-ctx.Done():
		return events.DomainLifecycleEvent{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case event, ok := <-q.ch:
		if !ok {
			return events.DomainLifecycleEvent{}, errors.New("queue closed")
		}
		return event, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
