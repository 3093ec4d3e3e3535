// Package queue defines the interface for the in-process event queue sitting
// between the bus subscriber and the crawl workers.
package queue

import (
	"context"

	"github.com/neuralnyx/domaincrawler/internal/events"
)

// Queue buffers lifecycle events between the subscriber and the workers.
type Queue interface {
	// Enqueue pushes an event, blocking while the queue is full.
	Enqueue(ctx context.Context, event events.DomainLifecycleEvent) error
	// Dequeue pops the next event, respecting context cancellation.
	Dequeue(ctx context.Context) (events.DomainLifecycleEvent, error)
	// Close releases the queue for shutdown.
	Close()
}
