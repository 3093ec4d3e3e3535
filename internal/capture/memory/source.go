// Package memory provides an in-process change-capture source for tests and
// local development.
package memory

import (
	"context"

	"github.com/neuralnyx/domaincrawler/internal/capture"
)

// Source delivers batches pushed through Emit to a single receiver.
type Source struct {
	batches chan []capture.Record
}

// NewSource returns a Source with the given delivery buffer.
func NewSource(buffer int) *Source {
	return &Source{batches: make(chan []capture.Record, buffer)}
}

// Emit queues one batch for delivery.
func (s *Source) Emit(records []capture.Record) {
	s.batches <- records
}

// Receive delivers queued batches until the context finishes. Handler errors
// are swallowed, matching the at-most-once semantics of the live source.
func (s *Source) Receive(ctx context.Context, handler capture.BatchHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case records := <-s.batches:
			_ = handler(ctx, records)
		}
	}
}
