package memory

import (
	"context"
	"testing"
	"time"

	"github.com/neuralnyx/domaincrawler/internal/events"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan events.DomainLifecycleEvent, 1)
	errCh := make(chan error, 1)

	go func() {
		event, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- event
	}()

	want := events.DomainLifecycleEvent{
		EventType: events.DomainCreated,
		Domain:    "acme.io",
		UserID:    "user-1",
	}
	if err := q.Enqueue(context.Background(), want); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case err := <-errCh:
		t.Fatalf("dequeue: %v", err)
	case got := <-result:
		if got.Domain != want.Domain || got.EventType != want.EventType {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatal("expected context error from empty queue")
	}
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	event := events.DomainLifecycleEvent{EventType: events.DomainCreated, Domain: "acme.io"}
	if err := q.Enqueue(context.Background(), event); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, event); err == nil {
		t.Fatal("expected context error from full queue")
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	if _, err := q.Dequeue(context.Background()); err == nil {
		t.Fatal("expected error from closed queue")
	}
}
