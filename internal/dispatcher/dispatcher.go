// Package dispatcher bridges the message bus onto the event queue and fans
// the queue out to a pool of crawl workers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/bus"
	"github.com/neuralnyx/domaincrawler/internal/events"
	"github.com/neuralnyx/domaincrawler/internal/queue"
	"github.com/neuralnyx/domaincrawler/internal/worker"
)

// Dispatcher fans bus deliveries out to workers through the queue.
type Dispatcher struct {
	queue   queue.Queue
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(q queue.Queue, workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		workers: workers,
		logger:  logger,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, event events.DomainLifecycleEvent) error {
	if err := d.queue.Enqueue(ctx, event); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Consume receives bus messages and moves decoded events onto the queue.
// A message that cannot be decoded is acknowledged and dropped; redelivering
// it would never succeed.
func (d *Dispatcher) Consume(ctx context.Context, subscriber bus.Subscriber) error {
	return subscriber.Receive(ctx, func(ctx context.Context, msg bus.Message) error {
		event, err := events.Unmarshal(msg.Data)
		if err != nil {
			d.logger.Error("dropping undecodable bus message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return nil
		}
		if err := d.Enqueue(ctx, event); err != nil {
			return err
		}
		return nil
	})
}
