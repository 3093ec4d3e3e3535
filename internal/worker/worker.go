// Package worker implements the crawl execution loop over the event queue.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/crawler"
	"github.com/neuralnyx/domaincrawler/internal/events"
	"github.com/neuralnyx/domaincrawler/internal/queue"
)

// Pipeline runs one crawl execution end to end.
type Pipeline interface {
	Run(ctx context.Context, request crawler.CrawlRequest) (crawler.CrawlSummary, error)
}

// Worker consumes lifecycle events and triggers crawls for created domains.
// Deletion events are consumed and dropped; artifact cleanup is out of scope
// for this service.
type Worker struct {
	queue    queue.Queue
	pipeline Pipeline
	logger   *zap.Logger
}

// New constructs a Worker.
func New(q queue.Queue, pipeline Pipeline, logger *zap.Logger) *Worker {
	return &Worker{
		queue:    q,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run blocks, consuming events until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		event, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			return
		}
		w.handleEvent(ctx, event)
	}
}

func (w *Worker) handleEvent(ctx context.Context, event events.DomainLifecycleEvent) {
	switch event.EventType {
	case events.DomainCreated:
	case events.DomainDeleted:
		w.logger.Info("domain deleted, no crawl scheduled",
			zap.String("domain", event.Domain))
		return
	default:
		w.logger.Warn("dropping event with unknown type",
			zap.String("event_type", string(event.EventType)),
			zap.String("domain", event.Domain))
		return
	}

	summary, err := w.pipeline.Run(ctx, crawler.CrawlRequest{
		Domain: event.Domain,
		UserID: event.UserID,
	})
	if err != nil {
		w.logger.Error("crawl pipeline failed",
			zap.String("domain", event.Domain),
			zap.Error(err))
		return
	}
	w.logger.Info("crawl pipeline succeeded",
		zap.String("domain", summary.Domain),
		zap.Int("total_pages", summary.TotalPages),
		zap.Int("word_count", summary.WordCount))
}
