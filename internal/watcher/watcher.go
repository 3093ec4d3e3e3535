// Package watcher turns registry change batches into domain lifecycle events
// on the message bus. Inserts become DOMAIN_CREATED, removes become
// DOMAIN_DELETED, and in-place modifications are suppressed.
package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/attrs"
	"github.com/neuralnyx/domaincrawler/internal/bus"
	"github.com/neuralnyx/domaincrawler/internal/capture"
	"github.com/neuralnyx/domaincrawler/internal/crawler"
	"github.com/neuralnyx/domaincrawler/internal/events"
)

// Metrics receives per-record outcomes. The prometheus implementation lives
// in the metrics package; tests use a no-op.
type Metrics interface {
	RecordProcessed(op string)
	RecordSkipped(op string)
	RecordFailed(op string)
}

type noopMetrics struct{}

func (noopMetrics) RecordProcessed(string) {}
func (noopMetrics) RecordSkipped(string)   {}
func (noopMetrics) RecordFailed(string)    {}

// Watcher publishes lifecycle events derived from change-capture records.
type Watcher struct {
	publisher bus.Publisher
	clock     crawler.Clock
	ids       crawler.IDGenerator
	metrics   Metrics
	logger    *zap.Logger
}

// New builds a Watcher. A nil metrics sink is replaced with a no-op.
func New(publisher bus.Publisher, clock crawler.Clock, ids crawler.IDGenerator, metrics Metrics, logger *zap.Logger) *Watcher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Watcher{
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleBatch classifies each record independently. A record that cannot be
// classified is logged and skipped so one bad row never stalls the batch.
// Publish failures are collected and returned so the source can account for
// the delivery.
func (w *Watcher) HandleBatch(ctx context.Context, records []capture.Record) error {
	var failed int
	for _, record := range records {
		event, ok := w.classify(record)
		if !ok {
			continue
		}
		if err := w.publish(ctx, event); err != nil {
			failed++
			w.metrics.RecordFailed(string(record.Operation))
			w.logger.Error("failed to publish lifecycle event",
				zap.String("event_type", string(event.EventType)),
				zap.String("domain", event.Domain),
				zap.Error(err))
			continue
		}
		w.metrics.RecordProcessed(string(record.Operation))
	}
	if failed > 0 {
		return fmt.Errorf("watcher: %d of %d records failed to publish", failed, len(records))
	}
	return nil
}

func (w *Watcher) classify(record capture.Record) (events.DomainLifecycleEvent, bool) {
	var (
		eventType events.EventType
		image     map[string]attrs.Value
	)
	switch record.Operation {
	case capture.OpInsert:
		eventType = events.DomainCreated
		image = record.NewImage
	case capture.OpRemove:
		eventType = events.DomainDeleted
		image = record.OldImage
	case capture.OpModify:
		w.metrics.RecordSkipped(string(record.Operation))
		return events.DomainLifecycleEvent{}, false
	default:
		w.metrics.RecordSkipped(string(record.Operation))
		w.logger.Warn("skipping record with unknown operation",
			zap.String("operation", string(record.Operation)))
		return events.DomainLifecycleEvent{}, false
	}

	data := attrs.Decode(image)
	domain, _ := data["domain"].(string)
	if domain == "" {
		w.metrics.RecordSkipped(string(record.Operation))
		w.logger.Warn("skipping record without a domain attribute",
			zap.String("operation", string(record.Operation)))
		return events.DomainLifecycleEvent{}, false
	}
	userID, _ := data["user_id"].(string)
	if userID == "" {
		userID, _ = data["userId"].(string)
	}

	eventID, err := w.ids.NewID()
	if err != nil {
		w.metrics.RecordSkipped(string(record.Operation))
		w.logger.Error("failed to generate event id", zap.Error(err))
		return events.DomainLifecycleEvent{}, false
	}

	event := events.DomainLifecycleEvent{
		EventID:   eventID,
		EventType: eventType,
		Domain:    domain,
		UserID:    userID,
		Timestamp: w.clock.Now(),
	}
	event.Data = data
	if record.Operation == capture.OpRemove {
		event.PreviousData = data
	}
	return event, true
}

func (w *Watcher) publish(ctx context.Context, event events.DomainLifecycleEvent) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = w.publisher.Publish(publishCtx, payload, event.Attributes())
	return err
}
