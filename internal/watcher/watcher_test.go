package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/attrs"
	busmemory "github.com/neuralnyx/domaincrawler/internal/bus/memory"
	"github.com/neuralnyx/domaincrawler/internal/capture"
	"github.com/neuralnyx/domaincrawler/internal/events"
	iduuid "github.com/neuralnyx/domaincrawler/internal/id/uuid"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type failingPublisher struct {
	err error
}

func (p failingPublisher) Publish(context.Context, []byte, map[string]string) (string, error) {
	return "", p.err
}

type countingMetrics struct {
	processed int
	skipped   int
	failed    int
}

func (m *countingMetrics) RecordProcessed(string) { m.processed++ }
func (m *countingMetrics) RecordSkipped(string)   { m.skipped++ }
func (m *countingMetrics) RecordFailed(string)    { m.failed++ }

func str(s string) *string { return &s }

func insertRecord(domain, userID string) capture.Record {
	return capture.Record{
		Operation: capture.OpInsert,
		NewImage: map[string]attrs.Value{
			"domain":  {S: str(domain)},
			"user_id": {S: str(userID)},
		},
	}
}

func TestHandleBatchInsertPublishesSingleCreatedEvent(t *testing.T) {
	t.Parallel()

	b := busmemory.New(4)
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	w := New(b, clock, iduuid.NewUUIDGenerator(), nil, zap.NewNop())

	err := w.HandleBatch(context.Background(), []capture.Record{insertRecord("acme.io", "user-1")})
	require.NoError(t, err)

	msgs := b.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, string(events.DomainCreated), msgs[0].Attributes["eventType"])
	require.Equal(t, "acme.io", msgs[0].Attributes["domain"])
	require.Equal(t, "user-1", msgs[0].Attributes["userId"])

	event, err := events.Unmarshal(msgs[0].Data)
	require.NoError(t, err)
	require.Equal(t, events.DomainCreated, event.EventType)
	require.Equal(t, "acme.io", event.Domain)
	require.Equal(t, clock.now, event.Timestamp)
	require.Equal(t, "user-1", event.Data["user_id"])
	require.NotEmpty(t, event.EventID)
}

func TestHandleBatchModifyNeverPublishes(t *testing.T) {
	t.Parallel()

	b := busmemory.New(4)
	metrics := &countingMetrics{}
	w := New(b, fixedClock{now: time.Now()}, iduuid.NewUUIDGenerator(), metrics, zap.NewNop())

	record := capture.Record{
		Operation: capture.OpModify,
		NewImage:  map[string]attrs.Value{"domain": {S: str("acme.io")}},
		OldImage:  map[string]attrs.Value{"domain": {S: str("acme.io")}},
	}
	err := w.HandleBatch(context.Background(), []capture.Record{record})
	require.NoError(t, err)
	require.Empty(t, b.Messages())
	require.Equal(t, 1, metrics.skipped)
	require.Zero(t, metrics.processed)
}

func TestHandleBatchRemovePublishesDeletedWithPreviousData(t *testing.T) {
	t.Parallel()

	b := busmemory.New(4)
	w := New(b, fixedClock{now: time.Now()}, iduuid.NewUUIDGenerator(), nil, zap.NewNop())

	record := capture.Record{
		Operation: capture.OpRemove,
		OldImage: map[string]attrs.Value{
			"domain":  {S: str("old.example.com")},
			"user_id": {S: str("user-2")},
		},
	}
	err := w.HandleBatch(context.Background(), []capture.Record{record})
	require.NoError(t, err)

	msgs := b.Messages()
	require.Len(t, msgs, 1)
	event, err := events.Unmarshal(msgs[0].Data)
	require.NoError(t, err)
	require.Equal(t, events.DomainDeleted, event.EventType)
	require.Equal(t, "old.example.com", event.Data["domain"])
	require.Equal(t, "old.example.com", event.PreviousData["domain"])
	require.Equal(t, "user-2", event.Data["user_id"])
}

func TestHandleBatchSkipsMalformedRecordAndContinues(t *testing.T) {
	t.Parallel()

	b := busmemory.New(4)
	metrics := &countingMetrics{}
	w := New(b, fixedClock{now: time.Now()}, iduuid.NewUUIDGenerator(), metrics, zap.NewNop())

	batch := []capture.Record{
		{Operation: capture.OpInsert, NewImage: map[string]attrs.Value{"name": {S: str("no domain here")}}},
		insertRecord("acme.io", "user-1"),
		{Operation: capture.Operation("TRUNCATE")},
	}
	err := w.HandleBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, b.Messages(), 1)
	require.Equal(t, 1, metrics.processed)
	require.Equal(t, 2, metrics.skipped)
}

func TestHandleBatchReportsPublishFailures(t *testing.T) {
	t.Parallel()

	metrics := &countingMetrics{}
	w := New(failingPublisher{err: errors.New("broker down")}, fixedClock{now: time.Now()}, iduuid.NewUUIDGenerator(), metrics, zap.NewNop())

	batch := []capture.Record{
		insertRecord("acme.io", "user-1"),
		insertRecord("beta.example.com", "user-2"),
	}
	err := w.HandleBatch(context.Background(), batch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 of 2")
	require.Equal(t, 2, metrics.failed)
}
