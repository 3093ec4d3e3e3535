// Package pglisten consumes registry change batches over Postgres
// LISTEN/NOTIFY. A trigger on the registry table emits one JSON payload per
// statement, either a single record or an array of records.
package pglisten

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/capture"
)

// Config holds connection settings for the notification listener.
type Config struct {
	DSN     string
	Channel string
}

// Listener is a capture.Source backed by a dedicated Postgres connection.
type Listener struct {
	conn    *pgx.Conn
	channel string
	logger  *zap.Logger
}

// New opens a dedicated connection and subscribes to the configured channel.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Listener, error) {
	if cfg.Channel == "" {
		return nil, fmt.Errorf("pglisten: channel is required")
	}
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pglisten: connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{cfg.Channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("pglisten: listen %s: %w", cfg.Channel, err)
	}
	return &Listener{conn: conn, channel: cfg.Channel, logger: logger}, nil
}

// Receive blocks and delivers each notification payload as one batch. A
// payload that fails to decode is logged and skipped; handler errors are
// logged and the loop continues, since NOTIFY has no redelivery.
func (l *Listener) Receive(ctx context.Context, handler capture.BatchHandler) error {
	for {
		notification, err := l.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pglisten: wait: %w", err)
		}
		records, err := decodePayload([]byte(notification.Payload))
		if err != nil {
			l.logger.Error("discarding undecodable change payload",
				zap.String("channel", l.channel),
				zap.Error(err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := handler(ctx, records); err != nil {
			l.logger.Error("change batch handler failed",
				zap.String("channel", l.channel),
				zap.Int("records", len(records)),
				zap.Error(err))
		}
	}
}

// Close releases the dedicated connection.
func (l *Listener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}

func decodePayload(payload []byte) ([]capture.Record, error) {
	var records []capture.Record
	if err := json.Unmarshal(payload, &records); err == nil {
		return records, nil
	}
	var single capture.Record
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return []capture.Record{single}, nil
}
