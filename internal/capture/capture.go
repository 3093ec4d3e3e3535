// Package capture defines the change-capture boundary: batched row-level
// mutation records consumed from the domain registry.
package capture

import (
	"context"

	"github.com/neuralnyx/domaincrawler/internal/attrs"
)

// Operation tags one row-level mutation.
type Operation string

// Supported change-capture operations.
const (
	OpInsert Operation = "INSERT"
	OpModify Operation = "MODIFY"
	OpRemove Operation = "REMOVE"
)

// Record describes one row mutation on the registry table. Images carry the
// tagged-union wire representation decoded by the attrs package.
type Record struct {
	Operation Operation              `json:"eventName"`
	Table     string                 `json:"table,omitempty"`
	NewImage  map[string]attrs.Value `json:"newImage,omitempty"`
	OldImage  map[string]attrs.Value `json:"oldImage,omitempty"`
}

// BatchHandler processes one delivery batch. Returning an error signals the
// source to redeliver per its own policy.
type BatchHandler func(ctx context.Context, records []Record) error

// Source delivers change-capture batches until the context finishes.
type Source interface {
	Receive(ctx context.Context, handler BatchHandler) error
}
