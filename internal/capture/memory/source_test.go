package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neuralnyx/domaincrawler/internal/attrs"
	"github.com/neuralnyx/domaincrawler/internal/capture"
)

func str(s string) *string { return &s }

func TestSourceDeliversBatches(t *testing.T) {
	t.Parallel()

	source := NewSource(2)
	received := make(chan []capture.Record, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = source.Receive(ctx, func(_ context.Context, records []capture.Record) error {
			received <- records
			return nil
		})
	}()

	source.Emit([]capture.Record{{
		Operation: capture.OpInsert,
		NewImage:  map[string]attrs.Value{"domain": {S: str("acme.io")}},
	}})

	select {
	case batch := <-received:
		require.Len(t, batch, 1)
		require.Equal(t, capture.OpInsert, batch[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch delivery")
	}
}

func TestSourceStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	source := NewSource(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := source.Receive(ctx, func(context.Context, []capture.Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
