package pglisten

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neuralnyx/domaincrawler/internal/capture"
)

func TestDecodePayloadArray(t *testing.T) {
	t.Parallel()

	payload := `[
		{"eventName":"INSERT","newImage":{"domain":{"S":"acme.io"}}},
		{"eventName":"REMOVE","oldImage":{"domain":{"S":"old.example.com"}}}
	]`

	records, err := decodePayload([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, capture.OpInsert, records[0].Operation)
	require.Equal(t, "acme.io", *records[0].NewImage["domain"].S)
	require.Equal(t, capture.OpRemove, records[1].Operation)
}

func TestDecodePayloadSingleObject(t *testing.T) {
	t.Parallel()

	payload := `{"eventName":"MODIFY","table":"domains","newImage":{"domain":{"S":"acme.io"}},"oldImage":{"domain":{"S":"acme.io"}}}`

	records, err := decodePayload([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, capture.OpModify, records[0].Operation)
	require.Equal(t, "domains", records[0].Table)
	require.NotNil(t, records[0].OldImage)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := decodePayload([]byte("not json"))
	require.Error(t, err)
}
