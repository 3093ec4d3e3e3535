// Package storage defines the blob store boundary used for crawl artifacts.
// The abstraction keeps the pipeline independent of a specific backend
// (Google Cloud Storage in production, memory in tests).
package storage

import (
	"context"
	"time"
)

// BlobStore writes artifacts and issues short-lived retrieval URLs.
type BlobStore interface {
	// Put uploads data under the given key and returns the backend URI.
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
	// SignedURL returns a pre-signed GET URL valid for the given TTL.
	SignedURL(key string, ttl time.Duration) (string, error)
}
