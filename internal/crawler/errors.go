package crawler

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions rejected before any browser work starts.
var (
	// ErrInvalidInput marks a malformed URL or domain.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized marks a caller with no claim on the requested domain.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDomainNotFound marks a domain missing from the registry.
	ErrDomainNotFound = errors.New("domain not found")
)

// CrawlError wraps a navigation or extraction failure. The page is skipped;
// the rest of the run proceeds.
type CrawlError struct {
	URL string
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %v", e.URL, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// ConversionError wraps a markdown conversion failure. The pipeline proceeds
// without a document artifact.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert markup: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a storage or record-store failure. Partial artifacts
// may already exist, so it is propagated rather than swallowed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
