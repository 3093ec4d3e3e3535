// Package memory provides an in-memory record store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/neuralnyx/domaincrawler/internal/records"
)

type contentKey struct {
	domain string
	url    string
}

// Store keeps domain and content records in maps.
type Store struct {
	mu       sync.RWMutex
	domains  map[string]records.DomainRecord
	metadata map[string]records.DomainCrawlMetadata
	content  map[contentKey]records.ContentRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		domains:  make(map[string]records.DomainRecord),
		metadata: make(map[string]records.DomainCrawlMetadata),
		content:  make(map[contentKey]records.ContentRecord),
	}
}

// SeedDomain registers a domain row, mirroring what the registry writer does.
func (s *Store) SeedDomain(rec records.DomainRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[rec.Domain] = rec
}

// GetDomain returns the registry row, or records.ErrNotFound.
func (s *Store) GetDomain(_ context.Context, domain string) (records.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.domains[domain]
	if !ok {
		return records.DomainRecord{}, records.ErrNotFound
	}
	return rec, nil
}

// UpdateDomainMetadata overwrites the crawl metadata on the registry row.
func (s *Store) UpdateDomainMetadata(_ context.Context, domain string, meta records.DomainCrawlMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.domains[domain]
	if !ok {
		return records.ErrNotFound
	}
	ts := meta.LastCrawledAt
	rec.LastCrawledAt = &ts
	s.domains[domain] = rec
	s.metadata[domain] = meta
	return nil
}

// Metadata returns the most recent crawl metadata written for the domain.
func (s *Store) Metadata(domain string) (records.DomainCrawlMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metadata[domain]
	return meta, ok
}

// UpsertContent writes the content record keyed by (domain, url).
func (s *Store) UpsertContent(_ context.Context, record records.ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[contentKey{domain: record.Domain, url: record.URL}] = record
	return nil
}

// GetContent returns the content record, or records.ErrNotFound.
func (s *Store) GetContent(_ context.Context, domain, url string) (records.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.content[contentKey{domain: domain, url: url}]
	if !ok {
		return records.ContentRecord{}, records.ErrNotFound
	}
	return rec, nil
}

// ContentCount reports how many content records exist (for tests).
func (s *Store) ContentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}
