// Package postgres provides Postgres-backed record stores.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neuralnyx/domaincrawler/internal/records"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements records.Store on Postgres.
type Store struct {
	pool dbConn
}

// New connects a pool using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbConn) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetDomain returns the domain registry row.
func (s *Store) GetDomain(ctx context.Context, domain string) (records.DomainRecord, error) {
	const query = `
SELECT domain, user_id, created_at, last_crawled_at
FROM domains
WHERE domain = $1`

	var rec records.DomainRecord
	err := s.pool.QueryRow(ctx, query, domain).Scan(
		&rec.Domain,
		&rec.UserID,
		&rec.CreatedAt,
		&rec.LastCrawledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return records.DomainRecord{}, records.ErrNotFound
	}
	if err != nil {
		return records.DomainRecord{}, fmt.Errorf("select domain: %w", err)
	}
	return rec, nil
}

// UpdateDomainMetadata overwrites the registry crawl metadata for a domain.
func (s *Store) UpdateDomainMetadata(ctx context.Context, domain string, meta records.DomainCrawlMetadata) error {
	crawlJSON, err := json.Marshal(meta.CrawlResults)
	if err != nil {
		return fmt.Errorf("marshal crawl results: %w", err)
	}
	var markdownJSON []byte
	if meta.MarkdownResults != nil {
		markdownJSON, err = json.Marshal(meta.MarkdownResults)
		if err != nil {
			return fmt.Errorf("marshal markdown results: %w", err)
		}
	}

	const query = `
UPDATE domains
SET last_crawled_at = $2,
    crawl_results = $3,
    markdown_results = $4
WHERE domain = $1`

	tag, err := s.pool.Exec(ctx, query, domain, meta.LastCrawledAt, crawlJSON, markdownJSON)
	if err != nil {
		return fmt.Errorf("update domain metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return records.ErrNotFound
	}
	return nil
}

// UpsertContent writes a content record keyed by (domain, url). Re-running
// for the same key overwrites the prior row.
func (s *Store) UpsertContent(ctx context.Context, record records.ContentRecord) error {
	if record.Domain == "" || record.URL == "" {
		return fmt.Errorf("content record requires domain and url")
	}
	crawlJSON, err := marshalNullable(record.Crawl)
	if err != nil {
		return fmt.Errorf("marshal crawl data: %w", err)
	}
	markdownJSON, err := marshalNullable(record.Markdown)
	if err != nil {
		return fmt.Errorf("marshal markdown data: %w", err)
	}

	const query = `
INSERT INTO content (domain, url, crawl_data, markdown_data, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (domain, url) DO UPDATE
SET crawl_data = EXCLUDED.crawl_data,
    markdown_data = EXCLUDED.markdown_data,
    updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query,
		record.Domain,
		record.URL,
		crawlJSON,
		markdownJSON,
		record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

// GetContent returns the content record for (domain, url).
func (s *Store) GetContent(ctx context.Context, domain, url string) (records.ContentRecord, error) {
	const query = `
SELECT domain, url, crawl_data, markdown_data, updated_at
FROM content
WHERE domain = $1 AND url = $2`

	var (
		rec          records.ContentRecord
		crawlJSON    []byte
		markdownJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, domain, url).Scan(
		&rec.Domain,
		&rec.URL,
		&crawlJSON,
		&markdownJSON,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return records.ContentRecord{}, records.ErrNotFound
	}
	if err != nil {
		return records.ContentRecord{}, fmt.Errorf("select content: %w", err)
	}
	if len(crawlJSON) > 0 {
		rec.Crawl = &records.CrawlData{}
		if err := json.Unmarshal(crawlJSON, rec.Crawl); err != nil {
			return records.ContentRecord{}, fmt.Errorf("unmarshal crawl data: %w", err)
		}
	}
	if len(markdownJSON) > 0 {
		rec.Markdown = &records.MarkdownData{}
		if err := json.Unmarshal(markdownJSON, rec.Markdown); err != nil {
			return records.ContentRecord{}, fmt.Errorf("unmarshal markdown data: %w", err)
		}
	}
	return rec, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *records.CrawlData:
		if t == nil {
			return nil, nil
		}
	case *records.MarkdownData:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
