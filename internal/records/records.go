// Package records defines the domain and content record boundary. The
// relational store behind it is an external collaborator consumed through
// get/upsert operations; no transactions span the two entities.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/neuralnyx/domaincrawler/internal/crawler"
)

// ErrNotFound marks a missing domain or content record.
var ErrNotFound = errors.New("record not found")

// DomainRecord is one registered domain in the registry.
type DomainRecord struct {
	Domain        string
	UserID        string
	CreatedAt     time.Time
	LastCrawledAt *time.Time
}

// CrawlResultsMeta is the legacy-reader crawl summary stored on the domain.
type CrawlResultsMeta struct {
	StorageBucket  string `json:"storageBucket"`
	StorageBaseKey string `json:"storageBaseKey"`
	TotalPages     int    `json:"totalPages"`
}

// MarkdownResultsMeta is the legacy-reader markdown summary on the domain.
type MarkdownResultsMeta struct {
	StorageKey  string    `json:"storageKey"`
	Bucket      string    `json:"bucket"`
	WordCount   int       `json:"wordCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DomainCrawlMetadata is the best-effort secondary write applied to the
// domain registry after each crawl, overwriting any prior value.
type DomainCrawlMetadata struct {
	LastCrawledAt   time.Time
	CrawlResults    CrawlResultsMeta
	MarkdownResults *MarkdownResultsMeta
}

// CrawlData is the crawl-data sub-record of a content record.
type CrawlData struct {
	Title         string               `json:"title"`
	StatusCode    int                  `json:"statusCode"`
	LoadTimeMs    int64                `json:"loadTimeMs"`
	WordCount     int                  `json:"wordCount"`
	Links         []string             `json:"links"`
	Images        []string             `json:"images"`
	Forms         []crawler.PageForm   `json:"forms"`
	Buttons       []crawler.PageButton `json:"buttons"`
	Inputs        []crawler.PageInput  `json:"inputs"`
	HTMLObjectURI string               `json:"htmlObjectUri"`
	CrawledAt     time.Time            `json:"crawledAt"`
}

// MarkdownData is the markdown-data sub-record of a content record.
type MarkdownData struct {
	ObjectURI   string    `json:"objectUri"`
	WordCount   int       `json:"wordCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ContentRecord is keyed by (domain, url) and upserted on every successful
// crawl. This pipeline never deletes it.
type ContentRecord struct {
	Domain    string        `json:"domain"`
	URL       string        `json:"url"`
	Crawl     *CrawlData    `json:"crawl,omitempty"`
	Markdown  *MarkdownData `json:"markdown,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store persists domain and content records. The two entities are written
// independently; callers must not assume a transaction spans both.
type Store interface {
	// GetDomain returns the registry row, or ErrNotFound.
	GetDomain(ctx context.Context, domain string) (DomainRecord, error)
	// UpdateDomainMetadata overwrites the crawl metadata on the registry
	// row. Last write wins; no ordering token is used.
	UpdateDomainMetadata(ctx context.Context, domain string, meta DomainCrawlMetadata) error
	// UpsertContent writes the content record keyed by (domain, url).
	UpsertContent(ctx context.Context, record ContentRecord) error
	// GetContent returns the content record, or ErrNotFound.
	GetContent(ctx context.Context, domain, url string) (ContentRecord, error)
}
