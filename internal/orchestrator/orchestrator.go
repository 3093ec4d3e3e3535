// Package orchestrator runs the crawl pipeline end to end: validate, crawl,
// persist artifacts, convert to markdown, and upsert records.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/crawler"
	"github.com/neuralnyx/domaincrawler/internal/markdown"
	"github.com/neuralnyx/domaincrawler/internal/params"
	"github.com/neuralnyx/domaincrawler/internal/records"
	"github.com/neuralnyx/domaincrawler/internal/storage"
)

// Parameter name resolved through the parameter store for the artifact bucket.
const BucketParameter = "crawl_results_bucket"

const signedURLTTL = time.Hour

// PageCrawler fetches and extracts a single rendered page.
type PageCrawler interface {
	Crawl(ctx context.Context, url string) (crawler.PageResult, error)
}

// Metrics receives pipeline outcomes; the prometheus implementation lives in
// the metrics package.
type Metrics interface {
	CrawlStarted()
	CrawlCompleted(outcome string, duration time.Duration)
	ConversionCompleted(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) CrawlStarted()                        {}
func (noopMetrics) CrawlCompleted(string, time.Duration) {}
func (noopMetrics) ConversionCompleted(string)           {}

// Orchestrator coordinates one crawl execution across its collaborators.
type Orchestrator struct {
	pages   PageCrawler
	blobs   storage.BlobStore
	store   records.Store
	params  params.Store
	clock   crawler.Clock
	metrics Metrics
	logger  *zap.Logger
	mdOpts  markdown.Options
}

// New builds an Orchestrator. A nil metrics sink is replaced with a no-op.
func New(pages PageCrawler, blobs storage.BlobStore, store records.Store, paramStore params.Store, clock crawler.Clock, metrics Metrics, logger *zap.Logger) *Orchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Orchestrator{
		pages:   pages,
		blobs:   blobs,
		store:   store,
		params:  paramStore,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		mdOpts:  markdown.DefaultOptions(),
	}
}

// Run executes the pipeline for one request. The event path leaves
// request.URL empty and crawls the domain root; the API path supplies a URL
// whose host must resolve to a domain registered to the caller.
func (o *Orchestrator) Run(ctx context.Context, request crawler.CrawlRequest) (crawler.CrawlSummary, error) {
	domain := crawler.NormalizeDomain(request.Domain)
	if !crawler.ValidDomain(domain) {
		return crawler.CrawlSummary{}, fmt.Errorf("%w: invalid domain %q", crawler.ErrInvalidInput, request.Domain)
	}

	targetURL := request.URL
	if targetURL == "" {
		targetURL = "https://" + domain
	} else {
		if err := o.authorize(ctx, domain, targetURL, request.UserID); err != nil {
			return crawler.CrawlSummary{}, err
		}
	}

	crawledAt := o.clock.Now()
	o.metrics.CrawlStarted()
	start := time.Now()
	page, crawlErr := o.pages.Crawl(ctx, targetURL)
	if crawlErr != nil {
		o.metrics.CrawlCompleted("error", time.Since(start))
		o.logger.Error("crawl failed",
			zap.String("domain", domain),
			zap.String("url", targetURL),
			zap.Error(crawlErr))
		o.updateRegistry(ctx, domain, records.DomainCrawlMetadata{
			LastCrawledAt: crawledAt,
			CrawlResults:  records.CrawlResultsMeta{TotalPages: 0},
		})
		return crawler.CrawlSummary{}, crawlErr
	}
	o.metrics.CrawlCompleted("ok", time.Since(start))

	bucket, err := o.params.GetParameter(ctx, BucketParameter)
	if err != nil {
		return crawler.CrawlSummary{}, &crawler.PersistenceError{Op: "resolve bucket", Err: err}
	}

	baseKey := artifactBaseKey(request.UserID, domain, crawledAt)
	htmlKey := baseKey + "/content.html"
	htmlURI, err := o.blobs.Put(ctx, htmlKey, "text/html; charset=utf-8", []byte(page.RawContent))
	if err != nil {
		return crawler.CrawlSummary{}, &crawler.PersistenceError{Op: "store html", Err: err}
	}

	markdownData, markdownMeta, markdownKey := o.convertAndStore(ctx, page, baseKey, bucket, crawledAt)

	presigned, err := o.blobs.SignedURL(htmlKey, signedURLTTL)
	if err != nil {
		o.logger.Warn("failed to presign html artifact",
			zap.String("key", htmlKey),
			zap.Error(err))
		presigned = ""
	}

	record := records.ContentRecord{
		Domain: domain,
		URL:    targetURL,
		Crawl: &records.CrawlData{
			Title:         page.Title,
			StatusCode:    page.StatusCode,
			LoadTimeMs:    page.LoadTimeMs,
			WordCount:     page.WordCount,
			Links:         page.Links,
			Images:        page.Images,
			Forms:         page.Forms,
			Buttons:       page.Buttons,
			Inputs:        page.Inputs,
			HTMLObjectURI: htmlURI,
			CrawledAt:     crawledAt,
		},
		Markdown:  markdownData,
		UpdatedAt: crawledAt,
	}
	if err := o.store.UpsertContent(ctx, record); err != nil {
		return crawler.CrawlSummary{}, &crawler.PersistenceError{Op: "upsert content", Err: err}
	}

	o.updateRegistry(ctx, domain, records.DomainCrawlMetadata{
		LastCrawledAt: crawledAt,
		CrawlResults: records.CrawlResultsMeta{
			StorageBucket:  bucket,
			StorageBaseKey: baseKey,
			TotalPages:     1,
		},
		MarkdownResults: markdownMeta,
	})

	summary := crawler.CrawlSummary{
		Domain:           domain,
		URL:              targetURL,
		TotalPages:       1,
		Title:            page.Title,
		StatusCode:       page.StatusCode,
		WordCount:        page.WordCount,
		HTMLObjectKey:    htmlKey,
		PresignedHTMLURL: presigned,
		CrawledAt:        crawledAt,
	}
	if markdownData != nil {
		summary.MarkdownWordCount = markdownData.WordCount
		summary.MarkdownObjectKey = markdownKey
	}
	o.logger.Info("crawl pipeline completed",
		zap.String("domain", domain),
		zap.String("url", targetURL),
		zap.Int("word_count", page.WordCount),
		zap.Bool("markdown", markdownData != nil))
	return summary, nil
}

// authorize confirms the target URL's host belongs to a domain registered to
// the requesting user.
func (o *Orchestrator) authorize(ctx context.Context, domain, rawURL, userID string) error {
	host, err := crawler.HostDomain(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", crawler.ErrInvalidInput, err)
	}
	if crawler.NormalizeDomain(host) != domain {
		return fmt.Errorf("%w: url host %q does not match domain %q", crawler.ErrUnauthorized, host, domain)
	}
	record, err := o.store.GetDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return fmt.Errorf("%w: %s", crawler.ErrDomainNotFound, domain)
		}
		return &crawler.PersistenceError{Op: "get domain", Err: err}
	}
	if userID != "" && record.UserID != userID {
		return fmt.Errorf("%w: domain %s is not registered to the caller", crawler.ErrUnauthorized, domain)
	}
	return nil
}

// convertAndStore converts the page to markdown and stores the artifact.
// Conversion never fails the pipeline; on error the crawl proceeds without a
// markdown artifact.
func (o *Orchestrator) convertAndStore(ctx context.Context, page crawler.PageResult, baseKey, bucket string, crawledAt time.Time) (*records.MarkdownData, *records.MarkdownResultsMeta, string) {
	if strings.TrimSpace(page.RawContent) == "" {
		return nil, nil, ""
	}
	doc, err := markdown.Convert(page.RawContent, o.mdOpts)
	if err != nil {
		o.metrics.ConversionCompleted("error")
		o.logger.Warn("markdown conversion failed, continuing without artifact",
			zap.String("url", page.URL),
			zap.Error(&crawler.ConversionError{Err: err}))
		return nil, nil, ""
	}

	markdownKey := baseKey + "/content.md"
	uri, err := o.blobs.Put(ctx, markdownKey, "text/markdown; charset=utf-8", []byte(doc.Text))
	if err != nil {
		o.metrics.ConversionCompleted("error")
		o.logger.Warn("failed to store markdown artifact, continuing",
			zap.String("key", markdownKey),
			zap.Error(err))
		return nil, nil, ""
	}
	o.metrics.ConversionCompleted("ok")

	data := &records.MarkdownData{
		ObjectURI:   uri,
		WordCount:   doc.WordCount,
		GeneratedAt: crawledAt,
	}
	meta := &records.MarkdownResultsMeta{
		StorageKey:  markdownKey,
		Bucket:      bucket,
		WordCount:   doc.WordCount,
		GeneratedAt: crawledAt,
	}
	return data, meta, markdownKey
}

// updateRegistry applies the best-effort secondary write to the domain
// registry. Failures are logged and never surfaced to the caller.
func (o *Orchestrator) updateRegistry(ctx context.Context, domain string, meta records.DomainCrawlMetadata) {
	if err := o.store.UpdateDomainMetadata(ctx, domain, meta); err != nil {
		o.logger.Warn("failed to update domain registry metadata",
			zap.String("domain", domain),
			zap.Error(err))
	}
}

// artifactBaseKey builds the timestamped object prefix for one crawl.
func artifactBaseKey(userID, domain string, at time.Time) string {
	timestamp := at.UTC().Format(time.RFC3339)
	timestamp = strings.ReplaceAll(timestamp, ":", "-")
	timestamp = strings.ReplaceAll(timestamp, ".", "-")
	if userID == "" {
		userID = "unknown"
	}
	return fmt.Sprintf("crawl-results/%s/%s/%s", userID, domain, timestamp)
}
