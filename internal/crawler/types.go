// Package crawler defines core types shared across subsystems.
package crawler

import "time"

// PageForm describes one form found on the crawled page.
type PageForm struct {
	Action string `json:"action"`
	Method string `json:"method"`
}

// PageButton describes one button found on the crawled page.
type PageButton struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PageInput describes one input element found on the crawled page.
type PageInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
}

// PageResult is produced once per crawl attempt and never mutated afterwards.
type PageResult struct {
	URL        string       `json:"url"`
	Title      string       `json:"title"`
	RawContent string       `json:"raw_content"`
	StatusCode int          `json:"status_code"`
	LoadTimeMs int64        `json:"load_time_ms"`
	WordCount  int          `json:"word_count"`
	Links      []string     `json:"links"`
	Images     []string     `json:"images"`
	Forms      []PageForm   `json:"forms"`
	Buttons    []PageButton `json:"buttons"`
	Inputs     []PageInput  `json:"inputs"`
}

// CrawlRequest captures everything needed to run one pipeline execution.
type CrawlRequest struct {
	Domain   string
	URL      string
	UserID   string
	MaxPages int
}

// CrawlSummary is returned to the caller after a pipeline run.
type CrawlSummary struct {
	Domain            string    `json:"domain"`
	URL               string    `json:"url"`
	TotalPages        int       `json:"total_pages"`
	Title             string    `json:"title,omitempty"`
	StatusCode        int       `json:"status_code,omitempty"`
	WordCount         int       `json:"word_count,omitempty"`
	MarkdownWordCount int       `json:"markdown_word_count,omitempty"`
	HTMLObjectKey     string    `json:"html_object_key,omitempty"`
	MarkdownObjectKey string    `json:"markdown_object_key,omitempty"`
	PresignedHTMLURL  string    `json:"presigned_html_url,omitempty"`
	CrawledAt         time.Time `json:"crawled_at"`
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces event and request IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
