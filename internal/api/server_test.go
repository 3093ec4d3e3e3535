package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/config"
	"github.com/neuralnyx/domaincrawler/internal/crawler"
	"github.com/neuralnyx/domaincrawler/internal/records"
	recordsmemory "github.com/neuralnyx/domaincrawler/internal/records/memory"
)

type fakePipeline struct {
	summary crawler.CrawlSummary
	err     error
	last    crawler.CrawlRequest
}

func (p *fakePipeline) Run(_ context.Context, request crawler.CrawlRequest) (crawler.CrawlSummary, error) {
	p.last = request
	if p.err != nil {
		return crawler.CrawlSummary{}, p.err
	}
	return p.summary, nil
}

func newTestServer(pipeline *fakePipeline, store records.Store) *Server {
	if store == nil {
		store = recordsmemory.NewStore()
	}
	cfg := config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	return NewServer(pipeline, store, cfg, zap.NewNop())
}

func TestServer_SubmitCrawl_Succeeds(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{
		summary: crawler.CrawlSummary{
			Domain:     "acme.io",
			URL:        "https://acme.io",
			TotalPages: 1,
			Title:      "Acme",
			CrawledAt:  time.Unix(100, 0).UTC(),
		},
	}
	server := newTestServer(pipeline, nil)

	body := []byte(`{"domain":"acme.io","user_id":"user-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "acme.io")
	require.Equal(t, "acme.io", pipeline.last.Domain)
	require.Equal(t, "user-1", pipeline.last.UserID)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_SubmitCrawl_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SubmitCrawl_DerivesDomainFromURL(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{summary: crawler.CrawlSummary{Domain: "acme.io"}}
	server := newTestServer(pipeline, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewBufferString(`{"url":"https://acme.io/pricing","user_id":"user-1"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "acme.io", pipeline.last.Domain)
	require.Equal(t, "https://acme.io/pricing", pipeline.last.URL)
}

func TestServer_SubmitCrawl_MissingDomainAndURL(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewBufferString(`{"user_id":"user-1"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload["message"], "domain or url")
}

func TestServer_SubmitCrawl_UnparsableURL(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewBufferString(`{"url":"ftp://acme.io"}`))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SubmitCrawl_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: bad domain", crawler.ErrInvalidInput), http.StatusBadRequest},
		{"unauthorized", fmt.Errorf("%w: not your domain", crawler.ErrUnauthorized), http.StatusForbidden},
		{"not found", fmt.Errorf("%w: acme.io", crawler.ErrDomainNotFound), http.StatusNotFound},
		{"crawl failure", &crawler.CrawlError{URL: "https://acme.io", Err: errors.New("timeout")}, http.StatusInternalServerError},
		{"persistence failure", &crawler.PersistenceError{Op: "store html", Err: errors.New("denied")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(&fakePipeline{err: tc.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewBufferString(`{"domain":"acme.io"}`))
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)

			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestServer_GetContent(t *testing.T) {
	t.Parallel()

	store := recordsmemory.NewStore()
	require.NoError(t, store.UpsertContent(context.Background(), records.ContentRecord{
		Domain: "acme.io",
		URL:    "https://acme.io",
		Crawl:  &records.CrawlData{Title: "Acme", StatusCode: 200},
	}))
	server := newTestServer(&fakePipeline{}, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/domains/acme.io/content", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var record records.ContentRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, "acme.io", record.Domain)
	require.Equal(t, "Acme", record.Crawl.Title)
}

func TestServer_GetContent_NotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/domains/acme.io/content", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetContent_InvalidDomain(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/domains/not%20a%20domain/content", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKey: "sekret"},
	}
	server := NewServer(&fakePipeline{}, recordsmemory.NewStore(), cfg, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "sekret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
