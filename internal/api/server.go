// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/config"
	"github.com/neuralnyx/domaincrawler/internal/crawler"
	"github.com/neuralnyx/domaincrawler/internal/metrics"
	"github.com/neuralnyx/domaincrawler/internal/records"
	"github.com/neuralnyx/domaincrawler/internal/worker"
)

// Server wires HTTP handlers to the crawl pipeline and record store.
type Server struct {
	router   chi.Router
	pipeline worker.Pipeline
	store    records.Store
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(pipeline worker.Pipeline, store records.Store, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(90 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.submitCrawl)
		r.Get("/domains/{domain}/content", s.getContent)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// crawlRequest is the POST /v1/crawl body. IncludeLighthouse is accepted for
// caller compatibility; audit runs are a separate service and the flag is
// ignored here.
type crawlRequest struct {
	Domain            string `json:"domain"`
	URL               string `json:"url"`
	UserID            string `json:"user_id"`
	MaxPages          int    `json:"max_pages"`
	IncludeLighthouse bool   `json:"include_lighthouse"`
}

func (s *Server) submitCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Domain == "" && req.URL != "" {
		host, err := crawler.HostDomain(req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid url")
			return
		}
		req.Domain = host
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain or url is required")
		return
	}

	summary, err := s.pipeline.Run(r.Context(), crawler.CrawlRequest{
		Domain:   req.Domain,
		URL:      req.URL,
		UserID:   req.UserID,
		MaxPages: req.MaxPages,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	domain := crawler.NormalizeDomain(chi.URLParam(r, "domain"))
	if !crawler.ValidDomain(domain) {
		writeError(w, http.StatusBadRequest, "invalid domain")
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		url = "https://" + domain
	}

	record, err := s.store.GetContent(r.Context(), domain, url)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, "content not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// statusForError maps pipeline failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, crawler.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, crawler.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, crawler.ErrDomainNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != apiKey {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
