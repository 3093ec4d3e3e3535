package memory

import (
	"context"
	"testing"
	"time"
)

func TestBlobStorePutAndGet(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	uri, err := s.Put(context.Background(), "crawl-results/u1/example.com/ts/content.html", "text/html", []byte("<html>"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if uri != "memory://crawl-results/u1/example.com/ts/content.html" {
		t.Fatalf("unexpected uri: %s", uri)
	}

	data, ok := s.Get("crawl-results/u1/example.com/ts/content.html")
	if !ok || string(data) != "<html>" {
		t.Fatalf("expected stored content, got %q ok=%v", data, ok)
	}
	if ct := s.ContentType("crawl-results/u1/example.com/ts/content.html"); ct != "text/html" {
		t.Fatalf("unexpected content type: %s", ct)
	}
}

func TestBlobStorePutRequiresKey(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	if _, err := s.Put(context.Background(), "", "text/html", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestBlobStoreSignedURL(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	if _, err := s.SignedURL("missing", time.Hour); err == nil {
		t.Fatal("expected error for missing object")
	}

	_, err := s.Put(context.Background(), "k", "text/plain", []byte("x"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	url, err := s.SignedURL("k", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	if url != "memory://k?ttl=3600" {
		t.Fatalf("unexpected url: %s", url)
	}
}
