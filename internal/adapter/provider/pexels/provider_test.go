package pexels

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_Search_Success(t *testing.T) {
	t.Parallel()

	body := `{
		"total_results": 8000,
		"page": 1,
		"per_page": 10,
		"photos": [
			{
				"id": 3573351,
				"url": "https://www.pexels.com/photo/lighthouse-3573351/",
				"photographer": "Lukas Rodriguez",
				"alt": "White lighthouse near the sea",
				"src": {
					"original": "https://images.pexels.com/photos/3573351/original.jpg",
					"large2x": "https://images.pexels.com/photos/3573351/large2x.jpg",
					"large": "https://images.pexels.com/photos/3573351/large.jpg",
					"medium": "https://images.pexels.com/photos/3573351/medium.jpg",
					"small": "https://images.pexels.com/photos/3573351/small.jpg"
				}
			},
			{
				"id": 99,
				"url": "https://www.pexels.com/photo/tower-99/",
				"photographer": "Ana",
				"alt": "Old light tower",
				"src": {"large2x": "https://images.pexels.com/photos/99/large2x.jpg"}
			}
		]
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "lighthouse" {
			t.Errorf("query = %q", q.Get("query"))
		}
		if q.Get("per_page") != "10" {
			t.Errorf("per_page = %q", q.Get("per_page"))
		}
		if q.Get("orientation") != "landscape" {
			t.Errorf("orientation = %q", q.Get("orientation"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	photos, err := p.Search(context.Background(), "lighthouse", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("len(photos) = %d, want 2", len(photos))
	}

	ph := photos[0]
	if ph.ID != 3573351 {
		t.Errorf("ID = %d", ph.ID)
	}
	if ph.URL != "https://www.pexels.com/photo/lighthouse-3573351/" {
		t.Errorf("URL = %q", ph.URL)
	}
	if ph.Alt != "White lighthouse near the sea" {
		t.Errorf("Alt = %q", ph.Alt)
	}
	if ph.Src.Large2x != "https://images.pexels.com/photos/3573351/large2x.jpg" {
		t.Errorf("Src.Large2x = %q", ph.Src.Large2x)
	}
	if ph.Src.Small != "https://images.pexels.com/photos/3573351/small.jpg" {
		t.Errorf("Src.Small = %q", ph.Src.Small)
	}

	// Partial src blocks decode with the missing sizes empty.
	if photos[1].Src.Small != "" {
		t.Errorf("photos[1].Src.Small = %q, want empty", photos[1].Src.Small)
	}
}

func TestProvider_Search_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"total_results": 0, "page": 1, "per_page": 10, "photos": []}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	photos, err := p.Search(context.Background(), "qzxvbnm", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("len(photos) = %d, want 0", len(photos))
	}
}

func TestProvider_Search_ServerErrorRetrySuccess(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"photos": [{"id": 1, "alt": "ok", "src": {"large2x": "https://images.pexels.com/1/large2x.jpg"}}]}`))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	photos, err := p.Search(context.Background(), "retry", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 1 {
		t.Fatalf("len(photos) = %d, want 1 after retry", len(photos))
	}
	if got := callCount.Load(); got != 2 {
		t.Errorf("call count = %d, want 2", got)
	}
}

func TestProvider_Search_RateLimited(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	_, err := p.Search(context.Background(), "busy", 10)
	if err == nil {
		t.Fatal("expected error for 429")
	}
	// 4xx is not retried.
	if got := callCount.Load(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}
}

func TestProvider_Search_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`not valid json`))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	_, err := p.Search(context.Background(), "bad", 10)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestProvider_Download(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	body, contentType, err := p.Download(context.Background(), srv.URL+"/photos/1/large2x.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	if contentType != "image/jpeg" {
		t.Errorf("contentType = %q", contentType)
	}
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(got) != "jpeg-bytes" {
		t.Errorf("body = %q", got)
	}
}

func TestProvider_Download_DefaultContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Type header set by the handler.
		w.Header()["Content-Type"] = nil
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("raw"))
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	body, contentType, err := p.Download(context.Background(), srv.URL+"/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body.Close()

	if contentType != "image/jpeg" {
		t.Errorf("contentType = %q, want the jpeg default", contentType)
	}
}

func TestProvider_Download_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProviderWithURL("test-key", srv.URL, newTestLogger())
	_, _, err := p.Download(context.Background(), srv.URL+"/gone.jpg")
	if err == nil {
		t.Fatal("expected error for missing rendition")
	}
}
