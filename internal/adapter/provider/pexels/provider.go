package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.pexels.com"

// Photo is one search result with its page URL and CDN renditions.
type Photo struct {
	ID           int
	URL          string
	Photographer string
	Alt          string
	Src          PhotoSources
}

// PhotoSources holds the CDN URL for each size, largest first.
type PhotoSources struct {
	Original string
	Large2x  string
	Large    string
	Medium   string
	Small    string
}

// Provider searches stock photos on the Pexels API and downloads the chosen
// renditions from its CDN.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider against the public Pexels API.
func NewProvider(apiKey string, logger *slog.Logger) *Provider {
	return NewProviderWithURL(apiKey, defaultBaseURL, logger)
}

// NewProviderWithURL creates a Provider with a custom base URL (for testing).
func NewProviderWithURL(apiKey, baseURL string, logger *slog.Logger) *Provider {
	return &Provider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.With("adapter", "pexels"),
	}
}

// Search returns up to perPage landscape photos for the query. An empty slice
// means the catalog has nothing for it.
func (p *Provider) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orientation", "landscape")
	reqURL := p.baseURL + "/v1/search?" + q.Encode()

	p.log.DebugContext(ctx, "pexels request", slog.String("query", query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pexels: create request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.doWithRetry(ctx, req, query)
	if err != nil {
		p.log.ErrorContext(ctx, "pexels request failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, fmt.Errorf("pexels: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pexels: read body: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("pexels: decode json: %w", err)
	}

	photos := make([]Photo, 0, len(parsed.Photos))
	for _, ph := range parsed.Photos {
		photos = append(photos, Photo{
			ID:           ph.ID,
			URL:          ph.URL,
			Photographer: ph.Photographer,
			Alt:          ph.Alt,
			Src: PhotoSources{
				Original: ph.Src.Original,
				Large2x:  ph.Src.Large2x,
				Large:    ph.Src.Large,
				Medium:   ph.Src.Medium,
				Small:    ph.Src.Small,
			},
		})
	}

	p.log.DebugContext(ctx, "pexels response",
		slog.String("query", query),
		slog.Int("status", resp.StatusCode),
		slog.Int("photos", len(photos)),
	)

	return photos, nil
}

// Download opens a CDN rendition for streaming. The caller owns the returned
// body; contentType falls back to image/jpeg when the CDN omits it.
func (p *Provider) Download(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("pexels: create request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, req, rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("pexels: download failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("pexels: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body, contentType, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *Provider) doWithRetry(ctx context.Context, req *http.Request, subject string) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	// Don't retry if context is already cancelled.
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	p.log.WarnContext(ctx, "pexels retry", slog.String("subject", subject), slog.String("reason", reason))

	// Close body from the failed attempt before retrying.
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	resp, err = p.httpClient.Do(req)
	return resp, err
}
