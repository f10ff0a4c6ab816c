package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"

	voiceStability  = 0.9
	voiceSimilarity = 0.9
	voiceStyle      = 0.9
)

// Provider synthesizes speech through the ElevenLabs streaming endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider against the public ElevenLabs API.
func NewProvider(apiKey, voiceID, modelID string, logger *slog.Logger) *Provider {
	return NewProviderWithURL(apiKey, defaultBaseURL, voiceID, modelID, logger)
}

// NewProviderWithURL creates a Provider with a custom base URL (for testing).
func NewProviderWithURL(apiKey, baseURL, voiceID, modelID string, logger *slog.Logger) *Provider {
	return &Provider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		voiceID:    voiceID,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger.With("adapter", "elevenlabs"),
	}
}

// Synthesize streams speech for text at the given speaking speed. The caller
// owns the returned audio stream. A failed attempt surfaces immediately;
// retrying is the caller's policy.
func (p *Provider) Synthesize(ctx context.Context, text string, speed float64) (io.ReadCloser, error) {
	payload, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: p.modelID,
		VoiceSettings: voiceSettings{
			Stability:       voiceStability,
			SimilarityBoost: voiceSimilarity,
			Style:           voiceStyle,
			Speed:           speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", p.baseURL, url.PathEscape(p.voiceID))

	p.log.DebugContext(ctx, "elevenlabs request",
		slog.Float64("speed", speed),
		slog.Int("text_len", len(text)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return resp.Body, nil
}
