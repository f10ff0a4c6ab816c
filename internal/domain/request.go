package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EnrichmentRequest is one queue record asking for a word to be enriched.
// SourceLanguage may be empty; the validation tool detects it.
type EnrichmentRequest struct {
	Word           string   `json:"source_word"`
	TargetLanguage Language `json:"target_language"`
	SourceLanguage Language `json:"source_language,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
	RequestID      string   `json:"request_id,omitempty"`
}

// ParseRequest decodes and checks a raw queue record body. All failures wrap
// ErrInvalidInput so callers can report the record rejected without retrying.
func ParseRequest(body []byte) (EnrichmentRequest, error) {
	var req EnrichmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return EnrichmentRequest{}, fmt.Errorf("%w: malformed request body: %v", ErrInvalidInput, err)
	}
	req.Word = strings.TrimSpace(req.Word)
	if req.Word == "" {
		return EnrichmentRequest{}, fmt.Errorf("%w: source_word must not be empty", ErrInvalidInput)
	}
	if !req.TargetLanguage.IsValid() {
		return EnrichmentRequest{}, fmt.Errorf("%w: unknown target_language %q", ErrInvalidInput, string(req.TargetLanguage))
	}
	if req.SourceLanguage != "" && !req.SourceLanguage.IsValid() {
		return EnrichmentRequest{}, fmt.Errorf("%w: unknown source_language %q", ErrInvalidInput, string(req.SourceLanguage))
	}
	return req, nil
}
