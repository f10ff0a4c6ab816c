package config

import (
	"fmt"
	"strings"
)

var llmProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"bedrock":   true,
}

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Queue.validate(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Quality.validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.TTS.validate(); err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	return nil
}

func (q *QueueConfig) validate() error {
	if q.ProcessingTimeoutSeconds <= 0 {
		return fmt.Errorf("processing_timeout_seconds must be > 0 (got %d)", q.ProcessingTimeoutSeconds)
	}
	// The visibility window must outlast the processing deadline, otherwise
	// a message still being processed becomes visible again.
	if q.VisibilityBufferSeconds <= 0 {
		return fmt.Errorf("visibility_buffer_seconds must be > 0 (got %d)", q.VisibilityBufferSeconds)
	}
	if q.BatchSize < 1 || q.BatchSize > 10 {
		return fmt.Errorf("batch_size must be in [1,10] (got %d)", q.BatchSize)
	}
	if q.WaitTimeSeconds < 0 || q.WaitTimeSeconds > 20 {
		return fmt.Errorf("wait_time_seconds must be in [0,20] (got %d)", q.WaitTimeSeconds)
	}
	return nil
}

func (q *QualityConfig) validate() error {
	if q.Threshold < 0 || q.Threshold > 10 {
		return fmt.Errorf("threshold must be in [0,10] (got %v)", q.Threshold)
	}
	if q.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", q.MaxRetries)
	}
	if q.AcceptOnFinal < 0 || q.AcceptOnFinal > q.Threshold {
		return fmt.Errorf("accept_on_final must be in [0, threshold] (got %v)", q.AcceptOnFinal)
	}
	q.SkipTools = ParseToolList(q.SkipToolsRaw)
	return nil
}

func (l *LLMConfig) validate() error {
	if !llmProviders[l.Provider] {
		return fmt.Errorf("unknown provider %q", l.Provider)
	}
	if l.Provider == "anthropic" && l.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	if l.Provider == "openai" && l.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0 (got %d)", l.MaxTokens)
	}
	if l.ExecutorModel == "" || l.SupervisorModel == "" {
		return fmt.Errorf("executor and supervisor models must be set")
	}
	return nil
}

func (t *TTSConfig) validate() error {
	if t.MinAudioBytes < 1 {
		return fmt.Errorf("min_audio_bytes must be >= 1 (got %d)", t.MinAudioBytes)
	}
	if t.MaxAudioBytes <= t.MinAudioBytes {
		return fmt.Errorf("max_audio_bytes must exceed min_audio_bytes (got %d <= %d)", t.MaxAudioBytes, t.MinAudioBytes)
	}
	return nil
}

// ParseToolList parses a comma-separated list of tool names (e.g.
// "pronunciation,media") into a slice. An empty string returns a nil slice.
func ParseToolList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	tools := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		tools = append(tools, p)
	}
	return tools
}
