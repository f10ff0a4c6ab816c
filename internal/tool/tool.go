// Package tool declares the enrichment steps of the pipeline: each tool
// carries a typed output schema, prompt-level requirements the judge scores
// against, and a fallback shape for when retries run out. LLM-backed tools
// speak through the gateway; the media and pronunciation tools delegate to
// their services.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

// Inputs is the string-keyed argument map for one tool invocation. The
// executor seeds it from state and merges the supervisor's adjusted inputs
// into it across retries.
type Inputs map[string]any

// Well-known input keys. The executor writes KeyTier per attempt; the
// supervisor writes the feedback keys when planning a retry.
const (
	KeyWord           = "word"
	KeyTargetWord     = "target_word"
	KeySourceLanguage = "source_language"
	KeyTargetLanguage = "target_language"
	KeyPartOfSpeech   = "part_of_speech"
	KeyArticle        = "article"
	KeyDefinitions    = "definitions"
	KeyNotes          = "notes"
	KeyEnglishWord    = "english_word"
	KeySyllables      = "syllables"

	KeyTier            = "tier"
	KeyQualityFeedback = "quality_feedback"
	KeyPreviousIssues  = "previous_issues"
	KeySuggestions     = "suggestions"
)

// Merge copies adjusted values over the current inputs.
func (in Inputs) Merge(adj map[string]any) {
	for k, v := range adj {
		in[k] = v
	}
}

// TierOf reads the routing tier the executor injected. Defaults to the cheap
// executor tier.
func TierOf(in Inputs) llm.Tier {
	switch v := in[KeyTier].(type) {
	case llm.Tier:
		return v
	case string:
		if v != "" {
			return llm.Tier(v)
		}
	}
	return llm.TierExecutor
}

// Output is one tool invocation's result: the structured fields the executor
// merges into state, and the rendered user prompt the judge checks the result
// against. Prompt is empty for tools that made no LLM call.
type Output struct {
	Result map[string]any
	Prompt string
}

// Tool is a single enrichment step.
type Tool interface {
	Name() string
	Schema() llm.Schema
	Requirements() []string
	Run(ctx context.Context, in Inputs) (Output, error)
	Fallback(reason string) map[string]any
}

// Generator is the slice of the LLM gateway the tools use.
type Generator interface {
	Generate(ctx context.Context, call llm.Call, out any) error
}

// ExistenceChecker answers whether a base word already has an artifact for
// the language pair. A nil checker means no storage context; existence is
// then reported false.
type ExistenceChecker interface {
	CheckExists(ctx context.Context, src domain.Language, baseWord string, tgt domain.Language) (*domain.ExistingItem, error)
}

// MediaRequest is the media tool's call into its service.
type MediaRequest struct {
	Word           string
	EnglishWord    string
	SourceLanguage domain.Language
	TargetLanguage domain.Language
	Definitions    []string
	Notes          string
	Tier           llm.Tier
	Feedback       string
}

// MediaOutcome is the media service's reply. EnglishWord is the key the
// search-query phase derived; Prompt is that phase's prompt, judged when the
// image short-circuit does not apply.
type MediaOutcome struct {
	Media       domain.Media
	EnglishWord string
	SearchQuery []string
	Reused      bool
	Prompt      string
}

// MediaEnricher runs the two-phase media flow: search-term generation plus
// reuse lookup, then fetch, selection, and blob upload.
type MediaEnricher interface {
	Enrich(ctx context.Context, req MediaRequest) (MediaOutcome, error)
}

// AudioRequest is the pronunciation tool's call into the audio service.
type AudioRequest struct {
	Word      string
	Language  domain.Language
	Syllables []string
}

// AudioSynthesizer produces pronunciation audio artifacts.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, req AudioRequest) (domain.Pronunciations, error)
}

// Decode converts a tool result map into its typed form through a JSON
// round-trip.
func Decode[T any](result map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(result)
	if err != nil {
		return out, fmt.Errorf("encode tool result: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode tool result: %w", err)
	}
	return out, nil
}

// Encode converts a typed value into the map shape tool results use.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func str(in Inputs, key string) string {
	if v, ok := in[key].(string); ok {
		return v
	}
	return ""
}

func strs(in Inputs, key string) []string {
	switch v := in[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func language(in Inputs, key string) domain.Language {
	l, _ := domain.ParseLanguage(str(in, key))
	return l
}