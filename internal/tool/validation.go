package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var validationSchema = llm.Schema{
	Name:        "validate_word",
	Description: "Verdict on whether the submitted word is a real word in a supported language.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_valid": map[string]any{
				"type":        "boolean",
				"description": "True when the word exists in English, Spanish, or German.",
			},
			"source_language": map[string]any{
				"type": "string",
				"enum": []string{"en", "es", "de"},
			},
			"issue_message": map[string]any{
				"type":        "string",
				"description": "Learner-facing explanation when the word is rejected.",
			},
			"issue_suggestions": map[string]any{
				"type":     "array",
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"word":     map[string]any{"type": "string"},
						"language": map[string]any{"type": "string"},
					},
					"required": []string{"word", "language"},
				},
			},
		},
		"required": []string{"is_valid", "source_language"},
	},
}

var validationRequirements = []string{
	"Accept only words that exist in English, Spanish, or German; proper nouns and obvious keyboard noise are invalid.",
	"Report the word's actual language, even when it differs from what the learner believes.",
	"Accept inflected and conjugated forms of real words.",
	"When the word is invalid, explain why in one sentence and suggest up to three real words the learner might have meant.",
	"Suggestions must each name the word and its language code.",
}

// ValidationResult is the typed form of the validation tool's output.
type ValidationResult struct {
	IsValid          bool             `json:"is_valid"`
	SourceLanguage   string           `json:"source_language"`
	IssueMessage     string           `json:"issue_message,omitempty"`
	IssueSuggestions []WordSuggestion `json:"issue_suggestions,omitempty"`
}

// WordSuggestion is one alternative offered for a rejected word.
type WordSuggestion struct {
	Word     string `json:"word"`
	Language string `json:"language"`
}

// Validation checks that the submitted word is real and detects its language.
// Rejection is terminal for the request.
type Validation struct {
	gw Generator
}

func NewValidation(gw Generator) *Validation {
	return &Validation{gw: gw}
}

func (t *Validation) Name() string { return domain.ToolValidation.String() }

func (t *Validation) Schema() llm.Schema { return validationSchema }

func (t *Validation) Requirements() []string { return validationRequirements }

func (t *Validation) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := validationPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: validationSchema,
		System: validationSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Validation) Fallback(reason string) map[string]any {
	return map[string]any{
		"is_valid":          false,
		"source_language":   "",
		"issue_message":     "word validation unavailable: " + reason,
		"issue_suggestions": []any{},
	}
}