package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var examplesSchema = llm.Schema{
	Name:        "generate_examples",
	Description: "Example sentences using the target word, with translations.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"examples": map[string]any{
				"type":     "array",
				"minItems": 2,
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"original": map[string]any{
							"type":      "string",
							"minLength": 20,
						},
						"translation": map[string]any{
							"type":      "string",
							"minLength": 20,
						},
						"context": map[string]any{
							"type":        "string",
							"description": "Optional usage note: register, setting, collocation.",
						},
					},
					"required": []string{"original", "translation"},
				},
			},
		},
		"required": []string{"examples"},
	},
}

var examplesRequirements = []string{
	"Write two or three full sentences in the target language, each at least twenty characters.",
	"Each sentence uses the word naturally, in a different everyday situation.",
	"Translate every sentence into the source language, preserving meaning over literal wording.",
	"Add a short context note when the usage is informal, formal, or idiomatic.",
}

// ExamplesResult is the typed form of the examples tool's output.
type ExamplesResult struct {
	Examples []domain.Example `json:"examples"`
}

// Examples writes usage sentences for the target word with translations.
type Examples struct {
	gw Generator
}

func NewExamples(gw Generator) *Examples {
	return &Examples{gw: gw}
}

func (t *Examples) Name() string { return domain.ToolExamples.String() }

func (t *Examples) Schema() llm.Schema { return examplesSchema }

func (t *Examples) Requirements() []string { return examplesRequirements }

func (t *Examples) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := examplesPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: examplesSchema,
		System: examplesSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Examples) Fallback(reason string) map[string]any {
	return map[string]any{
		"examples": []any{},
		"error":    reason,
	}
}