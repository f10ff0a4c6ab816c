package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var synonymsSchema = llm.Schema{
	Name:        "find_synonyms",
	Description: "Synonyms of the target word with usage explanations.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"note": map[string]any{
				"type":        "string",
				"description": "Optional note when the word has few or no useful synonyms.",
			},
			"synonyms": map[string]any{
				"type":     "array",
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"synonym":     map[string]any{"type": "string"},
						"explanation": map[string]any{"type": "string"},
					},
					"required": []string{"synonym", "explanation"},
				},
			},
		},
		"required": []string{"synonyms"},
	},
}

var synonymsRequirements = []string{
	"Offer zero to three synonyms in the target language, common ones first.",
	"Each explanation states, in the source language, how the synonym differs in meaning, register, or typical context.",
	"Skip rare, archaic, or regional words unless nothing better exists.",
	"When the word has no useful synonym, return an empty list and say so in the note.",
}

// SynonymsResult is the typed form of the synonyms tool's output.
type SynonymsResult struct {
	Note     string           `json:"note,omitempty"`
	Synonyms []domain.Synonym `json:"synonyms"`
}

// Synonyms collects substitutable words with learner-facing explanations.
type Synonyms struct {
	gw Generator
}

func NewSynonyms(gw Generator) *Synonyms {
	return &Synonyms{gw: gw}
}

func (t *Synonyms) Name() string { return domain.ToolSynonyms.String() }

func (t *Synonyms) Schema() llm.Schema { return synonymsSchema }

func (t *Synonyms) Requirements() []string { return synonymsRequirements }

func (t *Synonyms) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := synonymsPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: synonymsSchema,
		System: synonymsSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Synonyms) Fallback(reason string) map[string]any {
	return map[string]any{
		"note":     "",
		"synonyms": []any{},
		"error":    reason,
	}
}