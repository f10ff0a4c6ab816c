package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var syllablesSchema = llm.Schema{
	Name:        "break_into_syllables",
	Description: "Spoken syllables of the target word and a plain-letter phonetic guide.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"syllables": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
			"phonetic_guide": map[string]any{
				"type":        "string",
				"pattern":     "^[\\x20-\\x7E]+$",
				"description": "Readable ASCII approximation, like kon-STREW-ear. Never IPA.",
			},
		},
		"required": []string{"syllables", "phonetic_guide"},
	},
}

var syllablesRequirements = []string{
	"Split by spoken syllables, not by spelling rules; single-syllable words return one element.",
	"Concatenating the syllables reproduces the word's letters in order.",
	"The phonetic guide uses plain English letters and hyphens, stressed syllable in capitals.",
	"Never use IPA symbols or diacritics in the phonetic guide.",
}

// SyllablesResult is the typed form of the syllables tool's output.
type SyllablesResult struct {
	Syllables     []string `json:"syllables"`
	PhoneticGuide string   `json:"phonetic_guide"`
}

// Syllables splits the target word for pronunciation teaching. Its output
// also feeds the audio syllable track.
type Syllables struct {
	gw Generator
}

func NewSyllables(gw Generator) *Syllables {
	return &Syllables{gw: gw}
}

func (t *Syllables) Name() string { return domain.ToolSyllables.String() }

func (t *Syllables) Schema() llm.Schema { return syllablesSchema }

func (t *Syllables) Requirements() []string { return syllablesRequirements }

func (t *Syllables) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := syllablesPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: syllablesSchema,
		System: syllablesSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Syllables) Fallback(reason string) map[string]any {
	return map[string]any{
		"syllables":      []any{},
		"phonetic_guide": "",
		"error":          reason,
	}
}