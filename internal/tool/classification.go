package tool

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var classificationSchema = llm.Schema{
	Name:        "classify_word",
	Description: "Base dictionary form, definitions, and part of speech of the word.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source_word": map[string]any{
				"type":        "string",
				"description": "The base dictionary form, lowercased, without articles or particles.",
			},
			"source_definition": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 3,
				"items":    map[string]any{"type": "string"},
			},
			"source_part_of_speech": map[string]any{
				"type": "string",
				"enum": partsOfSpeech,
			},
			"source_article": map[string]any{
				"type":        "string",
				"description": "Definite article for gendered nouns, empty otherwise.",
			},
			"source_additional_info": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"source_word", "source_definition", "source_part_of_speech"},
	},
}

var classificationRequirements = []string{
	"Reduce the word to its base dictionary form: strip articles, infinitive particles, and inflection (\"to build\" becomes \"build\", \"das Haus\" becomes \"haus\").",
	"Write one to three short definitions in the word's own language.",
	"Pick exactly one part of speech from the allowed labels; gendered nouns use their gendered label.",
	"For gendered nouns, set the definite article of the source language.",
	"Mention irregular or notable grammar in the additional info field, or leave it empty.",
}

// ClassificationResult is the typed form of the classification tool's output.
// WordExists and ExistingItem come from the storage check, not the model.
type ClassificationResult struct {
	SourceWord     string               `json:"source_word"`
	Definitions    []string             `json:"source_definition"`
	PartOfSpeech   string               `json:"source_part_of_speech"`
	Article        string               `json:"source_article,omitempty"`
	AdditionalInfo string               `json:"source_additional_info,omitempty"`
	WordExists     bool                 `json:"word_exists"`
	ExistingItem   *domain.ExistingItem `json:"existing_item,omitempty"`
}

// Classification reduces the word to its base form, defines and classifies
// it, then checks storage for an existing artifact of the base form.
type Classification struct {
	log     *slog.Logger
	gw      Generator
	checker ExistenceChecker
}

// NewClassification builds the tool. checker may be nil when no storage
// context exists; the word then never reads as existing.
func NewClassification(log *slog.Logger, gw Generator, checker ExistenceChecker) *Classification {
	return &Classification{log: log.With("tool", domain.ToolClassification.String()), gw: gw, checker: checker}
}

func (t *Classification) Name() string { return domain.ToolClassification.String() }

func (t *Classification) Schema() llm.Schema { return classificationSchema }

func (t *Classification) Requirements() []string { return classificationRequirements }

func (t *Classification) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := classificationPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: classificationSchema,
		System: classificationSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}

	base, _ := res["source_word"].(string)
	item := t.checkExists(ctx, in, base)
	res["word_exists"] = item != nil
	if item != nil {
		res["existing_item"] = item
	}
	return Output{Result: res, Prompt: prompt}, nil
}

// checkExists looks the base form up in storage. Lookup failures degrade to
// "not found" so a dedup outage cannot fail the enrichment.
func (t *Classification) checkExists(ctx context.Context, in Inputs, base string) *domain.ExistingItem {
	if t.checker == nil || base == "" {
		return nil
	}
	src := language(in, KeySourceLanguage)
	tgt := language(in, KeyTargetLanguage)
	item, err := t.checker.CheckExists(ctx, src, base, tgt)
	if err != nil {
		t.log.WarnContext(ctx, "existence check failed, continuing as new word",
			slog.String("word", base), slog.Any("error", err))
		return nil
	}
	return item
}

func (t *Classification) Fallback(reason string) map[string]any {
	return map[string]any{
		"source_word":           "",
		"source_definition":     []any{},
		"source_part_of_speech": "",
		"word_exists":           false,
		"error":                 reason,
	}
}