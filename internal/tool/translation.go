package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var translationSchema = llm.Schema{
	Name:        "translate_word",
	Description: "Dictionary translation of the word into the target language.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_word": map[string]any{
				"type":        "string",
				"description": "Base dictionary form of the translation, without article.",
			},
			"target_part_of_speech": map[string]any{
				"type": "string",
				"enum": partsOfSpeech,
			},
			"target_article": map[string]any{
				"type":        "string",
				"description": "Definite article for gendered nouns, empty otherwise.",
			},
			"target_additional_info": map[string]any{
				"type": "string",
			},
			"target_plural_form": map[string]any{
				"type": "string",
			},
			"english_word": map[string]any{
				"type":        "string",
				"description": "English rendering of the word, used as the media index key.",
			},
		},
		"required": []string{"target_word", "target_part_of_speech", "english_word"},
	},
}

var translationRequirements = []string{
	"Translate the base dictionary form, picking the most common everyday equivalent.",
	"Keep the part of speech consistent with the source word; use gendered noun labels in Spanish and German.",
	"For gendered nouns, set the definite article (el/la, der/die/das); English nouns carry none.",
	"Give the plural form for nouns when it is irregular or worth learning.",
	"Always fill english_word with the common English rendering, even when neither language is English.",
}

// TranslationResult is the typed form of the translation tool's output.
type TranslationResult struct {
	TargetWord     string `json:"target_word"`
	PartOfSpeech   string `json:"target_part_of_speech"`
	Article        string `json:"target_article,omitempty"`
	AdditionalInfo string `json:"target_additional_info,omitempty"`
	PluralForm     string `json:"target_plural_form,omitempty"`
	EnglishWord    string `json:"english_word"`
}

// Translation renders the classified base word into the target language and
// derives the English media-index key.
type Translation struct {
	gw Generator
}

func NewTranslation(gw Generator) *Translation {
	return &Translation{gw: gw}
}

func (t *Translation) Name() string { return domain.ToolTranslation.String() }

func (t *Translation) Schema() llm.Schema { return translationSchema }

func (t *Translation) Requirements() []string { return translationRequirements }

func (t *Translation) Run(ctx context.Context, in Inputs) (Output, error) {
	prompt := translationPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: translationSchema,
		System: translationSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Translation) Fallback(reason string) map[string]any {
	return map[string]any{
		"target_word":           "",
		"target_part_of_speech": "",
		"english_word":          "",
		"error":                 reason,
	}
}