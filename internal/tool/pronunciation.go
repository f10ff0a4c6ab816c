package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

var pronunciationSchema = llm.Schema{
	Name:        "generate_pronunciation",
	Description: "Pronunciation audio URLs for the target word.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pronunciations": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"audio":     map[string]any{"type": "string"},
					"syllables": map[string]any{"type": "string"},
				},
				"required": []string{"audio"},
			},
		},
		"required": []string{"pronunciations"},
	},
}

// PronunciationResult is the typed form of the pronunciation tool's output.
type PronunciationResult struct {
	Pronunciations domain.Pronunciations `json:"pronunciations"`
}

// Pronunciation synthesizes word audio, plus a syllable track when the word
// has more than one syllable. It is never quality-gated; failures surface as
// ERROR-prefixed URLs from the audio service.
type Pronunciation struct {
	svc AudioSynthesizer
}

func NewPronunciation(svc AudioSynthesizer) *Pronunciation {
	return &Pronunciation{svc: svc}
}

func (t *Pronunciation) Name() string { return domain.ToolPronunciation.String() }

func (t *Pronunciation) Schema() llm.Schema { return pronunciationSchema }

func (t *Pronunciation) Requirements() []string { return nil }

func (t *Pronunciation) Run(ctx context.Context, in Inputs) (Output, error) {
	req := AudioRequest{
		Word:      str(in, KeyTargetWord),
		Language:  language(in, KeyTargetLanguage),
		Syllables: strs(in, KeySyllables),
	}
	pron, err := t.svc.Synthesize(ctx, req)
	if err != nil {
		return Output{}, err
	}

	doc, err := Encode(pron)
	if err != nil {
		return Output{}, err
	}
	return Output{Result: map[string]any{"pronunciations": doc}}, nil
}

func (t *Pronunciation) Fallback(reason string) map[string]any {
	return map[string]any{
		"pronunciations": map[string]any{"audio": "ERROR: " + reason},
	}
}