package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

// NotAVerb is the sentinel the conjugation tool returns for non-verbs. The
// supervisor scores it a perfect 10 without consulting the judge.
const NotAVerb = "not a verb"

var conjugationSchema = llm.Schema{
	Name:        "conjugate_verb",
	Description: "Conjugation table of the target verb across its key tenses.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"infinitive": map[string]any{"type": "string"},
			"tenses": map[string]any{
				"type":        "object",
				"description": "Tense name to pronoun/form pairs, in the target language's naming.",
				"additionalProperties": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"pronoun": map[string]any{"type": "string"},
							"form":    map[string]any{"type": "string"},
						},
						"required": []string{"pronoun", "form"},
					},
				},
			},
		},
		"required": []string{"infinitive", "tenses"},
	},
}

var conjugationRequirements = []string{
	"Cover present, simple past, and future; name the tenses as the target language does (presente, Präsens, present simple).",
	"List every grammatical person of the tense with its pronoun, in the usual textbook order.",
	"Spell irregular forms exactly, including stem changes and umlauts.",
	"German verbs include the auxiliary in compound future forms.",
}

// ConjugationResult is the typed form of the conjugation tool's output.
type ConjugationResult struct {
	Infinitive string                             `json:"infinitive"`
	Tenses     map[string][]domain.ConjugatedForm `json:"tenses"`
	Sentinel   string                             `json:"conjugation,omitempty"`
}

// IsSentinel reports whether the result is the non-verb sentinel rather than
// a table.
func (r ConjugationResult) IsSentinel() bool { return r.Sentinel == NotAVerb }

// Conjugation produces the verb table. Non-verbs short-circuit to the
// sentinel without an LLM call; the branch only runs for verbs, so the
// sentinel guards against misrouted parts of speech.
type Conjugation struct {
	gw Generator
}

func NewConjugation(gw Generator) *Conjugation {
	return &Conjugation{gw: gw}
}

func (t *Conjugation) Name() string { return domain.ToolConjugation.String() }

func (t *Conjugation) Schema() llm.Schema { return conjugationSchema }

func (t *Conjugation) Requirements() []string { return conjugationRequirements }

func (t *Conjugation) Run(ctx context.Context, in Inputs) (Output, error) {
	pos, ok := domain.ParsePartOfSpeech(str(in, KeyPartOfSpeech))
	if !ok || !pos.IsConjugatable() {
		return Output{Result: map[string]any{"conjugation": NotAVerb}}, nil
	}

	prompt := conjugationPrompt(in, t.Requirements())
	res := map[string]any{}
	call := llm.Call{
		Schema: conjugationSchema,
		System: conjugationSystem,
		User:   prompt,
		Tier:   TierOf(in),
	}
	if err := t.gw.Generate(ctx, call, &res); err != nil {
		return Output{}, err
	}
	return Output{Result: res, Prompt: prompt}, nil
}

func (t *Conjugation) Fallback(reason string) map[string]any {
	return map[string]any{
		"infinitive": "",
		"tenses":     map[string]any{},
		"error":      reason,
	}
}