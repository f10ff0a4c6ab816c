package tool

import (
	"context"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
)

// SearchQuerySchema is the schema of the media flow's first phase. The
// supervisor validates the search-query sub-result against it when the image
// short-circuit does not apply; the media service uses it for the phase-one
// LLM call.
var SearchQuerySchema = llm.Schema{
	Name:        "generate_search_query",
	Description: "English photo-search terms that depict the word's meaning.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"english_word": map[string]any{
				"type":        "string",
				"description": "Common English rendering of the word.",
			},
			"search_terms": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 3,
				"items": map[string]any{
					"type":        "string",
					"description": "One or two English words naming something photographable.",
				},
			},
		},
		"required": []string{"english_word", "search_terms"},
	},
}

var mediaRequirements = []string{
	"Search terms are one or two English words naming something a photo can show.",
	"Prefer the concrete everyday sense of the word over abstract ones.",
	"The chosen image must depict the meaning, not the written word.",
	"Alt text, explanation, and memory tip are written in the source language.",
}

// MediaResult is the typed form of the media tool's output.
type MediaResult struct {
	Media       domain.Media `json:"media"`
	EnglishWord string       `json:"english_word,omitempty"`
	SearchQuery []string     `json:"search_query"`
	MediaReused bool         `json:"media_reused"`
}

// Media finds a representative image: search terms from the LLM, reuse
// lookup by English key, then a fresh fetch with LLM selection and blob
// upload. The heavy lifting lives in the media service.
type Media struct {
	svc MediaEnricher
}

func NewMedia(svc MediaEnricher) *Media {
	return &Media{svc: svc}
}

func (t *Media) Name() string { return domain.ToolMedia.String() }

func (t *Media) Schema() llm.Schema { return SearchQuerySchema }

func (t *Media) Requirements() []string { return mediaRequirements }

func (t *Media) Run(ctx context.Context, in Inputs) (Output, error) {
	req := MediaRequest{
		Word:           str(in, KeyWord),
		EnglishWord:    str(in, KeyEnglishWord),
		SourceLanguage: language(in, KeySourceLanguage),
		TargetLanguage: language(in, KeyTargetLanguage),
		Definitions:    strs(in, KeyDefinitions),
		Notes:          str(in, KeyNotes),
		Tier:           TierOf(in),
		Feedback:       feedbackBlock(in),
	}
	out, err := t.svc.Enrich(ctx, req)
	if err != nil {
		return Output{}, err
	}

	mediaDoc, err := Encode(out.Media)
	if err != nil {
		return Output{}, err
	}
	res := map[string]any{
		"media":        mediaDoc,
		"english_word": out.EnglishWord,
		"search_query": out.SearchQuery,
		"media_reused": out.Reused,
	}
	return Output{Result: res, Prompt: out.Prompt}, nil
}

func (t *Media) Fallback(reason string) map[string]any {
	mediaDoc, err := Encode(domain.Media{Src: domain.MediaSources{}})
	if err != nil {
		mediaDoc = map[string]any{}
	}
	return map[string]any{
		"media":        mediaDoc,
		"search_query": []any{},
		"media_reused": false,
		"error":        reason,
	}
}