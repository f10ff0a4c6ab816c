package engine

import (
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

// buildInputs assembles a tool's inputs from the state it is allowed to
// read. Parallel branches call this on a private copy taken before launch,
// so no input ever depends on a sibling branch's output.
func buildInputs(name domain.ToolName, s *domain.State) tool.Inputs {
	in := tool.Inputs{
		tool.KeySourceLanguage: string(s.SourceLanguage),
		tool.KeyTargetLanguage: string(s.TargetLanguage),
	}
	switch name {
	case domain.ToolValidation, domain.ToolClassification:
		in[tool.KeyWord] = s.Word
	case domain.ToolTranslation:
		in[tool.KeyWord] = s.Word
		in[tool.KeyPartOfSpeech] = string(s.SourcePOS)
		in[tool.KeyDefinitions] = s.Definitions
	case domain.ToolSynonyms, domain.ToolConjugation:
		in[tool.KeyTargetWord] = s.TargetWord
		in[tool.KeyPartOfSpeech] = string(s.TargetPOS)
	case domain.ToolExamples, domain.ToolSyllables:
		in[tool.KeyTargetWord] = s.TargetWord
	case domain.ToolMedia:
		in[tool.KeyWord] = s.Word
		in[tool.KeyEnglishWord] = s.EnglishWord
		in[tool.KeyDefinitions] = s.Definitions
		in[tool.KeyNotes] = s.SourceInfo
	case domain.ToolPronunciation:
		in[tool.KeyTargetWord] = s.TargetWord
		in[tool.KeySyllables] = s.Syllables
	}
	return in
}

// resultDelta maps a tool result document onto the state fields the tool
// owns. Fallback documents pass through here too, so zero-valued fields
// stay nil rather than erasing earlier writes. The media english_word is
// deliberately not mapped: the persisted attribute belongs to translation.
func resultDelta(name domain.ToolName, result map[string]any) (domain.Delta, error) {
	switch name {
	case domain.ToolValidation:
		res, err := tool.Decode[tool.ValidationResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		d := domain.Delta{Validated: &res.IsValid}
		if lang, ok := domain.ParseLanguage(res.SourceLanguage); ok {
			d.SourceLanguage = &lang
		}
		if !res.IsValid {
			d.IssueMessage = &res.IssueMessage
			words := make([]string, 0, len(res.IssueSuggestions))
			for _, sug := range res.IssueSuggestions {
				words = append(words, sug.Word)
			}
			d.IssueSuggestions = words
		}
		return d, nil

	case domain.ToolClassification:
		res, err := tool.Decode[tool.ClassificationResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		d := domain.Delta{}
		if res.SourceWord != "" {
			d.Word = &res.SourceWord
		}
		if len(res.Definitions) > 0 {
			d.Definitions = res.Definitions
		}
		if pos, ok := domain.ParsePartOfSpeech(res.PartOfSpeech); ok {
			d.SourcePOS = &pos
		}
		if res.Article != "" {
			d.SourceArticle = &res.Article
		}
		if res.AdditionalInfo != "" {
			d.SourceInfo = &res.AdditionalInfo
		}
		if res.WordExists && res.ExistingItem != nil {
			d.ExistingItems = []domain.ExistingItem{*res.ExistingItem}
		}
		return d, nil

	case domain.ToolTranslation:
		res, err := tool.Decode[tool.TranslationResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		d := domain.Delta{}
		if res.TargetWord != "" {
			d.TargetWord = &res.TargetWord
		}
		if pos, ok := domain.ParsePartOfSpeech(res.PartOfSpeech); ok {
			d.TargetPOS = &pos
		}
		if res.Article != "" {
			d.TargetArticle = &res.Article
		}
		if res.AdditionalInfo != "" {
			d.TargetInfo = &res.AdditionalInfo
		}
		if res.PluralForm != "" {
			d.TargetPluralForm = &res.PluralForm
		}
		if res.EnglishWord != "" {
			d.EnglishWord = &res.EnglishWord
		}
		return d, nil

	case domain.ToolSynonyms:
		res, err := tool.Decode[tool.SynonymsResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		return domain.Delta{Synonyms: res.Synonyms}, nil

	case domain.ToolExamples:
		res, err := tool.Decode[tool.ExamplesResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		return domain.Delta{Examples: res.Examples}, nil

	case domain.ToolSyllables:
		res, err := tool.Decode[tool.SyllablesResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		d := domain.Delta{}
		if len(res.Syllables) > 0 {
			d.Syllables = res.Syllables
		}
		if res.PhoneticGuide != "" {
			d.PhoneticGuide = &res.PhoneticGuide
		}
		return d, nil

	case domain.ToolConjugation:
		res, err := tool.Decode[tool.ConjugationResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		if res.IsSentinel() || (res.Infinitive == "" && len(res.Tenses) == 0) {
			return domain.Delta{}, nil
		}
		return domain.Delta{Conjugation: &domain.Conjugation{
			Infinitive: res.Infinitive,
			Tenses:     res.Tenses,
		}}, nil

	case domain.ToolMedia:
		res, err := tool.Decode[tool.MediaResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		d := domain.Delta{
			Media:       &res.Media,
			MediaReused: &res.MediaReused,
		}
		if len(res.SearchQuery) > 0 {
			d.SearchQuery = res.SearchQuery
		}
		return d, nil

	case domain.ToolPronunciation:
		res, err := tool.Decode[tool.PronunciationResult](result)
		if err != nil {
			return domain.Delta{}, err
		}
		return domain.Delta{Pronunciations: &res.Pronunciations}, nil
	}
	return domain.Delta{}, nil
}
