package domain

import "strings"

// Language is a supported language, identified by its ISO-639-1 code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
	LanguageGerman  Language = "de"
)

// Languages lists every supported language.
var Languages = []Language{LanguageEnglish, LanguageSpanish, LanguageGerman}

func (l Language) String() string { return string(l) }

func (l Language) IsValid() bool {
	switch l {
	case LanguageEnglish, LanguageSpanish, LanguageGerman:
		return true
	}
	return false
}

// DisplayName returns the English name of the language.
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageSpanish:
		return "Spanish"
	case LanguageGerman:
		return "German"
	}
	return string(l)
}

// NativeName returns the language's name in the language itself.
func (l Language) NativeName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageSpanish:
		return "Español"
	case LanguageGerman:
		return "Deutsch"
	}
	return string(l)
}

// Articles returns the definite articles a gendered noun may carry in this
// language. English nouns carry none.
func (l Language) Articles() []string {
	switch l {
	case LanguageSpanish:
		return []string{"el", "la"}
	case LanguageGerman:
		return []string{"der", "die", "das"}
	}
	return nil
}

// HasArticles reports whether nouns in this language carry a gendered article.
func (l Language) HasArticles() bool { return len(l.Articles()) > 0 }

// ParseLanguage resolves a language code, case-insensitively.
func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	return l, l.IsValid()
}

// PartOfSpeech is the grammatical category of a word. Gendered noun forms are
// distinct values because target-language articles depend on them.
type PartOfSpeech string

const (
	PartOfSpeechNoun          PartOfSpeech = "noun"
	PartOfSpeechMasculineNoun PartOfSpeech = "masculine noun"
	PartOfSpeechFeminineNoun  PartOfSpeech = "feminine noun"
	PartOfSpeechNeuterNoun    PartOfSpeech = "neuter noun"
	PartOfSpeechVerb          PartOfSpeech = "verb"
	PartOfSpeechAdjective     PartOfSpeech = "adjective"
	PartOfSpeechAdverb        PartOfSpeech = "adverb"
	PartOfSpeechPronoun       PartOfSpeech = "pronoun"
	PartOfSpeechPreposition   PartOfSpeech = "preposition"
	PartOfSpeechConjunction   PartOfSpeech = "conjunction"
	PartOfSpeechInterjection  PartOfSpeech = "interjection"
	PartOfSpeechArticle       PartOfSpeech = "article"
	PartOfSpeechNumeral       PartOfSpeech = "numeral"
	PartOfSpeechPhrase        PartOfSpeech = "phrase"
)

func (p PartOfSpeech) String() string { return string(p) }

func (p PartOfSpeech) IsValid() bool {
	switch p {
	case PartOfSpeechNoun, PartOfSpeechMasculineNoun, PartOfSpeechFeminineNoun,
		PartOfSpeechNeuterNoun, PartOfSpeechVerb, PartOfSpeechAdjective,
		PartOfSpeechAdverb, PartOfSpeechPronoun, PartOfSpeechPreposition,
		PartOfSpeechConjunction, PartOfSpeechInterjection, PartOfSpeechArticle,
		PartOfSpeechNumeral, PartOfSpeechPhrase:
		return true
	}
	return false
}

// Category collapses gendered noun forms into their base category.
func (p PartOfSpeech) Category() PartOfSpeech {
	switch p {
	case PartOfSpeechMasculineNoun, PartOfSpeechFeminineNoun, PartOfSpeechNeuterNoun:
		return PartOfSpeechNoun
	}
	return p
}

// HasGender reports whether the value carries grammatical gender.
func (p PartOfSpeech) HasGender() bool {
	switch p {
	case PartOfSpeechMasculineNoun, PartOfSpeechFeminineNoun, PartOfSpeechNeuterNoun:
		return true
	}
	return false
}

// IsConjugatable reports whether the word conjugates. True only for verbs.
func (p PartOfSpeech) IsConjugatable() bool { return p == PartOfSpeechVerb }

// IsDeclinable reports whether the word declines by case or number.
func (p PartOfSpeech) IsDeclinable() bool {
	switch p.Category() {
	case PartOfSpeechNoun, PartOfSpeechAdjective, PartOfSpeechPronoun,
		PartOfSpeechArticle, PartOfSpeechNumeral:
		return true
	}
	return false
}

// SKToken returns the part-of-speech token used in sort keys. Multi-word
// values collapse to their last word, so "feminine noun" becomes "noun".
func (p PartOfSpeech) SKToken() string {
	fields := strings.Fields(string(p))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// ParsePartOfSpeech resolves a part of speech leniently: case-insensitive,
// surrounding whitespace trimmed, inner runs of whitespace collapsed.
func ParsePartOfSpeech(s string) (PartOfSpeech, bool) {
	p := PartOfSpeech(strings.Join(strings.Fields(strings.ToLower(s)), " "))
	return p, p.IsValid()
}

// ToolName identifies one enrichment tool. Quality gates, retry counters, and
// the parallel-task coordinator are keyed by these values.
type ToolName string

const (
	ToolValidation     ToolName = "validation"
	ToolClassification ToolName = "classification"
	ToolTranslation    ToolName = "translation"
	ToolSynonyms       ToolName = "synonyms"
	ToolExamples       ToolName = "examples"
	ToolSyllables      ToolName = "syllables"
	ToolConjugation    ToolName = "conjugation"
	ToolMedia          ToolName = "media"
	ToolPronunciation  ToolName = "pronunciation"
)

func (t ToolName) String() string { return string(t) }

func (t ToolName) IsValid() bool {
	switch t {
	case ToolValidation, ToolClassification, ToolTranslation, ToolSynonyms,
		ToolExamples, ToolSyllables, ToolConjugation, ToolMedia, ToolPronunciation:
		return true
	}
	return false
}

// EventType classifies the progress events broadcast to subscribers.
type EventType string

const (
	EventProcessingStarted   EventType = "processing_started"
	EventChunkUpdate         EventType = "chunk_update"
	EventStepUpdate          EventType = "step_update"
	EventProcessingCompleted EventType = "processing_completed"
	EventProcessingFailed    EventType = "processing_failed"
	EventCacheHit            EventType = "cache_hit"
)

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	switch e {
	case EventProcessingStarted, EventChunkUpdate, EventStepUpdate,
		EventProcessingCompleted, EventProcessingFailed, EventCacheHit:
		return true
	}
	return false
}
