package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Key prefixes for the vocabulary table. The primary key pair addresses one
// (source word, target language, part of speech) artifact; SEARCH rows fan a
// fresh media artifact out across its normalized search terms.
const (
	pkPrefixSource = "SRC"
	skPrefixTarget = "TGT"
	skInfixPOS     = "POS"
	pkPrefixSearch = "SEARCH"
	skPrefixRef    = "REF"
	lkpPrefix      = "LKP"
)

// VocabPK builds the partition key SRC#{src}#{norm(word)}.
func VocabPK(src Language, word string) string {
	return fmt.Sprintf("%s#%s#%s", pkPrefixSource, src, NormalizeKey(word))
}

// VocabSK builds the sort key TGT#{tgt}#POS#{token}, collapsing multi-word
// parts of speech to their last word.
func VocabSK(tgt Language, pos PartOfSpeech) string {
	return fmt.Sprintf("%s#%s#%s#%s", skPrefixTarget, tgt, skInfixPOS, pos.SKToken())
}

// VocabSKPrefix is the sort-key prefix matching every part of speech for a
// target language, used by the existence check.
func VocabSKPrefix(tgt Language) string {
	return fmt.Sprintf("%s#%s", skPrefixTarget, tgt)
}

// LookupAttr builds the reverse-lookup attribute LKP#{tgt}#{norm(word)}.
func LookupAttr(tgt Language, targetWord string) string {
	return fmt.Sprintf("%s#%s#%s", lkpPrefix, tgt, NormalizeKey(targetWord))
}

// SearchPK builds the fan-out partition key SEARCH#{norm(term)}.
func SearchPK(term string) string {
	return fmt.Sprintf("%s#%s", pkPrefixSearch, NormalizeKey(term))
}

// SearchSK builds the fan-out sort key REF#{pk}#{sk} pointing at the
// canonical vocabulary row.
func SearchSK(mainPK, mainSK string) string {
	return fmt.Sprintf("%s#%s#%s", skPrefixRef, mainPK, mainSK)
}

// VocabWordKey computes the subscription key "{tgt}#{norm(word)}" that groups
// all subscribers interested in one (source word, target language) pair.
func VocabWordKey(tgt Language, sourceWord string) string {
	return fmt.Sprintf("%s#%s", tgt, NormalizeKey(sourceWord))
}

// Quantize4 rounds a score to four decimal places, the fixed-point precision
// used for all persisted numeric fields.
func Quantize4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// MediaSources holds the stored (or provider) image URLs by size variant.
type MediaSources struct {
	Large2x string `json:"large2x,omitempty" dynamodbav:"large2x,omitempty"`
	Large   string `json:"large,omitempty" dynamodbav:"large,omitempty"`
	Medium  string `json:"medium,omitempty" dynamodbav:"medium,omitempty"`
	Small   string `json:"small,omitempty" dynamodbav:"small,omitempty"`
}

// Empty reports whether no size variant carries a URL.
func (s MediaSources) Empty() bool {
	return s.Large2x == "" && s.Large == "" && s.Medium == "" && s.Small == ""
}

// Media is the representative image for a word: its source URLs plus
// learner-facing texts in the source language.
type Media struct {
	URL         string       `json:"url,omitempty" dynamodbav:"url,omitempty"`
	Src         MediaSources `json:"src" dynamodbav:"src"`
	Alt         string       `json:"alt,omitempty" dynamodbav:"alt,omitempty"`
	Explanation string       `json:"explanation,omitempty" dynamodbav:"explanation,omitempty"`
	MemoryTip   string       `json:"memory_tip,omitempty" dynamodbav:"memory_tip,omitempty"`
	// MatchedWord records which search term hit the reuse index. Never
	// persisted with the artifact.
	MatchedWord string `json:"matched_word,omitempty" dynamodbav:"-"`
}

// PlaceholderMedia is the fallback artifact used when no photo is available.
func PlaceholderMedia(word string) Media {
	return Media{Alt: word}
}

// Example pairs a sentence in the target language with its translation.
type Example struct {
	Original    string `json:"original" dynamodbav:"original"`
	Translation string `json:"translation" dynamodbav:"translation"`
	Context     string `json:"context,omitempty" dynamodbav:"context,omitempty"`
}

// Synonym pairs a near-synonym with a short usage distinction.
type Synonym struct {
	Synonym     string `json:"synonym" dynamodbav:"synonym"`
	Explanation string `json:"explanation" dynamodbav:"explanation"`
}

// Pronunciations holds blob URLs for the generated audio artifacts.
type Pronunciations struct {
	Audio     string `json:"audio" dynamodbav:"audio"`
	Syllables string `json:"syllables,omitempty" dynamodbav:"syllables,omitempty"`
}

// ConjugatedForm is one person/form cell of a conjugation table.
type ConjugatedForm struct {
	Pronoun string `json:"pronoun" dynamodbav:"pronoun"`
	Form    string `json:"form" dynamodbav:"form"`
}

// Conjugation is a language-specific conjugation table keyed by tense name.
// Present only when the target word is a verb.
type Conjugation struct {
	Infinitive string                      `json:"infinitive" dynamodbav:"infinitive"`
	Tenses     map[string][]ConjugatedForm `json:"tenses" dynamodbav:"tenses"`
}

// VocabEntry is the persisted enrichment artifact for one
// (source word, target language, part of speech) triple.
type VocabEntry struct {
	PK string `json:"-" dynamodbav:"PK"`
	SK string `json:"-" dynamodbav:"SK"`
	// LKP enables reverse lookup by normalized target word.
	LKP string `json:"-" dynamodbav:"LKP,omitempty"`
	// EnglishWord is the normalized media-reuse index key.
	EnglishWord string `json:"english_word,omitempty" dynamodbav:"english_word,omitempty"`

	SourceWord     string       `json:"source_word" dynamodbav:"source_word"`
	SourceLanguage Language     `json:"source_language" dynamodbav:"source_language"`
	TargetLanguage Language     `json:"target_language" dynamodbav:"target_language"`
	SourceDef      []string     `json:"source_definition,omitempty" dynamodbav:"source_definition,omitempty"`
	SourcePOS      PartOfSpeech `json:"source_part_of_speech,omitempty" dynamodbav:"source_part_of_speech,omitempty"`
	SourceArticle  string       `json:"source_article,omitempty" dynamodbav:"source_article,omitempty"`
	SourceInfo     string       `json:"source_additional_info,omitempty" dynamodbav:"source_additional_info,omitempty"`

	TargetWord       string       `json:"target_word" dynamodbav:"target_word"`
	TargetPOS        PartOfSpeech `json:"target_part_of_speech" dynamodbav:"target_part_of_speech"`
	TargetArticle    string       `json:"target_article,omitempty" dynamodbav:"target_article,omitempty"`
	TargetInfo       string       `json:"target_additional_info,omitempty" dynamodbav:"target_additional_info,omitempty"`
	TargetPluralForm string       `json:"target_plural_form,omitempty" dynamodbav:"target_plural_form,omitempty"`

	Syllables      []string        `json:"target_syllables,omitempty" dynamodbav:"target_syllables,omitempty"`
	PhoneticGuide  string          `json:"target_phonetic_guide,omitempty" dynamodbav:"target_phonetic_guide,omitempty"`
	Synonyms       []Synonym       `json:"synonyms,omitempty" dynamodbav:"synonyms,omitempty"`
	Examples       []Example       `json:"examples,omitempty" dynamodbav:"examples,omitempty"`
	Conjugation    *Conjugation    `json:"conjugation,omitempty" dynamodbav:"conjugation,omitempty"`
	Pronunciations *Pronunciations `json:"pronunciations,omitempty" dynamodbav:"pronunciations,omitempty"`
	Media          *Media          `json:"media,omitempty" dynamodbav:"media,omitempty"`
	SearchQuery    []string        `json:"search_query,omitempty" dynamodbav:"search_query,omitempty"`
	MediaReused    bool            `json:"media_reused" dynamodbav:"media_reused"`

	OverallQualityScore float64   `json:"overall_quality_score" dynamodbav:"overall_quality_score"`
	CreatedAt           time.Time `json:"created_at" dynamodbav:"created_at"`
	UserID              string    `json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	RequestID           string    `json:"request_id,omitempty" dynamodbav:"request_id,omitempty"`
}

// Keys populates PK, SK, LKP, and the normalized EnglishWord from the
// entry's content fields. Call before persisting.
func (e *VocabEntry) Keys() {
	e.PK = VocabPK(e.SourceLanguage, e.SourceWord)
	e.SK = VocabSK(e.TargetLanguage, e.TargetPOS)
	e.LKP = LookupAttr(e.TargetLanguage, e.TargetWord)
	e.EnglishWord = NormalizeKey(e.EnglishWord)
}

// Validate checks the artifact invariants prior to persistence.
func (e *VocabEntry) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(e.SourceWord) == "" {
		errs = append(errs, FieldError{Field: "source_word", Message: "must not be empty"})
	}
	if !e.SourceLanguage.IsValid() {
		errs = append(errs, FieldError{Field: "source_language", Message: "unknown language"})
	}
	if !e.TargetLanguage.IsValid() {
		errs = append(errs, FieldError{Field: "target_language", Message: "unknown language"})
	}
	if strings.TrimSpace(e.TargetWord) == "" {
		errs = append(errs, FieldError{Field: "target_word", Message: "must not be empty"})
	}
	if e.TargetPOS.HasGender() && len(e.TargetLanguage.Articles()) > 0 && !containsFold(e.TargetLanguage.Articles(), e.TargetArticle) {
		errs = append(errs, FieldError{
			Field:   "target_article",
			Message: fmt.Sprintf("%q is not an article of %s", e.TargetArticle, e.TargetLanguage),
		})
	}
	if (e.Conjugation != nil) && !e.TargetPOS.IsConjugatable() {
		errs = append(errs, FieldError{Field: "conjugation", Message: "only verbs carry a conjugation table"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func containsFold(set []string, s string) bool {
	for _, v := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ExistingItem summarizes an already-stored artifact surfaced by the
// existence check or the cache-hit path.
type ExistingItem struct {
	PK         string      `json:"pk"`
	SK         string      `json:"sk"`
	TargetWord string      `json:"target_word,omitempty"`
	Entry      *VocabEntry `json:"entry,omitempty"`
}
