package tool

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// partsOfSpeech enumerates the accepted part-of-speech labels for schema
// enums and prompt text. Gendered noun forms are distinct labels.
var partsOfSpeech = []string{
	"noun", "masculine noun", "feminine noun", "neuter noun",
	"verb", "adjective", "adverb", "pronoun", "preposition",
	"conjunction", "interjection", "article", "numeral", "phrase",
}

func languageLabel(l domain.Language) string {
	if !l.IsValid() {
		return "an unknown language"
	}
	return fmt.Sprintf("%s (%s)", l.DisplayName(), l)
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

// feedbackBlock renders the retry-feedback section of a prompt. Empty on
// first attempts.
func feedbackBlock(in Inputs) string {
	feedback := str(in, KeyQualityFeedback)
	issues := strs(in, KeyPreviousIssues)
	suggestions := strs(in, KeySuggestions)
	if feedback == "" && len(issues) == 0 && len(suggestions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nYour previous answer was rejected by a quality reviewer.\n")
	if feedback != "" {
		fmt.Fprintf(&b, "Reviewer feedback: %s\n", feedback)
	}
	if len(issues) > 0 {
		b.WriteString("Issues found:\n")
		b.WriteString(bulletList(issues))
	}
	if len(suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		b.WriteString(bulletList(suggestions))
	}
	b.WriteString("Produce a corrected answer that resolves every issue.\n")
	return b.String()
}

const (
	validationSystem     = "You are a strict lexicographer for a vocabulary-learning product. You verify words, you never invent them."
	classificationSystem = "You are a lexicographer. You reduce words to their base dictionary form and classify them precisely."
	translationSystem    = "You are a professional translator for a vocabulary-learning product. You translate dictionary entries, not sentences."
	synonymsSystem       = "You are a lexicographer compiling learner-friendly synonym notes."
	examplesSystem       = "You are a language teacher writing natural example sentences for learners."
	syllablesSystem      = "You are a pronunciation coach. You split words into spoken syllables and write plain-letter phonetic guides."
	conjugationSystem    = "You are a grammar reference. You produce complete, orthographically correct conjugation tables."
)

func validationPrompt(in Inputs, reqs []string) string {
	srcLine := ""
	if src := language(in, KeySourceLanguage); src.IsValid() {
		srcLine = fmt.Sprintf("The learner believes the word is %s.\n", languageLabel(src))
	}
	return fmt.Sprintf(`A learner of %s submitted the word %q.
%sDecide whether this is a real word in English, Spanish, or German, and identify its language.

Requirements:
%s%s`,
		languageLabel(language(in, KeyTargetLanguage)), str(in, KeyWord),
		srcLine, numberedList(reqs), feedbackBlock(in))
}

func classificationPrompt(in Inputs, reqs []string) string {
	return fmt.Sprintf(`The word %q is %s. The learner is studying %s.
Reduce it to its base dictionary form, define it, and classify its part of speech.

Requirements:
%s%s`,
		str(in, KeyWord), languageLabel(language(in, KeySourceLanguage)),
		languageLabel(language(in, KeyTargetLanguage)),
		numberedList(reqs), feedbackBlock(in))
}

func translationPrompt(in Inputs, reqs []string) string {
	context := ""
	if defs := strs(in, KeyDefinitions); len(defs) > 0 {
		context = "Definitions of the source word:\n" + bulletList(defs)
	}
	if pos := str(in, KeyPartOfSpeech); pos != "" {
		context += fmt.Sprintf("Part of speech: %s\n", pos)
	}
	return fmt.Sprintf(`Translate the %s word %q into %s.
%s
Requirements:
%s%s`,
		languageLabel(language(in, KeySourceLanguage)), str(in, KeyWord),
		languageLabel(language(in, KeyTargetLanguage)), context,
		numberedList(reqs), feedbackBlock(in))
}

func synonymsPrompt(in Inputs, reqs []string) string {
	return fmt.Sprintf(`List synonyms for the %s word %q (%s) that a learner could substitute for it.
Explain, for each synonym, how its meaning or register differs.

Requirements:
%s%s`,
		languageLabel(language(in, KeyTargetLanguage)), str(in, KeyTargetWord),
		str(in, KeyPartOfSpeech), numberedList(reqs), feedbackBlock(in))
}

func examplesPrompt(in Inputs, reqs []string) string {
	return fmt.Sprintf(`Write example sentences using the %s word %q. Translate each sentence into %s.

Requirements:
%s%s`,
		languageLabel(language(in, KeyTargetLanguage)), str(in, KeyTargetWord),
		languageLabel(language(in, KeySourceLanguage)),
		numberedList(reqs), feedbackBlock(in))
}

func syllablesPrompt(in Inputs, reqs []string) string {
	return fmt.Sprintf(`Break the %s word %q into spoken syllables and write a phonetic guide a learner can read aloud.

Requirements:
%s%s`,
		languageLabel(language(in, KeyTargetLanguage)), str(in, KeyTargetWord),
		numberedList(reqs), feedbackBlock(in))
}

func conjugationPrompt(in Inputs, reqs []string) string {
	return fmt.Sprintf(`Conjugate the %s verb %q.

Requirements:
%s%s`,
		languageLabel(language(in, KeyTargetLanguage)), str(in, KeyTargetWord),
		numberedList(reqs), feedbackBlock(in))
}