package media

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/provider/pexels"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

const mediaSystem = "You are a visual educator for a vocabulary-learning product. You choose and describe photographs that make a word's meaning stick."

func languageLabel(l domain.Language) string {
	if !l.IsValid() {
		return "an unknown language"
	}
	return fmt.Sprintf("%s (%s)", l.DisplayName(), l)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func wordContext(req tool.MediaRequest) string {
	var b strings.Builder
	if req.EnglishWord != "" {
		fmt.Fprintf(&b, "Its English rendering is %q.\n", req.EnglishWord)
	}
	if len(req.Definitions) > 0 {
		b.WriteString("Definitions:\n")
		b.WriteString(bulletList(req.Definitions))
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Notes)
	}
	return b.String()
}

func searchTermsPrompt(req tool.MediaRequest) string {
	return fmt.Sprintf(`Find photo-search terms for the %s word %q. The learner speaks %s.
%s
Requirements:
1. Search terms are one or two English words naming something a photo can show.
2. Prefer the concrete everyday sense of the word over abstract ones.
3. Give one to three terms, most representative first.
%s`,
		languageLabel(req.TargetLanguage), req.Word, languageLabel(req.SourceLanguage),
		wordContext(req), req.Feedback)
}

func localizePrompt(req tool.MediaRequest, found domain.Media) string {
	return fmt.Sprintf(`A photograph already illustrates the %s word %q. It was chosen for the related word %q and described as: %s
%s
Write new alt text, a one-sentence explanation of how the photo shows the word's meaning, and a memory tip. All three in %s.%s`,
		languageLabel(req.TargetLanguage), req.Word, found.MatchedWord, found.Alt,
		wordContext(req), languageLabel(req.SourceLanguage), req.Feedback)
}

func selectionPrompt(req tool.MediaRequest, terms []string, photos []pexels.Photo) string {
	var b strings.Builder
	for _, ph := range photos {
		fmt.Fprintf(&b, "%d: %s\n", ph.ID, ph.Alt)
	}
	return fmt.Sprintf(`These photos matched the search %q for the %s word %q:
%s
Pick the one that depicts the word's meaning best, not the written word itself.
Then write alt text, a one-sentence explanation, and a memory tip for it, all in %s.%s`,
		strings.Join(terms, " "), languageLabel(req.TargetLanguage), req.Word,
		b.String(), languageLabel(req.SourceLanguage), req.Feedback)
}
