package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keyStripper applies NFKC normalization with combining marks removed:
// compatibility-decompose, drop nonspacing marks, recompose.
var keyStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey canonicalizes text for use in persistence keys: NFKC,
// lower-case, combining marks stripped, and every rune outside [a-z0-9']
// dropped. "Café" and "cafe" land on the same key; spaces vanish, so
// "to build" becomes "tobuild".
func NormalizeKey(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	if stripped, _, err := transform.String(keyStripper, text); err == nil {
		text = stripped
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SafeWord converts a word into a blob-path segment: ASCII alphanumerics
// only, at most 20 characters. Diacritics are stripped first so "fünf"
// yields "funf" rather than "fnf".
func SafeWord(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if stripped, _, err := transform.String(keyStripper, word); err == nil {
		word = stripped
	}
	var b strings.Builder
	for _, r := range word {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 20 {
			break
		}
	}
	return b.String()
}

// NormalizeText prepares text for prompts and comparison:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - compresses multiple spaces into one
//
// Diacritics, hyphens, and apostrophes are preserved.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)

	// Compress multiple spaces into one.
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
