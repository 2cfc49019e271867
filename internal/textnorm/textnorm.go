// Package textnorm implements the one, shared text-normalization routine
// every other component builds on: pure, centralized, idempotent. It is
// word-level (not identifier-level) tokenization, since document and OCR
// text isn't source code.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// diacriticStripper decomposes accented runes to base+combining-mark form
// (NFD) and drops the combining marks, so "datová" and "datova" normalize
// identically.
var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases s, strips diacritics, and collapses all whitespace
// runs to a single space, trimming the result. It is idempotent:
// Normalize(Normalize(s)) == Normalize(s) for all s.
func Normalize(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		stripped = s
	}

	lower := strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(lower))
	lastWasSpace := false
	for _, r := range lower {
		if unicode.IsSpace(r) {
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}

	return strings.TrimSpace(b.String())
}

// NormalizeQuery applies Normalize to a raw user query. Kept as a distinct
// entry point so query-side processing (e.g. future typo tolerance) can
// diverge from document-side normalization without callers caring which.
func NormalizeQuery(q string) string {
	return Normalize(q)
}

// CreateSearchableText builds the searchable_text field:
// normalize(concat(text, " ", ocr_text, " ", caption, " ", join(labels))).
func CreateSearchableText(text, ocrText, caption string, labels []string) string {
	parts := make([]string, 0, 4)
	if text != "" {
		parts = append(parts, text)
	}
	if ocrText != "" {
		parts = append(parts, ocrText)
	}
	if caption != "" {
		parts = append(parts, caption)
	}
	if len(labels) > 0 {
		parts = append(parts, strings.Join(labels, " "))
	}
	return Normalize(strings.Join(parts, " "))
}

// Tokenize splits normalized text into lowercase word tokens, dropping
// tokens shorter than 2 runes the same way the code tokenizer this is
// grounded on filters short identifiers.
func Tokenize(s string) []string {
	normalized := Normalize(s)
	words := wordRegex.FindAllString(normalized, -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) >= 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// UniqueTokens tokenizes s and returns tokens deduplicated, preserving
// first-occurrence order.
func UniqueTokens(s string) []string {
	tokens := Tokenize(s)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
