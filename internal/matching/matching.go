// Package matching implements the two phrase matching disciplines used by the classifier.
//
// Substring mode accepts a phrase anywhere in the text, including inside longer tokens.
// Word-boundary mode only accepts a phrase that is not glued to surrounding word characters.
// Phrases are literals in both modes and are expected to be lowercase already.
package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Combine joins fields with a single space and lowercases the result once.
func Combine(fields ...string) string {
	return strings.ToLower(strings.Join(fields, " "))
}

// Contains reports whether phrase occurs in text as a contiguous substring.
// text must already be lowercase (see Combine).
func Contains(phrase, text string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(text, phrase)
}

// MatchWord reports whether phrase occurs in text with a word boundary on both sides.
// A boundary sits between a word and a non-word character, or at either end of text.
// Letters and digits of any script plus '_' are word characters.
// text must already be lowercase (see Combine).
func MatchWord(phrase, text string) bool {
	if phrase == "" {
		return false
	}

	for offset := 0; offset <= len(text)-len(phrase); {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return false
		}

		start := offset + idx
		end := start + len(phrase)
		if isBoundary(text, start) && isBoundary(text, end) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}

	return false
}

// FindAll returns every phrase contained in text (substring mode), in phrase order.
func FindAll(phrases []string, text string) []string {
	var matched []string
	for _, p := range phrases {
		if Contains(p, text) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Category is an ordered group of phrases.
type Category[K comparable] struct {
	Key     K
	Phrases []string
}

// FindFirst walks categories in order, and phrases inside a category in order,
// returning the key of the first category with a word-boundary match.
func FindFirst[K comparable](categories []Category[K], text string) (K, bool) {
	for _, c := range categories {
		for _, p := range c.Phrases {
			if MatchWord(p, text) {
				return c.Key, true
			}
		}
	}

	var zero K
	return zero, false
}

func isBoundary(text string, pos int) bool {
	before, after := false, false

	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:pos])
		before = isWordRune(r)
	}
	if pos < len(text) {
		r, _ := utf8.DecodeRuneInString(text[pos:])
		after = isWordRune(r)
	}

	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
