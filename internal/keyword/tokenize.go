package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize lowercases text, strips punctuation and symbols, splits on whitespace, and drops
// tokens shorter than minLen characters.
func Tokenize(text string, minLen int) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	fields := strings.Fields(cleaned)
	if minLen <= 1 {
		return fields
	}
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minLen {
			terms = append(terms, f)
		}
	}
	return terms
}

// termFrequencies counts occurrences of each token.
func termFrequencies(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}
	return freqs
}

// uniqueTerms returns tokens without duplicates, keeping first-seen order.
func uniqueTerms(tokens []string) []string {
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
