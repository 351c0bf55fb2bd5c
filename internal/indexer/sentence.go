package indexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentence is a sentence span within a text. Start and End are byte offsets; End is exclusive
// and includes the terminating punctuation.
type Sentence struct {
	Start int
	End   int
}

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]struct{}{
	"Dr": {}, "Mr": {}, "Mrs": {}, "Ms": {}, "Prof": {}, "Sr": {}, "Jr": {},
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SplitSentences returns the sentence spans of text in order. A boundary is a run of '.', '!'
// or '?' followed by whitespace or the end of text; a single period after a known abbreviation
// (e.g. "Dr.") is not a boundary. Leading whitespace is excluded from each span.
func SplitSentences(text string) []Sentence {
	var sentences []Sentence
	start := skipSpace(text, 0)
	i := start
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isTerminator(r) {
			i += size
			continue
		}
		runStart := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isTerminator(r) {
				break
			}
			i += size
		}
		if i < len(text) {
			next, _ := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				continue
			}
		}
		if i-runStart == 1 && text[runStart] == '.' && endsWithAbbreviation(text[start:runStart]) {
			continue
		}
		sentences = append(sentences, Sentence{Start: start, End: i})
		start = skipSpace(text, i)
		i = start
	}
	if start < len(text) {
		end := len(strings.TrimRightFunc(text, unicode.IsSpace))
		if end > start {
			sentences = append(sentences, Sentence{Start: start, End: end})
		}
	}
	return sentences
}

func endsWithAbbreviation(s string) bool {
	j := len(s)
	for j > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:j])
		if !unicode.IsLetter(r) {
			break
		}
		j -= size
	}
	_, ok := abbreviations[s[j:]]
	return ok
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}
