package mention

import (
	"strings"
	"unicode/utf8"
)

// indexWord returns the byte offset of the first occurrence of term in text
// that is not embedded in a longer word, or -1. Both must already be folded.
func indexWord(text, term string) int {
	if term == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return start
		}
		offset = start + 1
		if offset >= len(text) {
			return -1
		}
	}
}

// countWord counts non-overlapping whole-word occurrences of term in text.
func countWord(text, term string) int {
	n := 0
	offset := 0
	for offset < len(text) {
		i := indexWord(text[offset:], term)
		if i < 0 {
			break
		}
		n++
		offset += i + len(term)
	}
	return n
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// firstOf returns the earliest whole-word offset of any term, or -1.
func firstOf(text string, terms []string) int {
	best := -1
	for _, t := range terms {
		if i := indexWord(text, t); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
