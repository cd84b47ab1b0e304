package parse

import "strings"

// Truncate shortens text to at most maxLen characters, preferring to cut at
// a sentence boundary, then a word boundary, then the last strong
// punctuation mark, before falling back to a hard cut with an ellipsis.
// Boundaries inside the first three quarters of the budget are ignored so a
// short leading sentence never swallows the rest of the allowance.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := string(runes[:maxLen])
	quarter := maxLen * 3 / 4

	if i := lastIndexRune(cut, "."); i > quarter {
		return string([]rune(cut)[:i+1])
	}

	if i := lastIndexRune(cut, " "); i > quarter {
		return string([]rune(cut)[:i]) + "…"
	}

	last := -1
	for _, p := range []string{".", "!", "?", ",", ";"} {
		if i := lastIndexRune(cut, p); i > last {
			last = i
		}
	}
	if last > quarter {
		return string([]rune(cut)[:last+1]) + "…"
	}

	return string(runes[:maxLen-1]) + "…"
}

// lastIndexRune returns the rune offset of the final occurrence of sep in s,
// or -1. strings.LastIndex reports byte offsets, which drift from the rune
// budget on non-ASCII text.
func lastIndexRune(s, sep string) int {
	b := strings.LastIndex(s, sep)
	if b < 0 {
		return -1
	}
	return len([]rune(s[:b]))
}
