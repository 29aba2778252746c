package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanUTF8 drops NUL bytes and invalid UTF-8 sequences from a string. The
// second return reports whether anything was removed, so callers can log
// which records arrived dirty.
func CleanUTF8(input string) (string, bool) {
	if utf8.ValidString(input) && !strings.ContainsRune(input, 0) {
		return input, false
	}

	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r != 0 {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String(), true
}
