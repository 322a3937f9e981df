package domain

import (
	"strings"
	"unicode"
)

// NormalizeName prepares a user-entered name or label for storage:
//   - trims leading/trailing whitespace
//   - collapses runs of whitespace into one space
//
// Case and diacritics are preserved; Arabic labels keep their harakat.
func NormalizeName(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
