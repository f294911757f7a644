package cipherbox

import (
	"strings"

	masker "github.com/goliatone/go-masker"
)

// Mask returns a display-safe form of a credential that keeps only the first
// and last two characters.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(2,2)", value); err == nil {
		return masked
	}

	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
