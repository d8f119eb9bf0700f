package digest

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// CharsPerToken is the fixed approximation used for token estimates.
const CharsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(chars/4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// FormatTokenCount renders a count for display: 950, 12.5K, 1.2M.
func FormatTokenCount(count int) string {
	switch {
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fK", float64(count)/1_000)
	default:
		return strconv.Itoa(count)
	}
}
