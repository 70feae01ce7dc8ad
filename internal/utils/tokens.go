package utils

import (
	"fmt"
	"sort"
	"strings"
)

// Rough token estimates for prompt budgeting. Every provider tokenizes
// differently; 1 token ~= 4 characters is close enough for cost warnings.
const charsPerToken = 4

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly limit tokens. When the cut lands
// inside a line, the partial line is dropped so table rows stay whole.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	cut := string(runes[:charLimit])
	if i := strings.LastIndexByte(cut, '\n'); i >= 0 {
		return cut[:i+1]
	}
	return cut
}

// TokenBreakdown estimates tokens per labelled prompt section.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}

// FormatBreakdown renders a breakdown as "label≈n" pairs in label order.
func FormatBreakdown(b map[string]int) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s≈%d", k, b[k])
	}
	return strings.Join(parts, ", ")
}
