package textutil

import (
	"math"
	"regexp"
	"strings"
)

// SummaryFormat selects how a summary is rendered.
type SummaryFormat string

const (
	FormatParagraph SummaryFormat = "paragraph"
	FormatBullets   SummaryFormat = "bullets"
)

const bullet = "• "

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

// CountWords returns the number of word tokens (letters, digits, underscore).
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// FormatSummary renders text as one bulleted sentence per line when format is
// bullets, and returns it unchanged otherwise.
func FormatSummary(text string, format SummaryFormat) string {
	if format != FormatBullets {
		return text
	}
	var lines []string
	for _, sentence := range SplitSentences(text) {
		if s := strings.TrimSpace(sentence); s != "" {
			lines = append(lines, bullet+s)
		}
	}
	return strings.Join(lines, "\n")
}

// SplitSentences splits after '.', '!' or '?' when followed by whitespace.
// The punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	return append(out, text[start:])
}

// CompressionRatio is summary/original rounded to two decimals, or 0 when the
// original is empty.
func CompressionRatio(original, summary int) float64 {
	if original == 0 {
		return 0
	}
	return math.Round(float64(summary)/float64(original)*100) / 100
}

// Preview truncates s to at most n runes for log lines.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
