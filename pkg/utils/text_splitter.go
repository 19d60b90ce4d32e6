package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// SplitParagraphs packs paragraphs (runs separated by blank lines) into chunks of at most
// maxChars runes. Paragraphs are trimmed, empty ones dropped, and paragraphs sharing a chunk
// are joined by a blank line. A paragraph longer than maxChars is hard-split on its own.
func SplitParagraphs(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 1000
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, paragraph := range paragraphBreak.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(paragraph)

		if paraLen > maxChars {
			flush()
			chunks = append(chunks, SplitText(paragraph, maxChars, 0)...)
			continue
		}

		if currentLen > 0 && currentLen+2+paraLen > maxChars {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(paragraph)
		currentLen += paraLen
	}
	flush()

	return chunks
}

// SplitText splits a long string into chunks of approximately 'chunkSize' runes.
// It includes an 'overlap' to preserve context at boundaries.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}

// Summarize returns the leading maxRunes of text, cut back to the last word boundary.
func Summarize(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	cut := string(runes[:maxRunes])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// EstimateTokens is a rough rune/4 token estimate.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
