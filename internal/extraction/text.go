package extraction

import (
	"regexp"
	"strings"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun = regexp.MustCompile(`\n\n\n+`)
)

// CleanText normalizes extracted text while keeping its line structure.
// Line endings become LF, runs of spaces collapse, and at most one blank line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)
		cleaned := spaceRun.ReplaceAllString(strings.TrimSpace(trimmed), " ")
		if cleaned != "" && indent > 0 {
			// Keep indentation of sub-answers, capped to stay readable.
			cleaned = strings.Repeat(" ", min(indent, 8)) + cleaned
		}
		lines[i] = cleaned
	}

	result := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// CountWords returns the number of whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
