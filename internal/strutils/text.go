package strutils

import (
	"regexp"
	"strings"
)

var htmlTagRx = regexp.MustCompile(`<[^>]*>`)
var whitespaceRunRx = regexp.MustCompile(`\s+`)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&mdash;", "—",
	"&ndash;", "–",
	"&hellip;", "…",
)

// CleanHTML strips markup from an HTML fragment, leaving readable plain text.
// MediaWiki search snippets arrive with highlight spans and entities.
func CleanHTML(text string) string {
	text = htmlTagRx.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceRunRx.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanDescription flattens an HTML fragment to a single line of plain text.
func CleanDescription(text string) string {
	cleaned := CleanHTML(text)
	cleaned = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(cleaned)
	return strings.TrimSpace(whitespaceRunRx.ReplaceAllString(cleaned, " "))
}

// Truncate shortens text to at most maxChars characters, backing up to the
// previous word boundary and appending "..." when anything was cut.
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	truncated := string(runes[:maxChars])
	if lastSpace := strings.LastIndexByte(truncated, ' '); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}
