package strutils

import (
	"fmt"
	"strings"
)

// Characters Telegram requires to be backslash-escaped in MarkdownV2 text.
// https://core.telegram.org/bots/api#markdownv2-style
const markdownV2Special = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for interpolation into a MarkdownV2 message.
func EscapeMarkdownV2(text string) string {
	var escaped strings.Builder
	escaped.Grow(len(text))
	for _, char := range text {
		if strings.ContainsRune(markdownV2Special, char) {
			escaped.WriteByte('\\')
		}
		escaped.WriteRune(char)
	}
	return escaped.String()
}

// EscapeMarkdownV2URL escapes a URL for use inside a MarkdownV2 link target,
// where only ')' and '\' are special.
func EscapeMarkdownV2URL(url string) string {
	var escaped strings.Builder
	escaped.Grow(len(url))
	for _, char := range url {
		if char == ')' || char == '\\' {
			escaped.WriteByte('\\')
		}
		escaped.WriteRune(char)
	}
	return escaped.String()
}

// FormatArticleMessage renders the MarkdownV2 message sent when a search
// result is picked.
func FormatArticleMessage(title, content, url string) string {
	return fmt.Sprintf(
		"📖 *%s*\n\n%s\n\n🔗 [Read on Wikipedia](%s)",
		EscapeMarkdownV2(title),
		EscapeMarkdownV2(content),
		EscapeMarkdownV2URL(url),
	)
}

// FormatNoResultsMessage renders the MarkdownV2 message for searches with
// no matching articles.
func FormatNoResultsMessage(query, languageName string) string {
	return fmt.Sprintf(
		"🔍 *Nothing found*\n\nNo %s Wikipedia articles match \"%s\"\n\n💡 Try a different search",
		EscapeMarkdownV2(languageName),
		EscapeMarkdownV2(query),
	)
}
