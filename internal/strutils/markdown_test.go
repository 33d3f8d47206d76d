package strutils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wikifind/wikifind/internal/strutils"
)

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{input: "Hello world", expected: "Hello world"},
		{input: "Hello_world", expected: `Hello\_world`},
		{input: "Test*bold*", expected: `Test\*bold\*`},
		{input: "Link[text]", expected: `Link\[text\]`},
		{input: "A. Einstein!", expected: `A\. Einstein\!`},
		{input: "c++ (language)", expected: `c\+\+ \(language\)`},
		{input: "", expected: ""},
	}

	for _, c := range cases {
		require.Equal(t, c.expected, strutils.EscapeMarkdownV2(c.input))
	}
}

func TestEscapeMarkdownV2URL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://example.com", strutils.EscapeMarkdownV2URL("https://example.com"))
	require.Equal(t, `https://example.com\)`, strutils.EscapeMarkdownV2URL("https://example.com)"))
	require.Equal(
		t,
		"https://en.wikipedia.org/wiki/Go_(programming_language",
		strutils.EscapeMarkdownV2URL("https://en.wikipedia.org/wiki/Go_(programming_language"),
	)
}

func TestFormatArticleMessage(t *testing.T) {
	t.Parallel()

	message := strutils.FormatArticleMessage(
		"Albert Einstein",
		"German-born theoretical physicist.",
		"https://en.wikipedia.org/wiki/Albert_Einstein",
	)

	require.Contains(t, message, "📖 *Albert Einstein*")
	require.Contains(t, message, `German\-born theoretical physicist\.`)
	require.Contains(t, message, "🔗 [Read on Wikipedia](https://en.wikipedia.org/wiki/Albert_Einstein)")
}

func TestFormatNoResultsMessage(t *testing.T) {
	t.Parallel()

	message := strutils.FormatNoResultsMessage("qwzx", "English")

	require.Contains(t, message, "🔍 *Nothing found*")
	require.Contains(t, message, `"qwzx"`)
	require.Contains(t, message, "English")
}
