package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wikifind/wikifind/internal/strutils"
)

// ArticleSummary is one encyclopedia article as shown in search results.
// Snippet and Extract are plain text with any upstream HTML already stripped.
// Description is the one-line Wikidata description when one was found.
type ArticleSummary struct {
	Title        string
	Snippet      string
	Extract      string
	Description  string
	URL          string
	ThumbnailURL string
	WikidataID   string
	PageID       int64
}

// BestDescription picks the short one-liner shown under the result title.
// Preference order: Wikidata description, article extract, search snippet.
func (a ArticleSummary) BestDescription(maxChars int) string {
	if strings.TrimSpace(a.Description) != "" {
		return strutils.Truncate(strings.TrimSpace(a.Description), maxChars)
	}
	if strings.TrimSpace(a.Extract) != "" {
		return strutils.Truncate(strings.TrimSpace(a.Extract), maxChars)
	}
	if strings.TrimSpace(a.Snippet) != "" {
		return strutils.Truncate(strings.TrimSpace(a.Snippet), maxChars)
	}
	return fmt.Sprintf("Wikipedia article: %s", a.Title)
}

// BestContent picks the body text for the message sent when the result is chosen.
func (a ArticleSummary) BestContent(maxChars int) string {
	if strings.TrimSpace(a.Extract) != "" {
		return strutils.Truncate(strings.TrimSpace(a.Extract), maxChars)
	}
	return strutils.Truncate(a.Snippet, maxChars)
}

// ResultSet is an ordered, ranked collection of article summaries. It is
// never mutated after construction; everything downstream shares it read-only.
type ResultSet []ArticleSummary

func (rs ResultSet) Clone() ResultSet {
	return slices.Clone(rs)
}
