package strutils

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MIN_QUERY_LENGTH = 1
const MAX_QUERY_LENGTH = 256

// NormalizeQuery canonicalizes a raw search query so that trivially different
// surface forms share one cache key: surrounding whitespace is trimmed,
// internal whitespace runs collapse to a single space, letters are lowercased
// and control characters are dropped. Normalization is idempotent.
func NormalizeQuery(query string) (string, error) {
	var normalized strings.Builder
	normalized.Grow(len(query))

	pendingSpace := false
	for _, char := range query {
		if unicode.IsSpace(char) {
			pendingSpace = true
			continue
		}
		if unicode.IsControl(char) {
			continue
		}
		if pendingSpace && normalized.Len() > 0 {
			normalized.WriteByte(' ')
		}
		pendingSpace = false
		normalized.WriteRune(unicode.ToLower(char))
	}

	result := normalized.String()

	length := utf8.RuneCountInString(result)
	if length < MIN_QUERY_LENGTH {
		return "", fmt.Errorf("query is empty after normalization. input: '%s'", query)
	}
	if length > MAX_QUERY_LENGTH {
		return "", fmt.Errorf("query exceeds %d characters after normalization", MAX_QUERY_LENGTH)
	}

	return result, nil
}
