package searchprovider

import (
	"context"

	"github.com/wikifind/wikifind/internal/domain"
)

type SearchProvider interface {
	// Search returns the articles matching query on the given language's wiki,
	// in upstream relevance order. An empty query or a query with no matches
	// yields an empty set, not an error.
	//
	// Raises domain.ErrUpstreamTimeout if the upstream call exceeded its deadline.
	//
	// Raises domain.ErrUpstreamThrottled if the upstream refused the call due to rate limiting.
	//
	// Raises domain.ErrTemporarilyUnavailable for errors believed to be intermittent. The call may be retried later.
	//
	// Raises domain.ErrMalformedResponse if the upstream response could not be interpreted. Retrying will not help.
	Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error)
}
