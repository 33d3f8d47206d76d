package ranking

import (
	"fmt"
	"strings"

	"github.com/wikifind/wikifind/internal/domain"
)

// Ranker turns upstream-ordered search results into the bounded set served to
// the transport. Upstream order is assumed relevance-ordered and is preserved;
// the only override is the optional exact-title promotion.
type Ranker struct {
	maxResults        int
	promoteExactTitle bool
}

func NewRanker(maxResults int, promoteExactTitle bool) *Ranker {
	if maxResults < 1 {
		panic(fmt.Sprintf("ranking: maxResults must be at least 1, got %d", maxResults))
	}
	return &Ranker{
		maxResults:        maxResults,
		promoteExactTitle: promoteExactTitle,
	}
}

// Rank truncates articles to the configured maximum. With exact-title
// promotion enabled, articles whose title equals query case-insensitively move
// to the front; relative order is preserved on both sides of the split.
func (r *Ranker) Rank(query string, articles domain.ResultSet) domain.ResultSet {
	ranked := articles
	if r.promoteExactTitle {
		exact := make(domain.ResultSet, 0, len(articles))
		rest := make(domain.ResultSet, 0, len(articles))
		for _, article := range articles {
			if strings.EqualFold(article.Title, query) {
				exact = append(exact, article)
			} else {
				rest = append(rest, article)
			}
		}
		ranked = append(exact, rest...)
	}

	if len(ranked) > r.maxResults {
		ranked = ranked[:r.maxResults]
	}
	if len(ranked) == 0 {
		return domain.ResultSet{}
	}
	return ranked
}
