package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wikifind/wikifind/internal/adapters/cache"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/ranking"
)

type panicSearchProvider struct {
	t *testing.T
}

func (p *panicSearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	p.t.Helper()
	p.t.Fatal("should not be called")
	return nil, nil
}

type countingSearchProvider struct {
	mu      sync.Mutex
	calls   int
	queries []string
	results domain.ResultSet
	err     error
	delay   time.Duration
}

func (p *countingSearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	p.mu.Lock()
	p.calls++
	p.queries = append(p.queries, query)
	results, err, delay := p.results, p.err, p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p *countingSearchProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingSearchProvider) queryLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.queries...)
}

func (p *countingSearchProvider) set(results domain.ResultSet, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = results
	p.err = err
}

// flakySearchProvider fails the first failures calls, then succeeds.
type flakySearchProvider struct {
	mu       sync.Mutex
	calls    int
	failures int
	failWith error
	results  domain.ResultSet
}

func (p *flakySearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.calls <= p.failures {
		return nil, p.failWith
	}
	return p.results, nil
}

func (p *flakySearchProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func english(t *testing.T) domain.Language {
	t.Helper()
	lang, ok := domain.LanguageFromCode("en")
	require.True(t, ok)
	return lang
}

func articlesTitled(titles ...string) domain.ResultSet {
	articles := make(domain.ResultSet, 0, len(titles))
	for _, title := range titles {
		articles = append(articles, domain.ArticleSummary{Title: title, Snippet: title})
	}
	return articles
}

func TestResolveSearchCachesByNormalizedQuery(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{results: articlesTitled("Albert Einstein", "Einstein family")}
	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	first := resolve(t.Context(), english(t), " Albert  Einstein ")
	second := resolve(t.Context(), english(t), "albert einstein")

	require.Equal(t, first, second)
	require.Len(t, first, 2)
	require.Equal(t, 1, provider.callCount(), "equivalent queries must share one cache entry")
	require.Equal(t, []string{"albert einstein"}, provider.queryLog(), "the upstream should see the normalized query")
}

func TestResolveSearchRejectsInvalidQueries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		rawQuery string
	}{
		{name: "empty", rawQuery: ""},
		{name: "whitespace only", rawQuery: " \t\n "},
		{name: "control characters only", rawQuery: "\x00\x1b"},
		{name: "too long", rawQuery: strings.Repeat("a", 300)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
			resolve, err := BuildResolveSearch(store, &panicSearchProvider{t: t}, ranking.NewRanker(5, false), time.Second, 1)
			require.NoError(t, err)

			results := resolve(t.Context(), english(t), c.rawQuery)

			require.NotNil(t, results)
			require.Empty(t, results)
			require.Equal(t, 0, store.Len(), "invalid queries must not be cached")
		})
	}
}

func TestResolveSearchDeduplicatesConcurrentResolves(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		provider := &countingSearchProvider{
			results: articlesTitled("Cat"),
			delay:   10 * time.Millisecond,
		}
		store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
		resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
		require.NoError(t, err)

		lang := english(t)

		results := make([]domain.ResultSet, 16)
		var wg sync.WaitGroup
		for i := range results {
			wg.Go(func() {
				results[i] = resolve(t.Context(), lang, "cats")
			})
		}
		wg.Wait()

		assert.Equal(t, 1, provider.callCount(), "concurrent resolves of one key must share a single upstream call")
		for _, r := range results {
			assert.Equal(t, results[0], r)
		}
	})
}

func TestResolveSearchExpiresEntries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &countingSearchProvider{results: articlesTitled("Cat")}
	store := cache.NewStore[domain.ResultSet](10, 5*time.Second, func() time.Time { return now })
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	resolve(t.Context(), english(t), "cats")
	require.Equal(t, 1, provider.callCount())

	now = now.Add(2 * time.Second)
	resolve(t.Context(), english(t), "cats")
	require.Equal(t, 1, provider.callCount(), "a live entry is served from the cache")

	now = now.Add(4 * time.Second)
	resolve(t.Context(), english(t), "cats")
	require.Equal(t, 2, provider.callCount(), "an expired entry requires a fresh upstream call")
}

func TestResolveSearchEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{results: articlesTitled("Article")}
	store := cache.NewStore[domain.ResultSet](2, time.Hour, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	resolve(t.Context(), english(t), "cats")
	resolve(t.Context(), english(t), "dogs")
	require.Equal(t, 2, provider.callCount())

	// Touch cats so dogs is the eviction victim when birds comes in
	resolve(t.Context(), english(t), "cats")
	require.Equal(t, 2, provider.callCount())

	resolve(t.Context(), english(t), "birds")
	require.Equal(t, 3, provider.callCount())

	resolve(t.Context(), english(t), "cats")
	require.Equal(t, 3, provider.callCount(), "cats was recently used and must survive the eviction")

	resolve(t.Context(), english(t), "dogs")
	require.Equal(t, 4, provider.callCount(), "dogs was evicted and requires a fresh upstream call")
}

func TestResolveSearchServesStaleResultsOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &countingSearchProvider{results: articlesTitled("Cat", "Felis catus")}
	store := cache.NewStore[domain.ResultSet](10, 5*time.Second, func() time.Time { return now })
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	fresh := resolve(t.Context(), english(t), "cats")
	require.Len(t, fresh, 2)
	require.Equal(t, 1, provider.callCount())

	now = now.Add(6 * time.Second)
	provider.set(nil, fmt.Errorf("wikipedia returned status code 503 (%w)", domain.ErrTemporarilyUnavailable))

	stale := resolve(t.Context(), english(t), "cats")
	require.Equal(t, fresh, stale, "the expired results are better than nothing while upstream is down")
	require.Equal(t, 2, provider.callCount())

	// The expired entry was evicted when it was read, so there is nothing
	// left to fall back on.
	empty := resolve(t.Context(), english(t), "cats")
	require.NotNil(t, empty)
	require.Empty(t, empty)
	require.Equal(t, 3, provider.callCount())
}

func TestResolveSearchCacheLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &countingSearchProvider{results: articlesTitled("Cat")}
	store := cache.NewStore[domain.ResultSet](2, 5*time.Second, func() time.Time { return now })
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	first := resolve(t.Context(), english(t), "Cats")
	require.Equal(t, articlesTitled("Cat"), first)
	require.Equal(t, 1, provider.callCount())

	now = now.Add(2 * time.Second)
	cached := resolve(t.Context(), english(t), "Cats")
	require.Equal(t, first, cached)
	require.Equal(t, 1, provider.callCount(), "a hit within the TTL must not call upstream")

	now = now.Add(4 * time.Second)
	provider.set(articlesTitled("Cat", "Cat (disambiguation)"), nil)
	refreshed := resolve(t.Context(), english(t), "Cats")
	require.Equal(t, articlesTitled("Cat", "Cat (disambiguation)"), refreshed)
	require.Equal(t, 2, provider.callCount(), "an expired entry must be refreshed upstream")
}

func TestResolveSearchCachesEmptyResults(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{results: domain.ResultSet{}}
	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	first := resolve(t.Context(), english(t), "qqqqzzzz")
	second := resolve(t.Context(), english(t), "qqqqzzzz")

	require.NotNil(t, first)
	require.Empty(t, first)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.callCount(), "a successful empty answer is cacheable")
}

func TestResolveSearchRetriesTransientFailures(t *testing.T) {
	for _, failWith := range []error{
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamThrottled,
		domain.ErrTemporarilyUnavailable,
	} {
		t.Run(failWith.Error(), func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				provider := &flakySearchProvider{
					failures: 2,
					failWith: fmt.Errorf("upstream failed (%w)", failWith),
					results:  articlesTitled("Cat"),
				}
				store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
				resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 3)
				require.NoError(t, err)

				results := resolve(t.Context(), english(t), "cats")

				assert.Equal(t, articlesTitled("Cat"), results)
				assert.Equal(t, 3, provider.callCount())
			})
		})
	}
}

func TestResolveSearchGivesUpAfterConfiguredAttempts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		provider := &flakySearchProvider{
			failures: 100,
			failWith: fmt.Errorf("upstream failed (%w)", domain.ErrTemporarilyUnavailable),
		}
		store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
		resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 3)
		require.NoError(t, err)

		results := resolve(t.Context(), english(t), "cats")

		assert.NotNil(t, results)
		assert.Empty(t, results)
		assert.Equal(t, 3, provider.callCount())
	})
}

func TestResolveSearchDoesNotRetryMalformedResponses(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{
		err: fmt.Errorf("failed to parse wikipedia response (%w)", domain.ErrMalformedResponse),
	}
	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 3)
	require.NoError(t, err)

	results := resolve(t.Context(), english(t), "cats")

	require.NotNil(t, results)
	require.Empty(t, results)
	require.Equal(t, 1, provider.callCount(), "a malformed response will not parse better on retry")
}

func TestResolveSearchRanksBeforeCaching(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{results: articlesTitled("Go (game)", "Golang", "Go")}
	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(2, true), time.Second, 1)
	require.NoError(t, err)

	first := resolve(t.Context(), english(t), "Go")
	require.Len(t, first, 2)
	require.Equal(t, []string{"Go", "Go (game)"}, []string{first[0].Title, first[1].Title})

	cached := resolve(t.Context(), english(t), "go")
	require.Equal(t, first, cached, "hits serve the already ranked set")
	require.Equal(t, 1, provider.callCount())
}

func TestResolveSearchSeparatesLanguages(t *testing.T) {
	t.Parallel()

	provider := &countingSearchProvider{results: articlesTitled("Cat")}
	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	resolve, err := BuildResolveSearch(store, provider, ranking.NewRanker(5, false), time.Second, 1)
	require.NoError(t, err)

	english, ok := domain.LanguageFromCode("en")
	require.True(t, ok)
	german, ok := domain.LanguageFromCode("de")
	require.True(t, ok)

	resolve(t.Context(), english, "cats")
	resolve(t.Context(), german, "cats")

	require.Equal(t, 2, provider.callCount(), "the same query in different languages must not share a cache entry")
}

func TestBuildResolveSearchRejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	store := cache.NewStore[domain.ResultSet](10, time.Minute, time.Now)
	ranker := ranking.NewRanker(5, false)

	_, err := BuildResolveSearch(store, &countingSearchProvider{}, ranker, 0, 3)
	require.Error(t, err)

	_, err = BuildResolveSearch(store, &countingSearchProvider{}, ranker, time.Second, 0)
	require.Error(t, err)
}
