package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/wikifind/wikifind/internal/adapters/cache"
	"github.com/wikifind/wikifind/internal/adapters/searchprovider"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/ranking"
	"github.com/wikifind/wikifind/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ResolveSearch answers an inline search query with a ranked set of articles.
// It never fails from the caller's point of view: upstream trouble degrades to
// previously cached results when any exist, and to an empty set otherwise.
type ResolveSearch func(ctx context.Context, language domain.Language, rawQuery string) domain.ResultSet

const retryInitialInterval = 100 * time.Millisecond
const retryMaxInterval = 2 * time.Second

type searchResolver struct {
	store    *cache.Store[domain.ResultSet]
	flights  *cache.FlightGroup[domain.ResultSet]
	provider searchprovider.SearchProvider
	ranker   *ranking.Ranker

	upstreamTimeout  time.Duration
	upstreamAttempts int

	metrics resolveSearchMetricsCollection
}

func BuildResolveSearch(
	store *cache.Store[domain.ResultSet],
	provider searchprovider.SearchProvider,
	ranker *ranking.Ranker,
	upstreamTimeout time.Duration,
	upstreamAttempts int,
) (ResolveSearch, error) {
	if upstreamTimeout <= 0 {
		return nil, fmt.Errorf("upstream timeout must be positive, got %s", upstreamTimeout)
	}
	if upstreamAttempts < 1 {
		return nil, fmt.Errorf("upstream attempts must be at least 1, got %d", upstreamAttempts)
	}

	meter := otel.Meter("wikifind/app/resolve_search")
	metrics, err := setupResolveSearchMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	resolver := &searchResolver{
		store:    store,
		flights:  cache.NewFlightGroup[domain.ResultSet](),
		provider: provider,
		ranker:   ranker,

		upstreamTimeout:  upstreamTimeout,
		upstreamAttempts: upstreamAttempts,

		metrics: metrics,
	}

	return resolver.resolve, nil
}

func (r *searchResolver) resolve(ctx context.Context, language domain.Language, rawQuery string) domain.ResultSet {
	logger := logging.FromContext(ctx)

	normalized, err := strutils.NormalizeQuery(rawQuery)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		logger.Debug("Dropped invalid search query", "error", err.Error())
		r.countResolution(ctx, "invalid")
		return domain.ResultSet{}
	}

	key := language.Code() + ":" + normalized

	// An expired entry surrenders its value here. Hold on to it: it is the
	// fallback if the fresh fetch fails.
	var stale domain.ResultSet
	staleFound := false
	results, live, found := r.store.Get(key)
	if live {
		r.countResolution(ctx, "hit")
		return results
	}
	if found {
		stale = results
		staleFound = true
	}

	results, shared, err := r.flights.Join(ctx, key, func(fetchCtx context.Context) (domain.ResultSet, error) {
		articles, err := r.fetchWithRetry(fetchCtx, language, normalized)
		if err != nil {
			// NOTE: SearchProvider implementations handle their own error reporting
			return nil, fmt.Errorf("failed to fetch search results: %w", err)
		}

		ranked := r.ranker.Rank(normalized, articles)
		r.store.Set(key, ranked)

		return ranked, nil
	})
	if err != nil {
		if staleFound {
			logger.Info("Serving stale results after failed refresh", "error", err.Error())
			r.countResolution(ctx, "stale")
			return stale
		}

		logger.Info("Search failed with nothing cached", "error", err.Error())
		r.countResolution(ctx, "empty")
		return domain.ResultSet{}
	}

	logger.Debug("Resolved search upstream", "results", len(results), "sharedFetch", shared)
	r.countResolution(ctx, "miss")
	return results
}

// fetchWithRetry calls the search provider with a per-attempt timeout,
// retrying transient upstream failures with exponential backoff. A malformed
// response is never going to parse better on a second try and aborts
// immediately.
func (r *searchResolver) fetchWithRetry(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	operation := func() (domain.ResultSet, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, r.upstreamTimeout)
		defer cancel()

		articles, err := r.provider.Search(attemptCtx, language, query)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedResponse) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		return articles, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = retryInitialInterval
	expo.MaxInterval = retryMaxInterval

	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(r.upstreamAttempts)),
	)
}

func (r *searchResolver) countResolution(ctx context.Context, outcome string) {
	r.metrics.resolutionCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

type resolveSearchMetricsCollection struct {
	resolutionCount metric.Int64Counter
}

func setupResolveSearchMetrics(meter metric.Meter) (resolveSearchMetricsCollection, error) {
	resolutionCount, err := meter.Int64Counter("app/resolve_search/resolutions")
	if err != nil {
		return resolveSearchMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return resolveSearchMetricsCollection{
		resolutionCount: resolutionCount,
	}, nil
}
