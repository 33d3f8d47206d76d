package searchprovider

import (
	"context"
	"fmt"

	"github.com/wikifind/wikifind/internal/adapters/descriptionprovider"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type enrichedSearchProvider struct {
	inner        SearchProvider
	descriptions descriptionprovider.DescriptionProvider

	metrics enrichedSearchProviderMetricsCollection
}

// NewEnrichedSearchProvider decorates inner with one-line entity descriptions.
// Description lookups are best effort: any failure there is logged and the
// undecorated results are returned instead.
func NewEnrichedSearchProvider(inner SearchProvider, descriptions descriptionprovider.DescriptionProvider) (SearchProvider, error) {
	meter := otel.Meter("searchprovider/enriched_provider")
	metrics, err := setupEnrichedSearchProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &enrichedSearchProvider{
		inner:        inner,
		descriptions: descriptions,

		metrics: metrics,
	}, nil
}

func (e *enrichedSearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	articles, err := e.inner.Search(ctx, language, query)
	if err != nil {
		return nil, err
	}

	return e.describeArticles(ctx, language, articles), nil
}

func (e *enrichedSearchProvider) describeArticles(ctx context.Context, language domain.Language, articles domain.ResultSet) domain.ResultSet {
	var entityIDs []string
	for _, article := range articles {
		if article.WikidataID != "" {
			entityIDs = append(entityIDs, article.WikidataID)
		}
	}
	if len(entityIDs) == 0 {
		return articles
	}

	descriptions, err := e.descriptions.Descriptions(ctx, language, entityIDs)
	if err != nil {
		logging.FromContext(ctx).Warn("Failed to fetch article descriptions", "entities", len(entityIDs), "error", err.Error())
		return articles
	}

	described := articles.Clone()
	count := 0
	for i := range described {
		if description, ok := descriptions[described[i].WikidataID]; ok {
			described[i].Description = description
			count++
		}
	}

	e.metrics.searchCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("got_descriptions", count > 0)))

	return described
}

type enrichedSearchProviderMetricsCollection struct {
	searchCount metric.Int64Counter
}

func setupEnrichedSearchProviderMetrics(meter metric.Meter) (enrichedSearchProviderMetricsCollection, error) {
	searchCount, err := meter.Int64Counter("searchprovider/enriched_provider/searches")
	if err != nil {
		return enrichedSearchProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return enrichedSearchProviderMetricsCollection{
		searchCount: searchCount,
	}, nil
}
