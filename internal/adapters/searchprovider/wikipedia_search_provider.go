package searchprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Snippets derived from intro extracts are capped to roughly two lines.
const maxSnippetChars = 200

type wikipediaSearchProvider struct {
	api         MediaWikiAPI
	searchLimit int

	metrics wikipediaSearchProviderMetricsCollection
}

func NewWikipediaSearchProvider(api MediaWikiAPI, searchLimit int) (SearchProvider, error) {
	if searchLimit < 1 {
		return nil, fmt.Errorf("search limit must be positive, got %d", searchLimit)
	}

	meter := otel.Meter("searchprovider/wikipedia_provider")
	metrics, err := setupWikipediaSearchProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &wikipediaSearchProvider{
		api:         api,
		searchLimit: searchLimit,

		metrics: metrics,
	}, nil
}

func (w *wikipediaSearchProvider) Search(ctx context.Context, language domain.Language, query string) (domain.ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return domain.ResultSet{}, nil
	}

	data, statusCode, err := w.api.SearchPages(ctx, language, query, w.searchLimit)
	if err != nil {
		// NOTE: MediaWikiAPI implementations handle their own error reporting
		return nil, fmt.Errorf("failed to search wikipedia: %w", err)
	}

	pages, err := SearchPagesResponseToPages(ctx, data, statusCode)
	if err != nil {
		// NOTE: SearchPagesResponseToPages handles its own error reporting
		return nil, fmt.Errorf("failed to interpret wikipedia response: %w", err)
	}

	articles := w.pagesToArticles(ctx, language, pages)

	w.metrics.searchCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("got_results", len(articles) > 0)))

	return articles, nil
}

func (w *wikipediaSearchProvider) pagesToArticles(ctx context.Context, language domain.Language, pages []wikipediaPage) domain.ResultSet {
	var missingExtracts []string
	for _, page := range pages {
		if strings.TrimSpace(page.Extract) == "" {
			missingExtracts = append(missingExtracts, page.Title)
		}
	}

	fallbackSnippets := w.fallbackSnippets(ctx, language, missingExtracts)

	articles := make(domain.ResultSet, 0, len(pages))
	for _, page := range pages {
		extract := strings.TrimSpace(page.Extract)

		var snippet string
		if extract != "" {
			snippet = strutils.Truncate(extract, maxSnippetChars)
		} else if fallback, ok := fallbackSnippets[strings.ToLower(page.Title)]; ok {
			snippet = fallback
		} else {
			snippet = page.Title
		}

		article := domain.ArticleSummary{
			Title:   page.Title,
			Snippet: snippet,
			Extract: extract,
			URL:     language.ArticleURL(page.Title),
			PageID:  page.PageID,
		}
		if page.Thumbnail != nil {
			article.ThumbnailURL = page.Thumbnail.Source
		}
		if page.PageProps != nil {
			article.WikidataID = page.PageProps.WikibaseItem
		}

		articles = append(articles, article)
	}

	return articles
}

// fallbackSnippets recovers search snippets for pages that came back without
// an intro extract. Failures degrade to title-only snippets rather than
// failing the whole search.
func (w *wikipediaSearchProvider) fallbackSnippets(ctx context.Context, language domain.Language, titles []string) map[string]string {
	if len(titles) == 0 {
		return nil
	}

	logger := logging.FromContext(ctx)

	data, statusCode, err := w.api.SearchSnippets(ctx, language, titles, min(2*len(titles), 50))
	if err == nil {
		snippets, parseErr := SearchSnippetsResponseToSnippets(ctx, data, statusCode)
		if parseErr == nil {
			logger.Info("Recovered fallback snippets", "requested", len(titles), "found", len(snippets))
			return snippets
		}
		err = parseErr
	}

	logger.Warn("Failed to recover fallback snippets", "titles", len(titles), "error", err.Error())

	return nil
}

type wikipediaSearchProviderMetricsCollection struct {
	searchCount metric.Int64Counter
}

func setupWikipediaSearchProviderMetrics(meter metric.Meter) (wikipediaSearchProviderMetricsCollection, error) {
	searchCount, err := meter.Int64Counter("searchprovider/wikipedia_provider/searches")
	if err != nil {
		return wikipediaSearchProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return wikipediaSearchProviderMetricsCollection{
		searchCount: searchCount,
	}, nil
}
