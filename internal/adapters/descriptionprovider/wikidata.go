package descriptionprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/wikifind/wikifind/internal/adapters/cache"
	"github.com/wikifind/wikifind/internal/constants"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/reporting"
	"github.com/wikifind/wikifind/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const wikidataAPIURL = "https://www.wikidata.org/w/api.php"

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type wikidataEntitiesResponse struct {
	Entities map[string]wikidataEntity `json:"entities,omitempty"`
	Error    *wikidataAPIError         `json:"error,omitempty"`
}

type wikidataEntity struct {
	Descriptions map[string]wikidataDescription `json:"descriptions,omitempty"`
}

type wikidataDescription struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type wikidataAPIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type wikidataDescriptionProvider struct {
	httpClient HttpClient
	store      *cache.Store[map[string]string]

	metrics wikidataDescriptionProviderMetricsCollection
}

// NewWikidataDescriptionProvider fetches entity descriptions from the Wikidata
// API, memoized per (language, id set) in the given store.
func NewWikidataDescriptionProvider(httpClient HttpClient, store *cache.Store[map[string]string]) (DescriptionProvider, error) {
	meter := otel.Meter("descriptionprovider/wikidata_provider")
	metrics, err := setupWikidataDescriptionProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &wikidataDescriptionProvider{
		httpClient: httpClient,
		store:      store,

		metrics: metrics,
	}, nil
}

func (w *wikidataDescriptionProvider) Descriptions(ctx context.Context, language domain.Language, entityIDs []string) (map[string]string, error) {
	if len(entityIDs) == 0 {
		return map[string]string{}, nil
	}

	key := descriptionsCacheKey(language, entityIDs)

	if descriptions, live, _ := w.store.Get(key); live {
		w.metrics.lookupCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cache_hit", true)))
		return descriptions, nil
	}

	data, statusCode, err := w.getEntities(ctx, language, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get wikidata entities: %w", err)
	}

	descriptions, err := WikidataResponseToDescriptions(ctx, language, data, statusCode)
	if err != nil {
		// NOTE: WikidataResponseToDescriptions handles its own error reporting
		return nil, fmt.Errorf("failed to interpret wikidata response: %w", err)
	}

	w.store.Set(key, descriptions)
	w.metrics.lookupCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cache_hit", false)))

	return descriptions, nil
}

func (w *wikidataDescriptionProvider) getEntities(ctx context.Context, language domain.Language, entityIDs []string) ([]byte, int, error) {
	logger := logging.FromContext(ctx)

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("format", "json")
	params.Set("ids", strings.Join(entityIDs, "|"))
	params.Set("props", "descriptions")
	params.Set("languages", language.Code())

	requestURL := wikidataAPIURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, err
	}

	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("failed to send request (%w): %w", domain.ErrTemporarilyUnavailable, err)
		logger.Info("wikidata request failed", "error", err.Error())
		return []byte{}, -1, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body (%w): %w", domain.ErrTemporarilyUnavailable, err)
		logger.Info("wikidata request failed", "error", err.Error())
		return []byte{}, -1, err
	}

	logger.Info("wikidata request completed", "entities", len(entityIDs), "status", resp.StatusCode, "duration", time.Since(start).String())

	return data, resp.StatusCode, nil
}

// WikidataResponseToDescriptions extracts the per-entity description in the
// requested language, cleaned for display. Entities without one are skipped.
func WikidataResponseToDescriptions(ctx context.Context, language domain.Language, data []byte, statusCode int) (map[string]string, error) {
	logger := logging.FromContext(ctx)

	if err := checkForWikidataError(statusCode, data); err != nil {
		logger.Info(
			"Got response from wikidata",
			"status", "error",
			"error", err.Error(),
			"statusCode", statusCode,
			"contentLength", len(data),
		)
		return nil, err
	}

	response := new(wikidataEntitiesResponse)
	if err := json.Unmarshal(data, response); err != nil {
		err := fmt.Errorf("failed to parse wikidata response (%w): %w", domain.ErrMalformedResponse, err)
		logger.Warn(err.Error(), "statusCode", statusCode, "contentLength", len(data))
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return nil, err
	}

	if response.Error != nil {
		err := fmt.Errorf("wikidata rejected the query: %s: %s (%w)", response.Error.Code, response.Error.Info, domain.ErrMalformedResponse)
		logger.Warn(err.Error())
		return nil, err
	}

	descriptions := make(map[string]string, len(response.Entities))
	for entityID, entity := range response.Entities {
		description, ok := entity.Descriptions[language.Code()]
		if !ok {
			continue
		}
		cleaned := strutils.CleanDescription(description.Value)
		if cleaned == "" {
			continue
		}
		descriptions[entityID] = cleaned
	}

	logger.Info("Got response from wikidata", "status", "success", "descriptions", len(descriptions))

	return descriptions, nil
}

func checkForWikidataError(statusCode int, data []byte) error {
	if statusCode == http.StatusOK {
		// CDN error pages come back as HTML with status 200
		if len(data) > 0 && data[0] == '<' {
			return fmt.Errorf("wikidata returned HTML (%w)", domain.ErrTemporarilyUnavailable)
		}

		return nil
	}

	if statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("wikidata ratelimit exceeded (%w)", domain.ErrUpstreamThrottled)
	}

	return fmt.Errorf("wikidata returned status code %d (%s) (%w)", statusCode, http.StatusText(statusCode), domain.ErrTemporarilyUnavailable)
}

func descriptionsCacheKey(language domain.Language, entityIDs []string) string {
	sorted := slices.Clone(entityIDs)
	slices.Sort(sorted)
	return language.Code() + ":" + strings.Join(sorted, "|")
}

type wikidataDescriptionProviderMetricsCollection struct {
	lookupCount metric.Int64Counter
}

func setupWikidataDescriptionProviderMetrics(meter metric.Meter) (wikidataDescriptionProviderMetricsCollection, error) {
	lookupCount, err := meter.Int64Counter("descriptionprovider/wikidata_provider/lookups")
	if err != nil {
		return wikidataDescriptionProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return wikidataDescriptionProviderMetricsCollection{
		lookupCount: lookupCount,
	}, nil
}
