package searchprovider

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/reporting"
	"github.com/wikifind/wikifind/internal/strutils"
)

type wikipediaPagesResponse struct {
	Query *wikipediaPagesQuery `json:"query,omitempty"`
	Error *wikipediaAPIError   `json:"error,omitempty"`
}

type wikipediaPagesQuery struct {
	Pages map[string]wikipediaPage `json:"pages"`
}

type wikipediaPage struct {
	PageID    int64               `json:"pageid"`
	Index     *int                `json:"index,omitempty"`
	Title     string              `json:"title"`
	Extract   string              `json:"extract,omitempty"`
	Thumbnail *wikipediaThumbnail `json:"thumbnail,omitempty"`
	PageProps *wikipediaPageProps `json:"pageprops,omitempty"`
}

type wikipediaThumbnail struct {
	Source string `json:"source"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type wikipediaPageProps struct {
	WikibaseItem string `json:"wikibase_item,omitempty"`
}

type wikipediaSearchResponse struct {
	Query *wikipediaSearchQuery `json:"query,omitempty"`
	Error *wikipediaAPIError    `json:"error,omitempty"`
}

type wikipediaSearchQuery struct {
	Search []wikipediaSearchHit `json:"search"`
}

type wikipediaSearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type wikipediaAPIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func checkForWikipediaError(statusCode int, data []byte) error {
	// Only support 200 OK
	if statusCode == http.StatusOK {
		// CDN error pages come back as HTML with status 200
		if len(data) > 0 && data[0] == '<' {
			return fmt.Errorf("wikipedia returned HTML (%w)", domain.ErrTemporarilyUnavailable)
		}

		return nil
	}

	// Error for unknown status code
	err := fmt.Errorf("wikipedia returned unsupported status code: %d (%w)", statusCode, domain.ErrTemporarilyUnavailable)

	// Errors for known status codes
	switch statusCode {
	case http.StatusTooManyRequests:
		err = fmt.Errorf("wikipedia ratelimit exceeded (%w)", domain.ErrUpstreamThrottled)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		err = fmt.Errorf("wikipedia returned status code %d (%s) (%w)", statusCode, http.StatusText(statusCode), domain.ErrUpstreamTimeout)
	case 500, 502, 503, 520, 521, 522, 523, 524, 525, 526, 527, 530:
		err = fmt.Errorf("wikipedia returned status code %d (%s) (%w)", statusCode, http.StatusText(statusCode), domain.ErrTemporarilyUnavailable)
	}

	return err
}

// SearchPagesResponseToPages validates and parses a generator=search response.
// The pages arrive as an unordered map keyed by page id; the result is sorted
// back into relevance order using the per-page index.
func SearchPagesResponseToPages(ctx context.Context, data []byte, statusCode int) ([]wikipediaPage, error) {
	logger := logging.FromContext(ctx)

	if err := checkForWikipediaError(statusCode, data); err != nil {
		logger.Info(
			"Got response from wikipedia",
			"status", "error",
			"error", err.Error(),
			"statusCode", statusCode,
			"contentLength", len(data),
		)
		return nil, err
	}

	response := new(wikipediaPagesResponse)
	if err := json.Unmarshal(data, response); err != nil {
		err := fmt.Errorf("failed to parse search response (%w): %w", domain.ErrMalformedResponse, err)
		logger.Warn(err.Error(), "statusCode", statusCode, "contentLength", len(data))
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return nil, err
	}

	if response.Error != nil {
		err := fmt.Errorf("wikipedia rejected the query: %s: %s (%w)", response.Error.Code, response.Error.Info, domain.ErrMalformedResponse)
		logger.Warn(err.Error())
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return nil, err
	}

	if response.Query == nil {
		// The generator omits the query member entirely when nothing matched.
		logger.Info("Got response from wikipedia", "status", "success", "pages", 0)
		return nil, nil
	}

	pages := make([]wikipediaPage, 0, len(response.Query.Pages))
	for _, page := range response.Query.Pages {
		if page.Title == "" {
			continue
		}
		pages = append(pages, page)
	}

	slices.SortStableFunc(pages, func(a, b wikipediaPage) int {
		if c := cmp.Compare(relevanceOrder(a), relevanceOrder(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.PageID, b.PageID)
	})

	logger.Info("Got response from wikipedia", "status", "success", "pages", len(pages))

	return pages, nil
}

func relevanceOrder(page wikipediaPage) int {
	if page.Index == nil {
		return math.MaxInt
	}
	return *page.Index
}

// SearchSnippetsResponseToSnippets parses a list=search response into a map
// from lowercased title to its cleaned snippet.
func SearchSnippetsResponseToSnippets(ctx context.Context, data []byte, statusCode int) (map[string]string, error) {
	logger := logging.FromContext(ctx)

	if err := checkForWikipediaError(statusCode, data); err != nil {
		logger.Info(
			"Got snippet response from wikipedia",
			"status", "error",
			"error", err.Error(),
			"statusCode", statusCode,
		)
		return nil, err
	}

	response := new(wikipediaSearchResponse)
	if err := json.Unmarshal(data, response); err != nil {
		err := fmt.Errorf("failed to parse snippet response (%w): %w", domain.ErrMalformedResponse, err)
		logger.Warn(err.Error(), "statusCode", statusCode, "contentLength", len(data))
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("wikipedia rejected the snippet query: %s: %s (%w)", response.Error.Code, response.Error.Info, domain.ErrMalformedResponse)
	}

	if response.Query == nil {
		return map[string]string{}, nil
	}

	snippets := make(map[string]string, len(response.Query.Search))
	for _, hit := range response.Query.Search {
		cleaned := strutils.CleanHTML(hit.Snippet)
		if cleaned == "" {
			continue
		}
		snippets[strings.ToLower(hit.Title)] = cleaned
	}

	return snippets, nil
}
