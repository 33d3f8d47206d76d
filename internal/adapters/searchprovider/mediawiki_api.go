package searchprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wikifind/wikifind/internal/constants"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/ratelimiting"
	"github.com/wikifind/wikifind/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestLimiter keeps the request rate against a wiki's api.php polite.
type RequestLimiter interface {
	Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool
}

// Generous bound on a single api.php exchange, used by the limiter to judge
// whether a throttled request could still meet its deadline.
const maxRequestDuration = 10 * time.Second

// MediaWikiAPI performs raw calls against a wiki's api.php endpoint.
type MediaWikiAPI interface {
	// SearchPages runs a generator=search query returning full page objects
	// (intro extract, thumbnail, page props) for the top limit matches.
	SearchPages(ctx context.Context, language domain.Language, query string, limit int) ([]byte, int, error)

	// SearchSnippets runs a list=search query for the given titles, used to
	// recover search snippets for pages that have no intro extract.
	SearchSnippets(ctx context.Context, language domain.Language, titles []string, limit int) ([]byte, int, error)
}

type mediaWikiAPIImpl struct {
	httpClient HttpClient
	limiter    RequestLimiter

	tracer trace.Tracer
}

func NewMediaWikiAPI(
	httpClient HttpClient,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) MediaWikiAPI {
	// Wikimedia asks api.php clients to keep their request rate modest
	limiter := ratelimiting.NewWindowLimiter(25, 5*time.Second, nowFunc, afterFunc)

	return mediaWikiAPIImpl{
		httpClient: httpClient,
		limiter:    limiter,

		tracer: otel.Tracer("wikifind/searchprovider/mediawiki"),
	}
}

func (api mediaWikiAPIImpl) SearchPages(ctx context.Context, language domain.Language, query string, limit int) ([]byte, int, error) {
	ctx, span := api.tracer.Start(ctx, "MediaWiki.SearchPages")
	defer span.End()

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(limit))
	params.Set("prop", "extracts|pageimages|pageprops")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exchars", "400")
	params.Set("exlimit", "max")
	params.Set("piprop", "thumbnail")
	params.Set("pithumbsize", "300")
	params.Set("pilimit", "max")

	return api.get(ctx, language.APIEndpoint()+"?"+params.Encode())
}

func (api mediaWikiAPIImpl) SearchSnippets(ctx context.Context, language domain.Language, titles []string, limit int) ([]byte, int, error) {
	ctx, span := api.tracer.Start(ctx, "MediaWiki.SearchSnippets")
	defer span.End()

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", strings.Join(titles, " OR "))
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")

	return api.get(ctx, language.APIEndpoint()+"?"+params.Encode())
}

func (api mediaWikiAPIImpl) get(ctx context.Context, requestURL string) ([]byte, int, error) {
	logger := logging.FromContext(ctx)

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
	var resp *http.Response
	var doErr error
	ran := api.limiter.Limit(ctx, maxRequestDuration, func() {
		resp, doErr = api.httpClient.Do(req)
	})
	if !ran {
		err := ctx.Err()
		if err != nil {
			err = classifyTransportError(err)
		} else {
			// Refused because the wait would overrun the caller's deadline
			err = fmt.Errorf("request held back by the local rate limiter (%w)", domain.ErrUpstreamThrottled)
		}
		if errors.Is(err, context.Canceled) {
			logger.Debug("wikipedia request canceled", "url", requestURL)
		} else {
			logger.Info("wikipedia request not sent", "url", requestURL, "error", err.Error())
		}
		return []byte{}, -1, err
	}
	if doErr != nil {
		err := classifyTransportError(doErr)
		if errors.Is(err, context.Canceled) {
			logger.Debug("wikipedia request canceled", "url", requestURL)
		} else {
			logger.Info("wikipedia request failed", "url", requestURL, "error", err.Error())
		}
		return []byte{}, -1, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body (%w): %w", domain.ErrTemporarilyUnavailable, err)
		logger.Info("wikipedia request failed", "url", requestURL, "error", err.Error())
		return []byte{}, -1, err
	}

	logger.Info("wikipedia request completed", "url", requestURL, "status", resp.StatusCode, "duration", time.Since(start).String())

	return data, resp.StatusCode, nil
}

// classifyTransportError maps errors from the HTTP client onto the domain
// failure classes. Caller cancellation passes through untouched so it is not
// mistaken for an upstream failure.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("wikipedia request timed out (%w): %w", domain.ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("wikipedia request timed out (%w): %w", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("failed to send request (%w): %w", domain.ErrTemporarilyUnavailable, err)
}
