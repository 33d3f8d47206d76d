package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wikifind/wikifind/internal/adapters/botapi"
	"github.com/wikifind/wikifind/internal/adapters/cache"
	"github.com/wikifind/wikifind/internal/adapters/descriptionprovider"
	"github.com/wikifind/wikifind/internal/adapters/searchprovider"
	"github.com/wikifind/wikifind/internal/app"
	"github.com/wikifind/wikifind/internal/config"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/ports"
	"github.com/wikifind/wikifind/internal/ranking"
	"github.com/wikifind/wikifind/internal/reporting"
	"github.com/wikifind/wikifind/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// The scratch container image has no CA bundle of its own
	_ "golang.org/x/crypto/x509roots/fallback"
)

const serviceName = "wikifind"
const serviceVersion = "1.0.0"

func main() {
	ctx := context.Background()

	instanceID := uuid.New().String()
	logger := slog.New(
		logging.NewTracingLogHandler(slog.NewJSONHandler(os.Stdout, nil)),
	).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, serviceName, serviceVersion)
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	mediaWikiAPI := searchprovider.NewMediaWikiAPI(httpClient, time.Now, time.After)
	wikipediaProvider, err := searchprovider.NewWikipediaSearchProvider(mediaWikiAPI, config.MaxResults())
	if err != nil {
		fail("Failed to initialize Wikipedia search provider", "error", err.Error())
	}

	// Descriptions change rarely; keep them far longer than search results
	descriptionCache := cache.NewStore[map[string]string](config.CacheCapacity(), 24*time.Hour, time.Now)
	wikidataProvider, err := descriptionprovider.NewWikidataDescriptionProvider(httpClient, descriptionCache)
	if err != nil {
		fail("Failed to initialize Wikidata description provider", "error", err.Error())
	}

	searchProvider, err := searchprovider.NewEnrichedSearchProvider(wikipediaProvider, wikidataProvider)
	if err != nil {
		fail("Failed to initialize search provider", "error", err.Error())
	}
	logger.Info("Initialized search providers")

	resultCache := cache.NewStore[domain.ResultSet](config.CacheCapacity(), config.CacheTTL(), time.Now)
	ranker := ranking.NewRanker(config.MaxResults(), config.PromoteExactTitle())

	resolveSearch, err := app.BuildResolveSearch(
		resultCache,
		searchProvider,
		ranker,
		config.UpstreamTimeout(),
		config.UpstreamAttempts(),
	)
	if err != nil {
		fail("Failed to initialize search resolver", "error", err.Error())
	}

	botClient, err := botapi.NewClientOrMock(config, httpClient)
	if err != nil {
		fail("Failed to initialize Telegram client", "error", err.Error())
	}
	logger.Info("Initialized Telegram client")

	if config.WebhookURL() != "" {
		err := botClient.SetWebhook(ctx, config.WebhookURL(), config.WebhookSecret())
		if err != nil {
			fail("Failed to register webhook", "error", err.Error())
		}
		logger.Info("Registered webhook", "url", config.WebhookURL())
	} else {
		logger.Info("No webhook URL configured, skipping registration")
	}

	http.HandleFunc(
		"POST /webhook",
		ports.MakeWebhookHandler(
			config.WebhookSecret(),
			ports.MakeInlineQueryHandler(resolveSearch, botClient, config.DefaultLanguage()),
			ports.MakeMessageHandler(botClient, config.DefaultLanguage()),
			logger.With("port", "webhook"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"GET /healthz",
		ports.MakeHealthzHandler(),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", config.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
