package ports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/wikifind/wikifind/internal/adapters/botapi"
	"github.com/wikifind/wikifind/internal/app"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/ratelimiting"
	"github.com/wikifind/wikifind/internal/reporting"
)

// Telegram caches inline answers per query string on their side
const inlineAnswerCacheTime = 5 * time.Minute

func MakeInlineQueryHandler(
	resolveSearch app.ResolveSearch,
	client botapi.Client,
	defaultLanguage domain.Language,
) InlineQueryHandler {
	userLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(2),
		ratelimiting.BurstSize(30),
	)

	return func(ctx context.Context, inlineQuery botapi.InlineQuery) {
		ctx = reporting.SetUserIDInContext(ctx, strconv.FormatInt(inlineQuery.From.ID, 10))
		ctx = logging.AddMetaToContext(ctx,
			slog.Int64("userId", inlineQuery.From.ID),
		)
		logger := logging.FromContext(ctx)

		// Every answer fits in a single page, so any continuation request
		// gets an empty one
		if inlineQuery.Offset != "" {
			countInlineAnswer(ctx, "pagination")
			answerInlineQuery(ctx, client, inlineQuery.ID, nil)
			return
		}

		if !userLimiter.Consume(fmt.Sprintf("user: %d", inlineQuery.From.ID)) {
			// Answering would spend a bot API call on the flood, so the
			// query is dropped without one
			countInlineAnswer(ctx, "rate_limited")
			logger.Info("Rate limited inline query")
			return
		}

		language, query := domain.SplitLanguagePrefix(defaultLanguage, inlineQuery.Query)
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"language": language.Code(),
			"query":    query,
		})

		if strings.TrimSpace(query) == "" {
			countInlineAnswer(ctx, "language_select")
			answerInlineQuery(ctx, client, inlineQuery.ID, languageSelectRecords(language))
			return
		}

		results := resolveSearch(ctx, language, query)

		if len(results) == 0 {
			countInlineAnswer(ctx, "no_results")
			answerInlineQuery(ctx, client, inlineQuery.ID, noResultsRecords(language, query))
			return
		}

		countInlineAnswer(ctx, "results")
		logger.Info("Answering inline query", "language", language.Code(), "results", len(results))
		answerInlineQuery(ctx, client, inlineQuery.ID, articleRecords(results))
	}
}

func answerInlineQuery(ctx context.Context, client botapi.Client, inlineQueryID string, records []botapi.InlineQueryResultArticle) {
	err := client.AnswerInlineQuery(ctx, inlineQueryID, records, inlineAnswerCacheTime)
	if err == nil {
		return
	}

	logger := logging.FromContext(ctx)
	if errors.Is(err, domain.ErrUpstreamThrottled) {
		logger.Info("Answer dropped by telegram rate limiting", "error", err.Error())
		return
	}
	logger.Error("Failed to answer inline query", "error", err.Error())
	reporting.Report(ctx, fmt.Errorf("failed to answer inline query: %w", err))
}
