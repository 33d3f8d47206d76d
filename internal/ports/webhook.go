package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/wikifind/wikifind/internal/adapters/botapi"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/reporting"
)

// Telegram echoes the secret configured with setWebhook in this header on
// every delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type InlineQueryHandler func(ctx context.Context, inlineQuery botapi.InlineQuery)
type MessageHandler func(ctx context.Context, message botapi.Message)

func MakeWebhookHandler(
	webhookSecret string,
	handleInlineQuery InlineQueryHandler,
	handleMessage MessageHandler,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("webhook"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		if webhookSecret != "" && r.Header.Get(secretTokenHeader) != webhookSecret {
			countUpdate(ctx, "unauthorized")
			logger.Warn("Rejected webhook request with a bad secret token")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			countUpdate(ctx, "unreadable")
			reporting.Report(ctx, fmt.Errorf("failed to read webhook request body: %w", err))
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		var update botapi.Update
		if err := json.Unmarshal(body, &update); err != nil {
			countUpdate(ctx, "malformed")
			reporting.Report(ctx, fmt.Errorf("failed to parse webhook update: %w", err))
			// Answer 200 so Telegram does not redeliver an update that can
			// never parse
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx = logging.AddMetaToContext(ctx, slog.Int64("updateId", update.UpdateID))

		switch {
		case update.InlineQuery != nil:
			countUpdate(ctx, "inline_query")
			handleInlineQuery(ctx, *update.InlineQuery)
		case update.Message != nil:
			countUpdate(ctx, "message")
			handleMessage(ctx, *update.Message)
		default:
			countUpdate(ctx, "ignored")
			logging.FromContext(ctx).Debug("Ignoring update of unhandled kind")
		}

		w.WriteHeader(http.StatusOK)
	}

	return middleware(handler)
}
