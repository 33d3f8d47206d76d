package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wikifind/wikifind/internal/config"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const telegramAPIURL = "https://api.telegram.org"

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client makes outbound Telegram Bot API calls.
type Client interface {
	AnswerInlineQuery(ctx context.Context, inlineQueryID string, results []InlineQueryResultArticle, cacheTime time.Duration) error
	SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error
	SetWebhook(ctx context.Context, webhookURL string, secretToken string) error
	DeleteWebhook(ctx context.Context) error
}

type mockedClient struct{}

func (c *mockedClient) AnswerInlineQuery(ctx context.Context, inlineQueryID string, results []InlineQueryResultArticle, cacheTime time.Duration) error {
	logging.FromContext(ctx).Info("Mock bot: answered inline query", "inlineQueryID", inlineQueryID, "results", len(results))
	return nil
}

func (c *mockedClient) SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error {
	logging.FromContext(ctx).Info("Mock bot: sent message", "chatID", chatID, "textLength", len(text))
	return nil
}

func (c *mockedClient) SetWebhook(ctx context.Context, webhookURL string, secretToken string) error {
	logging.FromContext(ctx).Info("Mock bot: registered webhook", "webhookURL", webhookURL)
	return nil
}

func (c *mockedClient) DeleteWebhook(ctx context.Context) error {
	logging.FromContext(ctx).Info("Mock bot: deleted webhook")
	return nil
}

type telegramClient struct {
	httpClient HttpClient
	token      string

	metrics telegramClientMetricsCollection
	tracer  trace.Tracer
}

func NewClient(httpClient HttpClient, token string) (Client, error) {
	const name = "wikifind/botapi/telegram_client"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupTelegramClientMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &telegramClient{
		httpClient: httpClient,
		token:      token,

		metrics: metrics,
		tracer:  tracer,
	}, nil
}

func NewClientOrMock(conf config.Config, httpClient HttpClient) (Client, error) {
	if conf.TelegramBotToken() != "" {
		return NewClient(httpClient, conf.TelegramBotToken())
	}
	if conf.IsDevelopment() {
		return &mockedClient{}, nil
	}
	return nil, fmt.Errorf("Missing Telegram bot token in non-development environment")
}

type answerInlineQueryRequest struct {
	InlineQueryID string                     `json:"inline_query_id"`
	Results       []InlineQueryResultArticle `json:"results"`
	CacheTime     int                        `json:"cache_time"`
	IsPersonal    bool                       `json:"is_personal"`
}

func (c *telegramClient) AnswerInlineQuery(ctx context.Context, inlineQueryID string, results []InlineQueryResultArticle, cacheTime time.Duration) error {
	return c.call(ctx, "answerInlineQuery", answerInlineQueryRequest{
		InlineQueryID: inlineQueryID,
		Results:       results,
		CacheTime:     int(cacheTime.Seconds()),
		IsPersonal:    false,
	})
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (c *telegramClient) SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	})
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

func (c *telegramClient) SetWebhook(ctx context.Context, webhookURL string, secretToken string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            webhookURL,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "inline_query"},
	})
}

type deleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates"`
}

func (c *telegramClient) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", deleteWebhookRequest{
		DropPendingUpdates: false,
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// call POSTs one Bot API method. The bot token is part of the URL, so the URL
// is never logged.
func (c *telegramClient) call(ctx context.Context, method string, payload any) error {
	ctx, span := c.tracer.Start(ctx, "Telegram."+method)
	defer span.End()

	logger := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		err := fmt.Errorf("failed to marshal %s request: %w", method, err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return err
	}

	requestURL := fmt.Sprintf("%s/bot%s/%s", telegramAPIURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		err := fmt.Errorf("failed to create %s request: %w", method, err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("failed to send %s request (%w): %w", method, domain.ErrTemporarilyUnavailable, err)
		logger.Info("telegram request failed", "method", method, "error", err.Error())
		c.countCall(ctx, method, false)
		return err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read %s response body (%w): %w", method, domain.ErrTemporarilyUnavailable, err)
		logger.Info("telegram request failed", "method", method, "error", err.Error())
		c.countCall(ctx, method, false)
		return err
	}

	logger.Info("telegram request completed", "method", method, "status", resp.StatusCode, "duration", time.Since(start).String())

	response := new(apiResponse)
	if err := json.Unmarshal(data, response); err != nil {
		err := fmt.Errorf("failed to parse %s response (%w): %w", method, domain.ErrMalformedResponse, err)
		logger.Warn(err.Error(), "statusCode", resp.StatusCode, "contentLength", len(data))
		reporting.Report(ctx, err, map[string]string{
			"method":     method,
			"statusCode": fmt.Sprint(resp.StatusCode),
		})
		c.countCall(ctx, method, false)
		return err
	}

	if !response.OK {
		err := fmt.Errorf("telegram rejected %s: %d %s", method, response.ErrorCode, response.Description)
		if response.ErrorCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w (%w)", err, domain.ErrUpstreamThrottled)
		}
		logger.Warn(err.Error())
		c.countCall(ctx, method, false)
		return err
	}

	c.countCall(ctx, method, true)
	return nil
}

func (c *telegramClient) countCall(ctx context.Context, method string, ok bool) {
	c.metrics.callCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("ok", ok),
	))
}

type telegramClientMetricsCollection struct {
	callCount metric.Int64Counter
}

func setupTelegramClientMetrics(meter metric.Meter) (telegramClientMetricsCollection, error) {
	callCount, err := meter.Int64Counter("botapi/telegram_client/calls")
	if err != nil {
		return telegramClientMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return telegramClientMetricsCollection{
		callCount: callCount,
	}, nil
}
