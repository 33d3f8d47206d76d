package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wikifind/wikifind/internal/domain"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	telegramBotToken string
	webhookURL       string
	webhookSecret    string
	sentryDSN        string
	port             string

	defaultLanguage   domain.Language
	cacheCapacity     int
	cacheTTL          time.Duration
	upstreamTimeout   time.Duration
	upstreamAttempts  int
	maxResults        int
	promoteExactTitle bool

	env environment
}

func (c *Config) TelegramBotToken() string {
	return c.telegramBotToken
}

func (c *Config) WebhookURL() string {
	return c.webhookURL
}

func (c *Config) WebhookSecret() string {
	return c.webhookSecret
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) DefaultLanguage() domain.Language {
	return c.defaultLanguage
}

func (c *Config) CacheCapacity() int {
	return c.cacheCapacity
}

func (c *Config) CacheTTL() time.Duration {
	return c.cacheTTL
}

func (c *Config) UpstreamTimeout() time.Duration {
	return c.upstreamTimeout
}

func (c *Config) UpstreamAttempts() int {
	return c.upstreamAttempts
}

func (c *Config) MaxResults() int {
	return c.maxResults
}

func (c *Config) PromoteExactTitle() bool {
	return c.promoteExactTitle
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, defaultLanguage: %s, cacheCapacity: %d, cacheTTL: %s, upstreamTimeout: %s, upstreamAttempts: %d, maxResults: %d, promoteExactTitle: %t, ...}",
		string(c.env),
		c.port,
		c.defaultLanguage.Code(),
		c.cacheCapacity,
		c.cacheTTL,
		c.upstreamTimeout,
		c.upstreamAttempts,
		c.maxResults,
		c.promoteExactTitle,
	)
}

func intFromEnv(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return value, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return value, nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("WIKIFIND_ENVIRONMENT")
	if !ok {
		return missingKey("WIKIFIND_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: WIKIFIND_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	webhookURL := os.Getenv("WEBHOOK_URL")
	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	sentryDSN := os.Getenv("SENTRY_DSN")

	if env == production || env == staging {
		if telegramBotToken == "" {
			return missingKey("TELEGRAM_BOT_TOKEN")
		}
		if webhookURL == "" {
			return missingKey("WEBHOOK_URL")
		}
		if webhookSecret == "" {
			return missingKey("WEBHOOK_SECRET")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return Config{}, fmt.Errorf("%w: PORT (%s)", ErrInvalidValue, port)
	}

	defaultLanguageCode := os.Getenv("DEFAULT_LANGUAGE")
	if defaultLanguageCode == "" {
		defaultLanguageCode = "en"
	}
	defaultLanguage, ok := domain.LanguageFromCode(defaultLanguageCode)
	if !ok {
		return Config{}, fmt.Errorf("%w: DEFAULT_LANGUAGE (%s)", ErrInvalidValue, defaultLanguageCode)
	}

	cacheCapacity, err := intFromEnv("CACHE_CAPACITY", 1000)
	if err != nil {
		return Config{}, err
	}
	if cacheCapacity < 1 {
		return Config{}, fmt.Errorf("%w: CACHE_CAPACITY (%d)", ErrInvalidValue, cacheCapacity)
	}

	cacheTTLSeconds, err := intFromEnv("CACHE_TTL_SECONDS", 300)
	if err != nil {
		return Config{}, err
	}
	if cacheTTLSeconds < 1 {
		return Config{}, fmt.Errorf("%w: CACHE_TTL_SECONDS (%d)", ErrInvalidValue, cacheTTLSeconds)
	}

	upstreamTimeoutSeconds, err := intFromEnv("UPSTREAM_TIMEOUT_SECONDS", 5)
	if err != nil {
		return Config{}, err
	}
	if upstreamTimeoutSeconds < 1 {
		return Config{}, fmt.Errorf("%w: UPSTREAM_TIMEOUT_SECONDS (%d)", ErrInvalidValue, upstreamTimeoutSeconds)
	}

	upstreamAttempts, err := intFromEnv("UPSTREAM_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	if upstreamAttempts < 1 {
		return Config{}, fmt.Errorf("%w: UPSTREAM_ATTEMPTS (%d)", ErrInvalidValue, upstreamAttempts)
	}

	// Telegram rejects inline answers with more than 50 results
	maxResults, err := intFromEnv("MAX_RESULTS", 10)
	if err != nil {
		return Config{}, err
	}
	if maxResults < 1 || maxResults > 50 {
		return Config{}, fmt.Errorf("%w: MAX_RESULTS (%d)", ErrInvalidValue, maxResults)
	}

	promoteExactTitle, err := boolFromEnv("PROMOTE_EXACT_TITLE", false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		telegramBotToken: telegramBotToken,
		webhookURL:       webhookURL,
		webhookSecret:    webhookSecret,
		sentryDSN:        sentryDSN,
		port:             port,

		defaultLanguage:   defaultLanguage,
		cacheCapacity:     cacheCapacity,
		cacheTTL:          time.Duration(cacheTTLSeconds) * time.Second,
		upstreamTimeout:   time.Duration(upstreamTimeoutSeconds) * time.Second,
		upstreamAttempts:  upstreamAttempts,
		maxResults:        maxResults,
		promoteExactTitle: promoteExactTitle,

		env: env,
	}, nil
}
