package ports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type portsMetricsCollection struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	updateCount     metric.Int64Counter
	answerCount     metric.Int64Counter
}

var metrics portsMetricsCollection

func init() {
	const name = "wikifind/ports"
	meter := otel.Meter(name)

	requestCount, err := meter.Int64Counter(
		"ports/request_count",
		metric.WithDescription("Total number of requests received"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create request count metric: %w", err))
	}

	requestDuration, err := meter.Float64Histogram(
		"ports/request_duration_seconds",
		metric.WithDescription("Processing time for received requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create request duration metric: %w", err))
	}

	updateCount, err := meter.Int64Counter(
		"ports/update_count",
		metric.WithDescription("Webhook updates received by kind"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create update count metric: %w", err))
	}

	answerCount, err := meter.Int64Counter(
		"ports/inline_answer_count",
		metric.WithDescription("Inline query answers by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create inline answer count metric: %w", err))
	}

	metrics = portsMetricsCollection{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		updateCount:     updateCount,
		answerCount:     answerCount,
	}
}

func countUpdate(ctx context.Context, kind string) {
	metrics.updateCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

func countInlineAnswer(ctx context.Context, outcome string) {
	metrics.answerCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func buildMetricsMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			next(w, r)

			attributes := []attribute.KeyValue{
				attribute.String("method", r.Method),
				attribute.String("path", r.URL.Path),
			}

			attributesOption := metric.WithAttributes(attributes...)

			metrics.requestCount.Add(ctx, 1, attributesOption)
			metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), attributesOption)
		}
	}
}
