package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/onemorerev/client/internal/api"

// RequestStat describes one finished backend call.
type RequestStat struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Observer receives a RequestStat for every call the client makes.
type Observer interface {
	ObserveRequest(stat RequestStat)
}

type metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// newMetrics uses the global OTel meter (no-op unless a provider is installed).
func newMetrics() *metrics {
	m := otel.Meter(instrumentationName)

	requests, err := m.Int64Counter(
		"omr.api.requests",
		metric.WithDescription("Backend requests by method, path and status"),
	)
	if err != nil {
		requests, _ = noop.Meter{}.Int64Counter("omr.api.requests")
	}

	duration, err := m.Float64Histogram(
		"omr.api.duration",
		metric.WithDescription("Backend request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		duration, _ = noop.Meter{}.Float64Histogram("omr.api.duration")
	}

	return &metrics{requests: requests, duration: duration}
}

func (m *metrics) record(ctx context.Context, stat RequestStat) {
	attrs := metric.WithAttributes(
		attribute.String("method", stat.Method),
		attribute.String("path", stat.Path),
		attribute.Int("status", stat.Status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(stat.Duration.Microseconds())/1000, attrs)
}
