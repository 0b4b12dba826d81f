package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	HTTPRequestsTotal    metric.Int64Counter
	HTTPRequestDuration  metric.Float64Histogram
	TurnsTotal           metric.Int64Counter
	TurnDuration         metric.Float64Histogram
	OrdersPersistedTotal metric.Int64Counter
	TTSAbortsTotal       metric.Int64Counter
	ActiveSessionsGauge  metric.Int64Gauge
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() { // Ensure this only runs once
		meter := otel.GetMeterProvider().Meter("go-voice-orders") // Get meter from global provider
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.TurnsTotal, err = meter.Int64Counter(
			"assistant_turns_total",
			metric.WithDescription("Total number of conversation turns processed"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create assistant_turns_total: %v", err)
		}

		m.TurnDuration, err = meter.Float64Histogram(
			"assistant_turn_duration_seconds",
			metric.WithDescription("End-to-end duration of a conversation turn in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create assistant_turn_duration_seconds: %v", err)
		}

		m.OrdersPersistedTotal, err = meter.Int64Counter(
			"orders_persisted_total",
			metric.WithDescription("Total number of confirmed orders written to storage"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create orders_persisted_total: %v", err)
		}

		m.TTSAbortsTotal, err = meter.Int64Counter(
			"tts_aborts_total",
			metric.WithDescription("Total number of TTS streams cancelled by barge-in"),
			metric.WithUnit("{abort}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create tts_aborts_total: %v", err)
		}

		m.ActiveSessionsGauge, err = meter.Int64Gauge(
			"active_sessions_current",
			metric.WithDescription("Current number of sessions held in memory"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create active_sessions_current: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
