package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal          metric.Int64Counter
	HTTPRequestDuration        metric.Float64Histogram
	AuthRequestsTotal          metric.Int64Counter
	SearchRequestsTotal        metric.Int64Counter
	SearchCacheHitsTotal       metric.Int64Counter
	SearchCacheMissesTotal     metric.Int64Counter
	AggregateRecomputesTotal   metric.Int64Counter
	AggregateRecomputeDuration metric.Float64Histogram
	ReportsAutoClosedTotal     metric.Int64Counter
	DBQueryDurationSeconds     metric.Float64Histogram
	DBQueryErrorsTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments only once.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("looquest")
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

		m.AuthRequestsTotal, err = meter.Int64Counter(
			"auth_requests_total",
			metric.WithDescription("Total number of authentication requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_requests_total: %v", err)
		}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"search_requests_total",
			metric.WithDescription("Total number of proximity search requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_requests_total: %v", err)
		}

		m.SearchCacheHitsTotal, err = meter.Int64Counter(
			"search_cache_hits_total",
			metric.WithDescription("Proximity search responses served from cache"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_cache_hits_total: %v", err)
		}

		m.SearchCacheMissesTotal, err = meter.Int64Counter(
			"search_cache_misses_total",
			metric.WithDescription("Proximity search responses computed from the store"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create search_cache_misses_total: %v", err)
		}

		m.AggregateRecomputesTotal, err = meter.Int64Counter(
			"aggregate_recomputes_total",
			metric.WithDescription("Total number of restroom rating aggregate recomputations"),
			metric.WithUnit("{recompute}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create aggregate_recomputes_total: %v", err)
		}

		m.AggregateRecomputeDuration, err = meter.Float64Histogram(
			"aggregate_recompute_duration_seconds",
			metric.WithDescription("Duration of restroom rating aggregate recomputations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create aggregate_recompute_duration_seconds: %v", err)
		}

		m.ReportsAutoClosedTotal, err = meter.Int64Counter(
			"reports_auto_closed_total",
			metric.WithDescription("Restrooms auto-closed by report threshold"),
			metric.WithUnit("{restroom}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reports_auto_closed_total: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
