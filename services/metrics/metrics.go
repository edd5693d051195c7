package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tablescout/reviewworker/logger"
)

var (
	// FetchAttempts counts overview fetch attempts by outcome
	// (ok|soft_miss|transient|blocked).
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "fetch_attempts_total", Help: "Overview fetch attempts by outcome."},
		[]string{"outcome"},
	)

	// ReviewPagesFetched counts paginated review pages fetched
	ReviewPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "review_pages_fetched_total", Help: "Paginated review pages fetched."},
	)

	// FallbackInvocations counts secondary-provider calls by result (ok|error)
	FallbackInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "fallback_invocations_total", Help: "Secondary provider invocations by result."},
		[]string{"result"},
	)

	// RecordsPublished counts location records handed to a sink
	RecordsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "records_published_total", Help: "Location records published by sink."},
		[]string{"sink"},
	)

	// ScrapeDuration observes how long one full location scrape takes
	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reviewworker", Name: "scrape_duration_seconds",
			Help:    "Full location scrape duration seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Serve exposes /metrics on addr. Empty addr disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		logger.Info("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed: %v", err)
		}
	}()
}
