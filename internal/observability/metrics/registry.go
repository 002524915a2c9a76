// Package metrics provides centralized Prometheus metrics for the link
// tagging pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch metrics track whole tagging batches.
var (
	// BatchesTotal counts completed tagging batches by result
	// ("ok" when every candidate resolved, "partial" otherwise, "aborted"
	// for configuration errors).
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktagger_batches_total",
			Help: "Total number of tagging batches by result",
		},
		[]string{"result"},
	)

	// CandidatesTotal counts resolved candidates by outcome
	// ("tagged" or "failed").
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktagger_candidates_total",
			Help: "Total number of candidate URLs by resolution outcome",
		},
		[]string{"outcome"},
	)
)

// Fetch metrics track the direct fetch pipeline.
var (
	// FetchAttemptsTotal counts fetch attempts by result
	// ("ok", "http_error", "network_error", "invalid_url").
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktagger_fetch_attempts_total",
			Help: "Total number of direct fetch attempts by result",
		},
		[]string{"result"},
	)

	// FetchDuration measures direct fetch duration in seconds.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linktagger_fetch_duration_seconds",
			Help:    "Direct fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RedirectCacheLookupsTotal counts redirect cache lookups by result
	// ("hit" or "miss").
	RedirectCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktagger_redirect_cache_lookups_total",
			Help: "Total number of redirect cache lookups",
		},
		[]string{"result"},
	)

	// RedirectCacheSize tracks the current number of cached redirect
	// mappings.
	RedirectCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linktagger_redirect_cache_size",
			Help: "Current number of entries in the redirect cache",
		},
	)
)

// Fallback metrics track the alternate content providers.
var (
	// FallbackAttemptsTotal counts fallback provider attempts by provider
	// name and result ("ok", "rate_limited", "error").
	FallbackAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linktagger_fallback_attempts_total",
			Help: "Total number of fallback provider attempts",
		},
		[]string{"provider", "result"},
	)
)
