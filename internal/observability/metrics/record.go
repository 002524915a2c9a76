package metrics

import "time"

// RecordBatch records the outcome of a whole tagging batch.
func RecordBatch(tagged, failed int) {
	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	BatchesTotal.WithLabelValues(result).Inc()
	CandidatesTotal.WithLabelValues("tagged").Add(float64(tagged))
	CandidatesTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordBatchAborted records a batch aborted by a configuration error
// before any candidate was resolved.
func RecordBatchAborted() {
	BatchesTotal.WithLabelValues("aborted").Inc()
}

// RecordFetch records a direct fetch attempt.
// Result should be one of "ok", "http_error", "network_error",
// "invalid_url".
func RecordFetch(result string, duration time.Duration) {
	FetchAttemptsTotal.WithLabelValues(result).Inc()
	FetchDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a redirect cache lookup.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	RedirectCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordFallback records one fallback provider attempt.
// Result should be one of "ok", "rate_limited", "error".
func RecordFallback(provider, result string) {
	FallbackAttemptsTotal.WithLabelValues(provider, result).Inc()
}
