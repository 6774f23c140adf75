package search

import "github.com/WessleyAI/tourvec/pkg/metrics"

// Metrics are the service's instruments.
type Metrics struct {
	Queries  *metrics.Counter
	Failures *metrics.Counter
	Renamed  *metrics.Counter
	Latency  *metrics.Histogram
}

// NewMetrics registers the service instruments on r.
func NewMetrics(r *metrics.Registry) *Metrics {
	return &Metrics{
		Queries:  r.Counter("tourvec_search_queries_total", "Similarity queries issued."),
		Failures: r.Counter("tourvec_search_failures_total", "Queries that failed in the store or embedding provider."),
		Renamed:  r.Counter("tourvec_records_renamed_total", "Records whose display_name was set by a rename."),
		Latency:  r.Histogram("tourvec_search_duration_seconds", "Query latency.", metrics.DefaultBuckets),
	}
}
