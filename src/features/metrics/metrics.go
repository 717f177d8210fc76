package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion sources.
const (
	SourceUpload = "upload"
	SourceJSON   = "json"
	SourceURL    = "url"
	SourceWatch  = "watch"
	SourceUpdate = "update"
)

var (
	ingestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3ushelf_ingestions_total",
		Help: "Playlist ingestions by source and outcome",
	}, []string{"source", "outcome"}) // outcome=success|failure

	ingestedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3ushelf_ingested_bytes_total",
		Help: "Bytes of playlist text consumed by source",
	}, []string{"source"})

	entriesCounted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3ushelf_entries_counted_total",
		Help: "Playlist entries counted by source",
	}, []string{"source"})

	contentDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3ushelf_content_not_retained_total",
		Help: "Ingestions whose content exceeded the retention ceiling",
	}, []string{"source"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3ushelf_fetch_failures_total",
		Help: "Remote playlist fetch failures by reason",
	}, []string{"reason"}) // reason=status|transport|too_large|breaker_open
)

// RecordIngestion records a successful ingestion.
func RecordIngestion(source string, size int64, entries int, retained bool) {
	ingestionsTotal.WithLabelValues(source, "success").Inc()
	ingestedBytes.WithLabelValues(source).Add(float64(size))
	entriesCounted.WithLabelValues(source).Add(float64(entries))
	if !retained {
		contentDropped.WithLabelValues(source).Inc()
	}
}

// RecordIngestionFailure records a failed ingestion.
func RecordIngestionFailure(source string) {
	ingestionsTotal.WithLabelValues(source, "failure").Inc()
}

// RecordFetchFailure records a failed remote fetch.
func RecordFetchFailure(reason string) {
	fetchFailures.WithLabelValues(reason).Inc()
}
