package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File outcomes
var (
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmt_files_processed_total",
			Help: "Source files processed, by final status",
		},
		[]string{"status"},
	)

	TiersEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmt_tiers_encoded_total",
			Help: "Tier encodes attempted, by tier and status",
		},
		[]string{"tier", "status"},
	)

	AudioEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmt_audio_entries_total",
			Help: "Audio output entries planned, by kind",
		},
		[]string{"kind"},
	)
)

// Encode timing
var (
	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mmt_encode_duration_seconds",
			Help:    "Wall time of a tier encode in seconds",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 7200, 14400},
		},
		[]string{"tier"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mmt_last_run_timestamp_seconds",
			Help: "Unix time the last source finished processing",
		},
	)
)

// Watch mode
var (
	WatchPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mmt_watch_pending",
			Help: "Files waiting for their size to settle",
		},
	)
)

// RecordTier counts one tier outcome and its duration.
func RecordTier(tier int, status string, elapsed time.Duration) {
	label := strconv.Itoa(tier)
	TiersEncodedTotal.WithLabelValues(label, status).Inc()
	if status == "success" {
		EncodeDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

// RecordFile counts a finished source.
func RecordFile(status string) {
	FilesProcessedTotal.WithLabelValues(status).Inc()
	LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes the default registry to path in the text exposition
// format, replacing the file atomically.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
