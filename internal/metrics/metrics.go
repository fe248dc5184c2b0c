package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values shared by the counters below.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	// StatusCached marks a playlist served from the manifest cache.
	StatusCached = "cached"
)

// Download pipeline metrics
var (
	PlaylistFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_playlist_fetches_total",
			Help: "Total number of playlist fetches, including cache hits.",
		},
		[]string{"status"},
	)

	SegmentsDownloadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_segments_downloaded_total",
			Help: "Total number of segment downloads.",
		},
		[]string{"status"},
	)

	SegmentBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hls_segment_bytes_total",
			Help: "Total number of segment bytes written to disk.",
		},
	)

	InflightSegments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hls_inflight_segments",
			Help: "Number of segment downloads currently in progress.",
		},
	)

	MergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_merges_total",
			Help: "Total number of segment merges.",
		},
		[]string{"status"},
	)

	MergeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hls_merge_duration_seconds",
			Help:    "Time spent concatenating segments into the output file.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	EpisodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hls_episodes_total",
			Help: "Total number of processed episodes.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		PlaylistFetchesTotal,
		SegmentsDownloadedTotal,
		SegmentBytesTotal,
		InflightSegments,
		MergesTotal,
		MergeDuration,
		EpisodesTotal,
	)
}

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
