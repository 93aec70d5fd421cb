package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BytesReadTotal tracks shuffle bytes read from remote workers.
var BytesReadTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blaze_shuffle_fetch_bytes_read_total",
		Help: "Total shuffle bytes read from remote workers",
	},
	[]string{"shuffle"},
)

// BlocksFetchedTotal tracks partition streams delivered to consumers.
var BlocksFetchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blaze_shuffle_fetch_blocks_total",
		Help: "Total partition streams delivered to consumers",
	},
	[]string{"shuffle"},
)

// FetchFailuresTotal tracks stage-retryable fetch failures raised.
var FetchFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blaze_shuffle_fetch_failures_total",
		Help: "Total stage-retryable fetch failures raised",
	},
	[]string{"shuffle"},
)

// WorkersExcludedTotal tracks worker addresses excluded after connection failures.
var WorkersExcludedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "blaze_shuffle_fetch_workers_excluded_total",
		Help: "Total worker addresses excluded after connection failures",
	},
)

// ReadWaitSeconds tracks time the consumer spent waiting for partition streams.
var ReadWaitSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "blaze_shuffle_fetch_read_wait_seconds",
		Help:    "Time consumers spent waiting for partition streams",
		Buckets: prometheus.DefBuckets,
	},
)

// OpenBatchSeconds tracks batched open-stream round-trip latency.
var OpenBatchSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "blaze_shuffle_fetch_open_batch_seconds",
		Help:    "Batched open-stream round-trip latency",
		Buckets: prometheus.DefBuckets,
	},
)

// MergeTask folds one finished task's counters into the process metrics.
func MergeTask(shuffle string, bytesRead, blocksFetched, readTimeMs int64) {
	BytesReadTotal.WithLabelValues(shuffle).Add(float64(bytesRead))
	BlocksFetchedTotal.WithLabelValues(shuffle).Add(float64(blocksFetched))
	ReadWaitSeconds.Observe(float64(readTimeMs) / 1000.0)
}
