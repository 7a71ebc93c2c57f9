package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unitctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	unitLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Unit load requests by mode and outcome.",
		},
		[]string{"mode", "success"},
	)
	unitLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unitctl",
			Subsystem: "loader",
			Name:      "load_duration_seconds",
			Help:      "Unit load request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode", "success"},
	)
	unitUnloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "loader",
			Name:      "unloads_total",
			Help:      "Unit unload requests by outcome.",
		},
		[]string{"success"},
	)
	relationMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "relations",
			Name:      "mutations_total",
			Help:      "Relation graph mutations by operation and result.",
		},
		[]string{"op", "result"},
	)
	relationSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "relations",
			Name:      "saves_total",
			Help:      "Relation graph persistence attempts.",
		},
		[]string{"success"},
	)
	syncRemovals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "unitctl",
			Subsystem: "monitor",
			Name:      "pruned_units_total",
			Help:      "Deleted units pruned from the relation graph.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			unitLoads,
			unitLoadDuration,
			unitUnloads,
			relationMutations,
			relationSaves,
			syncRemovals,
		)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordUnitLoad(mode string, duration time.Duration, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	unitLoads.WithLabelValues(mode, successLabel).Inc()
	unitLoadDuration.WithLabelValues(mode, successLabel).Observe(duration.Seconds())
}

func RecordUnitUnload(success bool) {
	RegisterMetrics()
	unitUnloads.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordMutation(op, result string) {
	RegisterMetrics()
	relationMutations.WithLabelValues(op, result).Inc()
}

func RecordSave(success bool) {
	RegisterMetrics()
	relationSaves.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordPrunedUnit() {
	RegisterMetrics()
	syncRemovals.Inc()
}
