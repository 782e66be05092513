/*
Package metrics exposes engine metrics to Prometheus.

METRICS (namespace "caseload" by default):
  operations_total{trigger,result}         trigger calls, result=success|failure
  operation_duration_seconds{trigger}      wall time per trigger call
  items_moved_total{trigger}               assignments written per trigger
  history_write_failures_total{action}     best-effort audit appends that failed

USAGE:
  reg := prometheus.NewRegistry()
  rec := metrics.NewPrometheus(reg, "")
  engine, _ := workload.New(store, workload.WithRecorder(rec))
  http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/caseload-engine/workload"
)

// Collector implements workload.Recorder.
type Collector struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	itemsMoved      *prometheus.CounterVec
	historyFailures *prometheus.CounterVec
}

var _ workload.Recorder = (*Collector)(nil)

// NewPrometheus creates and registers the collectors. A nil registerer means
// prometheus.DefaultRegisterer; an empty namespace means "caseload".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "caseload"
	}

	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Trigger invocations by trigger and result.",
		}, []string{"trigger", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of trigger invocations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"trigger"}),
		itemsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "items_moved_total",
			Help:      "Assignments written by trigger.",
		}, []string{"trigger"}),
		historyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "history_write_failures_total",
			Help:      "History entries that could not be appended.",
		}, []string{"action"}),
	}

	reg.MustRegister(c.operations, c.duration, c.itemsMoved, c.historyFailures)
	return c
}

func (c *Collector) RecordOperation(trigger workload.Trigger, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.operations.WithLabelValues(string(trigger), result).Inc()
	c.duration.WithLabelValues(string(trigger)).Observe(elapsed.Seconds())
}

func (c *Collector) RecordItemsMoved(trigger workload.Trigger, n int) {
	if n <= 0 {
		return
	}
	c.itemsMoved.WithLabelValues(string(trigger)).Add(float64(n))
}

func (c *Collector) RecordHistoryFailure(action workload.HistoryAction) {
	c.historyFailures.WithLabelValues(string(action)).Inc()
}
