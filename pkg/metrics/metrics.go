// Package metrics exposes prometheus collectors for store operations.
package metrics

import (
	"errors"
	"time"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "berrydb"

// Results used for the "result" label.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Store holds the collectors of one or more store handles. A nil *Store is
// valid and records nothing.
type Store struct {
	Operations    *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	BatchOps      prometheus.Histogram
	OpenHandles   prometheus.Gauge
	OpenIterators prometheus.Gauge
}

// NewStore creates the collectors and registers them with reg when reg is
// not nil.
func NewStore(reg prometheus.Registerer) *Store {
	m := &Store{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store operations by operation and result.",
		}, []string{"op", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		BatchOps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_operations",
			Help:      "Number of operations per committed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		OpenHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_handles",
			Help:      "Number of open store handles.",
		}),
		OpenIterators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_iterators",
			Help:      "Number of iterators not yet released.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration, m.BatchOps, m.OpenHandles, m.OpenIterators)
	}
	return m
}

// Observe records one finished operation.
func (m *Store) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result(err)).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Store) ObserveBatch(ops int) {
	if m == nil {
		return
	}
	m.BatchOps.Observe(float64(ops))
}

func (m *Store) HandleOpened() {
	if m != nil {
		m.OpenHandles.Inc()
	}
}

func (m *Store) HandleClosed() {
	if m != nil {
		m.OpenHandles.Dec()
	}
}

func (m *Store) IteratorOpened() {
	if m != nil {
		m.OpenIterators.Inc()
	}
}

func (m *Store) IteratorReleased() {
	if m != nil {
		m.OpenIterators.Dec()
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, db.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}
