// Package metrics holds the Prometheus instruments for scriptorium.
// All constructors take a Registerer; a nil Registerer yields working but
// unregistered collectors, which is what tests use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds counted by QueryCounter.
const (
	KindSelect = "select"
	KindCreate = "create"
	KindUpdate = "update"
	KindDelete = "delete"
)

// QueryCounter counts store statements by kind.
type QueryCounter struct {
	queries *prometheus.CounterVec
}

// NewQueryCounter creates a counter registered with reg.
func NewQueryCounter(reg prometheus.Registerer) *QueryCounter {
	f := promauto.With(reg)
	return &QueryCounter{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scriptorium_store_queries_total",
			Help: "Store statements executed, by kind",
		}, []string{"kind"}),
	}
}

// Inc counts one statement of the given kind. Safe on a nil receiver.
func (q *QueryCounter) Inc(kind string) {
	if q == nil {
		return
	}
	q.queries.WithLabelValues(kind).Inc()
}

func (q *QueryCounter) Select() { q.Inc(KindSelect) }
func (q *QueryCounter) Create() { q.Inc(KindCreate) }
func (q *QueryCounter) Update() { q.Inc(KindUpdate) }
func (q *QueryCounter) Delete() { q.Inc(KindDelete) }

// Vec exposes the underlying vector for inspection.
func (q *QueryCounter) Vec() *prometheus.CounterVec {
	return q.queries
}

// Reconcile instruments the reconciliation engine.
type Reconcile struct {
	ops      *prometheus.CounterVec
	warnings prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewReconcile creates reconciliation instruments registered with reg.
func NewReconcile(reg prometheus.Registerer) *Reconcile {
	f := promauto.With(reg)
	return &Reconcile{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scriptorium_reconcile_ops_total",
			Help: "Edit script instructions applied, by level and op",
		}, []string{"level", "op"}),
		warnings: f.NewCounter(prometheus.CounterOpts{
			Name: "scriptorium_reconcile_referential_warnings_total",
			Help: "Targets or references left unresolved",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scriptorium_reconcile_duration_seconds",
			Help:    "Reconciliation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"operation"}),
	}
}

// Op counts one applied instruction. Safe on a nil receiver.
func (r *Reconcile) Op(level, op string) {
	if r == nil {
		return
	}
	r.ops.WithLabelValues(level, op).Inc()
}

// Warning counts one referential warning. Safe on a nil receiver.
func (r *Reconcile) Warning() {
	if r == nil {
		return
	}
	r.warnings.Inc()
}

// Observe records the duration of an operation started at start.
func (r *Reconcile) Observe(operation string, start time.Time) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Ops exposes the instruction counter for inspection.
func (r *Reconcile) Ops() *prometheus.CounterVec {
	return r.ops
}
