package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := NewQueryCounter(reg)

	q.Select()
	q.Select()
	q.Create()
	q.Delete()

	assert.Equal(t, 2.0, testutil.ToFloat64(q.Vec().WithLabelValues(KindSelect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.Vec().WithLabelValues(KindCreate)))
	assert.Equal(t, 0.0, testutil.ToFloat64(q.Vec().WithLabelValues(KindUpdate)))

	n, err := testutil.GatherAndCount(reg, "scriptorium_store_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNilReceiversAreSafe(t *testing.T) {
	var q *QueryCounter
	var r *Reconcile
	assert.NotPanics(t, func() {
		q.Select()
		r.Op("element", "KEEP")
		r.Warning()
	})
}

func TestReconcileOps(t *testing.T) {
	r := NewReconcile(nil)
	r.Op("item", "INSERT")
	r.Op("item", "INSERT")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Ops().WithLabelValues("item", "INSERT")))
}
