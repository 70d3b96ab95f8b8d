package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ShareOp("create", "ok")
	m.ShareOp("create", "ok")
	m.ShareOp("resolve", "expired")
	m.SharesReaped(3)
	m.SharesReaped(0)
	m.Request("share.create", 201)
	m.Request("share.resolve", 410)
	m.ParseDone("ok", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.shareOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shareOps.WithLabelValues("resolve", "expired")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sharesReaped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("share.resolve", "4xx")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ShareOp("create", "ok")
	m.SharesReaped(1)
	m.Commit("ok")
	m.ParseDone("ok", time.Second)
	m.JobDone("completed")
	m.Request("x", 200)
}
