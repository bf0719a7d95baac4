package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IncCounter(MessagesIngested, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.counters[MessagesIngested]))

	m.IncCounter(MessagesMalformed, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.counters[MessagesMalformed]))

	m.SetGauge(HeatmapBuckets, 19)
	assert.Equal(t, 19.0, testutil.ToFloat64(m.gauges[HeatmapBuckets]))

	m.ObserveLatency(FoldLatency, 0.0002)
	h := m.histos[FoldLatency].(prometheus.Collector)
	assert.Equal(t, 1, testutil.CollectAndCount(h))

	m.ControlRequest("play", nil)
	m.ControlRequest("play", errors.New("boom"))
	m.ControlRequest("play", nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.control.WithLabelValues("play", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.control.WithLabelValues("play", "error")))

	// unknown names are ignored
	m.IncCounter("nope", 1)
	m.SetGauge("nope", 1)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCounter(MessagesIngested, 1)
		m.SetGauge(StreamConnected, 1)
		m.ObserveLatency(FoldLatency, 1)
		m.ControlRequest("pause", nil)
	})
}
