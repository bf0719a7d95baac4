package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MessagesIngested  = "twin_messages_ingested_total"
	MessagesMalformed = "twin_messages_malformed_total"
	AnomalyEvents     = "twin_anomaly_events_total"
	StreamReconnects  = "twin_stream_reconnects_total"
	StreamConnected   = "twin_stream_connected"
	HeatmapBuckets    = "twin_heatmap_buckets"
	RendererClients   = "twin_ws_clients"
	FoldLatency       = "twin_fold_latency_seconds"
	ControlRequests   = "twin_control_requests_total"
)

// Metrics holds the console's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	control  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MessagesIngested,
		Help: "Telemetry messages folded into the view models.",
	})
	malformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MessagesMalformed,
		Help: "Telemetry messages skipped because they could not be decoded.",
	})
	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: AnomalyEvents,
		Help: "Anomaly events created on attack onset.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: StreamReconnects,
		Help: "Stream reconnect attempts after a dropped or failed connection.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: StreamConnected,
		Help: "1 while the backend stream is connected.",
	})
	buckets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: HeatmapBuckets,
		Help: "Distinct heatmap time buckets currently retained.",
	})
	clients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: RendererClients,
		Help: "Connected renderer WebSocket clients.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    FoldLatency,
		Help:    "Time spent folding one message into the view models.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
	})
	control := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ControlRequests,
		Help: "Playback control requests sent to the backend.",
	}, []string{"command", "result"})

	reg.MustRegister(ingested, malformed, events, reconnects, connected, buckets, clients, latency, control)

	return &Metrics{
		counters: map[string]prometheus.Counter{
			MessagesIngested:  ingested,
			MessagesMalformed: malformed,
			AnomalyEvents:     events,
			StreamReconnects:  reconnects,
		},
		gauges: map[string]prometheus.Gauge{
			StreamConnected: connected,
			HeatmapBuckets:  buckets,
			RendererClients: clients,
		},
		histos: map[string]prometheus.Observer{
			FoldLatency: latency,
		},
		control: control,
	}
}

// IncCounter adds v to the named counter.
func (m *Metrics) IncCounter(name string, v float64) {
	if m == nil {
		return
	}
	if c, ok := m.counters[name]; ok {
		c.Add(v)
	}
}

// SetGauge sets the named gauge.
func (m *Metrics) SetGauge(name string, v float64) {
	if m == nil {
		return
	}
	if g, ok := m.gauges[name]; ok {
		g.Set(v)
	}
}

// ObserveLatency records seconds on the named histogram.
func (m *Metrics) ObserveLatency(name string, seconds float64) {
	if m == nil {
		return
	}
	if h, ok := m.histos[name]; ok {
		h.Observe(seconds)
	}
}

// ControlRequest counts one control command outcome ("ok" or "error").
func (m *Metrics) ControlRequest(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.control.WithLabelValues(command, result).Inc()
}
