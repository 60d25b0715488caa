package websocket

import (
	"livechat/internal/database"
	"livechat/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat engine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections prometheus.Gauge
	inbound     *prometheus.CounterVec
	outbound    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	slowClients prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer, registry database.ConnectionRegistry, store database.MessageStore) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livechat_connections_active",
			Help: "Number of open websocket connections.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_inbound_events_total",
			Help: "Decoded client events by event name.",
		}, []string{"event"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_outbound_events_total",
			Help: "Events queued to connections by event name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_dropped_events_total",
			Help: "Client events dropped without effect, by reason.",
		}, []string{"reason"}),
		slowClients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livechat_slow_clients_dropped_total",
			Help: "Connections closed because their outbound queue was full.",
		}),
	}

	reg.MustRegister(
		m.connections,
		m.inbound,
		m.outbound,
		m.dropped,
		m.slowClients,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "livechat_registered_users",
			Help: "Number of connections that registered a username.",
		}, func() float64 { return float64(registry.Count()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "livechat_messages_stored",
			Help: "Number of chat messages held in memory.",
		}, func() float64 { return float64(store.Count()) }),
	)
	return m
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) inboundEvent(name models.EventName) {
	if m != nil {
		m.inbound.WithLabelValues(string(name)).Inc()
	}
}

func (m *Metrics) outboundEvent(name models.EventName) {
	if m != nil {
		m.outbound.WithLabelValues(string(name)).Inc()
	}
}

func (m *Metrics) droppedEvent(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) slowClientDropped() {
	if m != nil {
		m.slowClients.Inc()
	}
}
