package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's prometheus collectors. One instance per process,
// registered on its own registry so tests can create throwaway copies.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
	ToolDispatches     *prometheus.CounterVec
	AudioFramesDropped prometheus.Counter
	UpstreamEvents     *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of voice sessions currently open.",
	})
	m.SessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Session lifecycle transitions by event.",
	}, []string{"event"})
	m.WSMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_messages_total",
		Help:      "Client websocket messages by direction and type.",
	}, []string{"direction", "type"})
	m.ToolDispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_dispatches_total",
		Help:      "Function call dispatches by tool and outcome.",
	}, []string{"tool", "outcome"})
	m.AudioFramesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_frames_dropped_total",
		Help:      "Inbound audio frames dropped because the session was muted or not active.",
	})
	m.UpstreamEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_events_total",
		Help:      "Events received from the upstream voice service by kind.",
	}, []string{"kind"})

	m.registry.MustRegister(
		m.ActiveSessions,
		m.SessionEvents,
		m.WSMessages,
		m.ToolDispatches,
		m.AudioFramesDropped,
		m.UpstreamEvents,
	)

	return m
}

// Handler serves the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
