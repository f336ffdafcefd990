package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the relay's Prometheus instrumentation.
type metrics struct {
	registry *prometheus.Registry

	clients    prometheus.Gauge
	rooms      prometheus.Gauge
	messages   *prometheus.CounterVec
	voiceDrops prometheus.Counter
	kills      prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.clients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_clients",
		Help: "Number of currently connected clients.",
	})
	m.rooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rooms",
		Help: "Number of active rooms.",
	})
	m.messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_total",
		Help: "Messages processed, by kind.",
	}, []string{"kind"})
	m.voiceDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_voice_drops_total",
		Help: "Voice signals dropped because the target was gone.",
	})
	m.kills = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_kills_total",
		Help: "Kills resolved by the relay.",
	})

	m.registry.MustRegister(m.clients, m.rooms, m.messages, m.voiceDrops, m.kills)
	return m
}
