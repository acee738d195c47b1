// Package metrics exposes line supervisor counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "line_"

	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"

	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors of one process. Construct it once and share it.
type Metrics struct {
	registry *prometheus.Registry

	equipmentEvents *prometheus.CounterVec
	broadcasts      *prometheus.CounterVec
	dropped         prometheus.Counter
	clients         prometheus.Gauge
	commands        *prometheus.CounterVec
	production      prometheus.Gauge
}

// New registers all collectors on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		equipmentEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "equipment_events_total",
				Help: "Equipment events by result",
			},
			[]string{"result"},
		),
		broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcast_messages_total",
				Help: "Room broadcasts by room kind",
			},
			[]string{"room_kind"},
		),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "dropped_messages_total",
			Help: "Messages discarded from full client queues",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "connected_clients",
			Help: "Currently connected websocket clients",
		}),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Operator commands by action and result",
			},
			[]string{"action", "result"},
		),
		production: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "production_count",
			Help: "Units completed in the current run",
		}),
	}
	m.registry.MustRegister(
		m.equipmentEvents,
		m.broadcasts,
		m.dropped,
		m.clients,
		m.commands,
		m.production,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) EquipmentEvent(result string) {
	m.equipmentEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) Broadcast(roomKind string) {
	m.broadcasts.WithLabelValues(roomKind).Inc()
}

func (m *Metrics) Dropped() { m.dropped.Inc() }

func (m *Metrics) Clients(n int) { m.clients.Set(float64(n)) }

func (m *Metrics) Command(action, result string) {
	m.commands.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Production(current int) { m.production.Set(float64(current)) }
