// Package metrics rescopes the teacher's stat.go process-global broker
// counters (packets/bytes sent and received, uptime, active connections)
// to a per-Client Prometheus collector. A client library must not open its
// own HTTP listener, so unlike stat.go's Httpd(), registration is left to
// the embedding application via Client.Metrics().
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds one Client's counters. The zero value is not usable; use
// New.
type Collector struct {
	PacketsSent     prometheus.Counter
	BytesSent       prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesReceived   prometheus.Counter
	Reconnects      prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// New builds a Collector with a per-client_id constant label, mirroring
// stat.go's metric names (mqtt_received_packets etc.) under a client-scoped
// namespace instead of a process-global one.
func New(clientID string) *Collector {
	labels := prometheus.Labels{"client_id": clientID}
	return &Collector{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mqtt_client_packets_sent_total",
			Help:        "MQTT control packets written to the wire.",
			ConstLabels: labels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mqtt_client_bytes_sent_total",
			Help:        "Bytes written to the wire.",
			ConstLabels: labels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mqtt_client_packets_received_total",
			Help:        "MQTT control packets read from the wire.",
			ConstLabels: labels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mqtt_client_bytes_received_total",
			Help:        "Bytes read from the wire.",
			ConstLabels: labels,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mqtt_client_reconnects_total",
			Help:        "Times the session coordinator re-established the connection.",
			ConstLabels: labels,
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mqtt_client_active_session",
			Help:        "1 while connected, 0 otherwise.",
			ConstLabels: labels,
		}),
	}
}

// Collectors returns the set for bulk registration with an
// application-owned prometheus.Registerer.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.PacketsSent, c.BytesSent, c.PacketsReceived, c.BytesReceived, c.Reconnects, c.ActiveSessions}
}
