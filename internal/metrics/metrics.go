// Package metrics exposes relay counters and gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/roomrelay/internal/core"
)

const namespace = "roomrelay"

// Collector counts outbound deliveries. It satisfies core.Recorder.
type Collector struct {
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// Source reports live hub sizes.
type Source interface {
	ConnectionCount() int
	ClientCount() int
	RoomCount() int
}

// New registers the delivery counters on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Outbound events accepted by a connection queue.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Outbound events dropped because the connection queue was full or closed.",
		}, []string{"event"}),
	}
	reg.MustRegister(c.delivered, c.dropped)
	return c
}

// Delivered implements core.Recorder.
func (c *Collector) Delivered(kind core.EventKind) {
	c.delivered.WithLabelValues(kind.String()).Inc()
}

// Dropped implements core.Recorder.
func (c *Collector) Dropped(kind core.EventKind) {
	c.dropped.WithLabelValues(kind.String()).Inc()
}

// WatchHub registers gauges that read their value from src at scrape time.
func WatchHub(reg prometheus.Registerer, src Source) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open connections, identified or not.",
		}, func() float64 { return float64(src.ConnectionCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Identified connections.",
		}, func() float64 { return float64(src.ClientCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}, func() float64 { return float64(src.RoomCount()) }),
	)
}

// Handler exposes the metrics gathered by g at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
