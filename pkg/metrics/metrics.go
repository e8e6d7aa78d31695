// Package metrics exposes responder counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "dcp"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Responder holds the metrics of one DCP responder.
type Responder struct {
	FramesReceived   *prometheus.CounterVec // labels: service
	FramesSent       *prometheus.CounterVec // labels: kind=response|deferred|hello
	FramesDropped    *prometheus.CounterVec // labels: reason
	SendErrors       prometheus.Counter
	SetBlocks        *prometheus.CounterVec // labels: result
	SignalsStarted   prometheus.Counter
	PendingResponses prometheus.Gauge
}

// NewResponder creates the responder metrics and registers them on reg.
// A nil reg leaves them unregistered, which is useful in tests.
func NewResponder(reg prometheus.Registerer) *Responder {
	m := &Responder{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_received_total",
			Help:      "DCP frames received, by service.",
		}, []string{"service"}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_sent_total",
			Help:      "DCP frames sent, by kind.",
		}, []string{"kind"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Received DCP frames that were not answered, by reason.",
		}, []string{"reason"}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_errors_total",
			Help:      "Frames the transport failed to send.",
		}),
		SetBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "set_blocks_total",
			Help:      "Set request blocks, by block error code.",
		}, []string{"result"}),
		SignalsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signals_started_total",
			Help:      "Flash sequences started by Signal requests.",
		}),
		PendingResponses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_responses",
			Help:      "Responses waiting for their send time.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesReceived, m.FramesSent, m.FramesDropped, m.SendErrors,
			m.SetBlocks, m.SignalsStarted, m.PendingResponses)
	}
	return m
}
