// Package metrics holds the bridge's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	readingsIngested *prometheus.CounterVec
	payloadsRejected *prometheus.CounterVec
	configsPublished prometheus.Counter
	publishFailures  prometheus.Counter
	mqttConnected    prometheus.Gauge
	httpRequests     *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, so tests can build as
// many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecosense",
			Name:      "readings_ingested_total",
			Help:      "Readings received from the station and stored.",
		}, []string{"kind"}),
		payloadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecosense",
			Name:      "payloads_rejected_total",
			Help:      "Inbound payloads dropped by reason.",
		}, []string{"reason"}),
		configsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecosense",
			Name:      "thresholds_published_total",
			Help:      "Threshold documents published to the station.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ecosense",
			Name:      "thresholds_publish_failures_total",
			Help:      "Threshold publishes that failed.",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ecosense",
			Name:      "mqtt_connected",
			Help:      "1 while the broker session is up.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecosense",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.readingsIngested,
		m.payloadsRejected,
		m.configsPublished,
		m.publishFailures,
		m.mqttConnected,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ReadingIngested(kind string) { m.readingsIngested.WithLabelValues(kind).Inc() }

func (m *Metrics) PayloadRejected(reason string) { m.payloadsRejected.WithLabelValues(reason).Inc() }

func (m *Metrics) ThresholdsPublished(err error) {
	if err != nil {
		m.publishFailures.Inc()
		return
	}
	m.configsPublished.Inc()
}

func (m *Metrics) SetConnected(up bool) {
	if up {
		m.mqttConnected.Set(1)
		return
	}
	m.mqttConnected.Set(0)
}

func (m *Metrics) HTTPRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
