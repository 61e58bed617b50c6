// Package metrics exposes storefront activity as Prometheus collectors on a
// private registry: bus traffic, handler outcomes, basket size and value,
// order submissions and shop API latency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/event/dispatch"
	"github.com/dshills/storefront/internal/event/topic"
)

const namespace = "storefront"

// Order submission outcomes.
const (
	OrderSucceeded = "success"
	OrderFailed    = "failed"
	OrderRejected  = "invalid"
)

// Metrics holds the collectors. It implements event.Recorder and
// shopapi.Observer.
type Metrics struct {
	registry *prometheus.Registry

	eventsEmitted   *prometheus.CounterVec
	eventsUnrouted  *prometheus.CounterVec
	handlerRuns     *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec

	basketItems prometheus.Gauge
	basketTotal prometheus.Gauge
	orders      *prometheus.CounterVec

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_emitted_total",
			Help:      "Events emitted, by topic.",
		}, []string{"topic"}),
		eventsUnrouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_unrouted_total",
			Help:      "Events emitted with no matching subscription, by topic.",
		}, []string{"topic"}),
		handlerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "handler_runs_total",
			Help:      "Handler invocations, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		}, []string{"topic"}),
		basketItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "basket",
			Name:      "items",
			Help:      "Products currently in the basket.",
		}),
		basketTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "basket",
			Name:      "total_units",
			Help:      "Basket total in price units.",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "submissions_total",
			Help:      "Order submissions, by outcome.",
		}, []string{"outcome"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Shop API requests, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Shop API request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.eventsEmitted, m.eventsUnrouted, m.handlerRuns, m.handlerDuration,
		m.basketItems, m.basketTotal, m.orders,
		m.apiRequests, m.apiLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EventEmitted counts an emit and, when nothing matched, an unrouted event.
func (m *Metrics) EventEmitted(t topic.Topic, handlers int) {
	m.eventsEmitted.WithLabelValues(string(t)).Inc()
	if handlers == 0 {
		m.eventsUnrouted.WithLabelValues(string(t)).Inc()
	}
}

// HandlerCompleted records one handler run.
func (m *Metrics) HandlerCompleted(t topic.Topic, result dispatch.Result) {
	m.handlerRuns.WithLabelValues(string(t), result.Outcome()).Inc()
	if !result.Skipped {
		m.handlerDuration.WithLabelValues(string(t)).Observe(result.Duration.Seconds())
	}
}

// ObserveAPI records one shop API request.
func (m *Metrics) ObserveAPI(operation, outcome string, d time.Duration) {
	m.apiRequests.WithLabelValues(operation, outcome).Inc()
	m.apiLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveBasket sets the basket gauges from a snapshot.
func (m *Metrics) ObserveBasket(b basket.Basket) {
	m.basketItems.Set(float64(b.Len()))
	m.basketTotal.Set(float64(b.Total))
}

// OrderSubmitted counts a submission attempt.
func (m *Metrics) OrderSubmitted(outcome string) {
	m.orders.WithLabelValues(outcome).Inc()
}
