// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus_market"

type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	OrderTransitions *prometheus.CounterVec
	Checkouts        *prometheus.CounterVec
	ChatMessages     prometheus.Counter
	WSConnections    prometheus.Gauge
}

// New registers every collector on a private registry so tests can build
// as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions by target status and outcome.",
		}, []string{"status", "outcome"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "checkouts_total",
			Help:      "Checkouts by outcome (created, replayed, failed).",
		}, []string{"outcome"}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages persisted.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.OrderTransitions,
		m.Checkouts,
		m.ChatMessages,
		m.WSConnections,
	)
	return m
}

// ObserveTransition records an order transition attempt. Safe on a nil receiver.
func (m *Metrics) ObserveTransition(status string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OrderTransitions.WithLabelValues(status, outcome).Inc()
}

// ObserveCheckout records a checkout outcome. Safe on a nil receiver.
func (m *Metrics) ObserveCheckout(outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
}

// ObserveChatMessage counts a persisted chat message. Safe on a nil receiver.
func (m *Metrics) ObserveChatMessage() {
	if m == nil {
		return
	}
	m.ChatMessages.Inc()
}

// ConnectionOpened and ConnectionClosed track websocket clients. Safe on a nil receiver.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.WSConnections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.WSConnections.Dec()
	}
}

// Middleware records request count and latency keyed by route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		} else if err != nil {
			code = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		m.HTTPRequests.WithLabelValues(route, c.Method(), strconv.Itoa(code)).Inc()
		m.HTTPDuration.WithLabelValues(route, c.Method()).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
