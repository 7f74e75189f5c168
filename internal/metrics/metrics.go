package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zoo_retail"

// CheckoutMetrics is nil-safe so services can run without a registry.
type CheckoutMetrics struct {
	Checkouts  *prometheus.CounterVec
	DurationMS prometheus.Histogram
	Decrements *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	decrements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_decrements_total",
		Help:      "Per-line stock decrements by result.",
	}, []string{"result"})

	reg.MustRegister(checkouts, duration, decrements)
	return &CheckoutMetrics{Checkouts: checkouts, DurationMS: duration, Decrements: decrements}
}

func (m *CheckoutMetrics) ObserveCheckout(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
	m.DurationMS.Observe(float64(elapsed.Milliseconds()))
}

func (m *CheckoutMetrics) ObserveDecrement(result string) {
	if m == nil {
		return
	}
	m.Decrements.WithLabelValues(result).Inc()
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, server string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: server,
		Name:      "requests_total",
		Help:      "Total number of requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: server,
		Name:      "request_duration_ms",
		Help:      "Request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func (m *ServerMetrics) Observe(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
