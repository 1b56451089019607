// Package observability exposes Prometheus metrics for the HTTP surface and
// for stock commits.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"inventory-ledger/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics. It implements
// stock.Observer.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stockUnits      *prometheus.CounterVec
	stockRejections *prometheus.CounterVec
}

// NewMetrics creates a registry with the HTTP and stock metrics registered
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_units_total",
		Help: "Stock units moved by committed changes, by reason and direction.",
	}, []string{"reason", "direction"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_rejections_total",
		Help: "Stock changes rejected for insufficient stock, by reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, units, rejections)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stockUnits:      units,
		stockRejections: rejections,
	}
}

// Handler serves the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StockCommitted counts the units moved by one journal row
func (m *Metrics) StockCommitted(reason domain.MovementReason, delta int) {
	if m == nil || delta == 0 {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
		delta = -delta
	}
	m.stockUnits.WithLabelValues(string(reason), direction).Add(float64(delta))
}

// StockRejected counts a change refused because stock would go negative
func (m *Metrics) StockRejected(reason domain.MovementReason) {
	if m == nil {
		return
	}
	m.stockRejections.WithLabelValues(string(reason)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
