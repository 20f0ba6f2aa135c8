package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the dashboard process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	refreshRuns     *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	pushMessages    *prometheus.CounterVec
	linkState       *prometheus.GaugeVec
	reconnects      prometheus.Counter
}

var linkStates = []string{"connecting", "open", "closed"}

// NewMetrics initialises the registry with HTTP and dashboard collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salespulse_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salespulse_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	refreshRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salespulse_refresh_total",
		Help: "Snapshot refresh cycles by outcome.",
	}, []string{"status"})
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salespulse_refresh_duration_seconds",
		Help:    "Duration of snapshot refresh cycles.",
		Buckets: prometheus.DefBuckets,
	})
	pushMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salespulse_push_messages_total",
		Help: "Push messages received by kind.",
	}, []string{"kind"})
	linkState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salespulse_push_link_state",
		Help: "1 for the current push link state, 0 otherwise.",
	}, []string{"state"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salespulse_push_reconnects_total",
		Help: "Successful push reconnections after a dropped stream.",
	})
	registry.MustRegister(requests, duration, refreshRuns, refreshDuration, pushMessages, linkState, reconnects)
	for _, s := range linkStates {
		linkState.WithLabelValues(s).Set(0)
	}
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		refreshRuns:     refreshRuns,
		refreshDuration: refreshDuration,
		pushMessages:    pushMessages,
		linkState:       linkState,
		reconnects:      reconnects,
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request counts and latency per chi route pattern.
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

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the wrapped writer so websocket upgrades keep working.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observability: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
