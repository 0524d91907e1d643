package metrics

import (
	"net/http"
	"strconv"
	"time"

	"checkin-app-go/internal/domain/roster"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkin"

// Metrics owns a private registry and implements the sessions and roster
// metrics hooks.
type Metrics struct {
	registry        *prometheus.Registry
	sessionsOpened  *prometheus.CounterVec
	sessionsClosed  *prometheus.CounterVec
	openConflicts   *prometheus.CounterVec
	checkIns        *prometheus.CounterVec
	invalidCodes    prometheus.Counter
	pickups         *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Check-in sessions opened.",
		}, []string{"program"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Check-in sessions closed.",
		}, []string{"program"}),
		openConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_open_conflicts_total",
			Help:      "Open attempts rejected because the program already had an active session.",
		}, []string{"program"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Roster entries recorded.",
		}, []string{"program", "type"}),
		invalidCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_codes_total",
			Help:      "Check-in attempts with a wrong or closed session code.",
		}),
		pickups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickups_total",
			Help:      "Pickup verifications by outcome.",
		}, []string{"program", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsOpened,
		m.sessionsClosed,
		m.openConflicts,
		m.checkIns,
		m.invalidCodes,
		m.pickups,
		m.requests,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) SessionOpened(program string) {
	m.sessionsOpened.WithLabelValues(program).Inc()
}

func (m *Metrics) SessionClosed(program string) {
	m.sessionsClosed.WithLabelValues(program).Inc()
}

func (m *Metrics) OpenConflict(program string) {
	m.openConflicts.WithLabelValues(program).Inc()
}

func (m *Metrics) CheckedIn(program string, entryType roster.EntryType) {
	m.checkIns.WithLabelValues(program, string(entryType)).Inc()
}

func (m *Metrics) InvalidCode() {
	m.invalidCodes.Inc()
}

func (m *Metrics) PickupVerified(program string) {
	m.pickups.WithLabelValues(program, "verified").Inc()
}

func (m *Metrics) PickupRejected(program string) {
	m.pickups.WithLabelValues(program, "rejected").Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
