// Package metrics holds the Prometheus collectors for studyhub on a private
// registry served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	MagicLinksSentTotal  prometheus.Counter
	SignInsTotal         *prometheus.CounterVec
	RateLimitRejections  *prometheus.CounterVec
	AccessDecisionsTotal *prometheus.CounterVec
	CompletionsTotal     *prometheus.CounterVec
	PassageLookupsTotal  *prometheus.CounterVec

	ServerStartTime prometheus.Gauge
}

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		MagicLinksSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyhub_magic_links_sent_total",
			Help: "Total number of sign-in links mailed.",
		}),

		SignInsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_sign_ins_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"method", "outcome"}),

		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_ratelimit_rejections_total",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"scope"}),

		AccessDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_access_decisions_total",
			Help: "Access requests decided, by verdict.",
		}, []string{"decision"}),

		CompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_completions_total",
			Help: "Completion toggles by kind and direction.",
		}, []string{"kind", "completed"}),

		PassageLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_passage_lookups_total",
			Help: "Bible text lookups by outcome.",
		}, []string{"outcome"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studyhub_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MagicLinksSentTotal,
		m.SignInsTotal,
		m.RateLimitRejections,
		m.AccessDecisionsTotal,
		m.CompletionsTotal,
		m.PassageLookupsTotal,
		m.ServerStartTime,
	)
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per chi route pattern. Patterns keep
// label cardinality bounded; unmatched requests are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// The helpers below are nil-safe so handlers can run without metrics in tests.

func (m *Metrics) IncMagicLinkSent() {
	if m != nil {
		m.MagicLinksSentTotal.Inc()
	}
}

func (m *Metrics) IncSignIn(method, outcome string) {
	if m != nil {
		m.SignInsTotal.WithLabelValues(method, outcome).Inc()
	}
}

func (m *Metrics) IncRateLimitRejection(scope string) {
	if m != nil {
		m.RateLimitRejections.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) IncAccessDecision(decision string) {
	if m != nil {
		m.AccessDecisionsTotal.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) IncCompletion(kind string, completed bool) {
	if m != nil {
		m.CompletionsTotal.WithLabelValues(kind, strconv.FormatBool(completed)).Inc()
	}
}

func (m *Metrics) IncPassageLookup(outcome string) {
	if m != nil {
		m.PassageLookupsTotal.WithLabelValues(outcome).Inc()
	}
}
