// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "familycart"

// Invite rejection reasons
const (
	ReasonInvalidToken  = "invalid_or_expired"
	ReasonEmailMismatch = "email_mismatch"
	ReasonHasFamily     = "already_in_family"
)

// Metrics holds the application's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	invitesIssued   prometheus.Counter
	invitesAccepted prometheus.Counter
	invitesRejected *prometheus.CounterVec
	invitesPurged   prometheus.Counter
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invitesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_issued_total",
			Help:      "Invites created.",
		}),
		invitesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_accepted_total",
			Help:      "Invites redeemed.",
		}),
		invitesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_rejected_total",
			Help:      "Invite redemptions refused, by reason.",
		}, []string{"reason"}),
		invitesPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_purged_total",
			Help:      "Expired invites deleted by the cleanup job.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) InviteIssued() {
	if m != nil {
		m.invitesIssued.Inc()
	}
}

func (m *Metrics) InviteAccepted() {
	if m != nil {
		m.invitesAccepted.Inc()
	}
}

func (m *Metrics) InviteRejected(reason string) {
	if m != nil {
		m.invitesRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) InvitesPurged(n int64) {
	if m != nil && n > 0 {
		m.invitesPurged.Add(float64(n))
	}
}
