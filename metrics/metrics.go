// Package metrics instruments the outgoing HTTP calls of the client with
// Prometheus collectors. Requests are labelled by route template, never by
// raw path, so account and payment method IDs do not explode cardinality.
// Method labels are lowercase, as promhttp writes them.
package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "connect_client"

// UnknownRoute labels requests sent without a route in their context.
const UnknownRoute = "unknown"

// ErrorCode labels requests that failed before a response arrived.
const ErrorCode = "error"

type routeKey struct{}

// WithRoute returns a copy of ctx that carries the route template used to
// label the request.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFromContext returns the route template stored by WithRoute.
func RouteFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return UnknownRoute
}

// Metrics holds the request collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outgoing API requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of outgoing API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(m.requests, m.duration)
	return m
}

// Registry exposes the registry, for tests and for embedding into a larger
// process.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RoundTripper wraps next so every request is counted and timed, labelled
// with the route found in its context. A nil Metrics returns next unchanged.
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	route := promhttp.WithLabelFromCtx("route", RouteFromContext)
	return m.countTransportErrors(
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.duration, next, route),
			route),
	)
}

// countTransportErrors counts the requests that got no response under the
// ErrorCode code, which the promhttp collectors leave out.
func (m *Metrics) countTransportErrors(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil {
			m.requests.WithLabelValues(strings.ToLower(req.Method), RouteFromContext(req.Context()), ErrorCode).Inc()
		}
		return resp, err
	}
}
