// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the login flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests by route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codelinker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests.",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codelinker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LoginsTotal counts login verifications by outcome.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codelinker",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login verification outcomes.",
	}, []string{"result"})

	// LockoutsTotal counts accounts locked after repeated failures.
	LockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codelinker",
		Subsystem: "auth",
		Name:      "lockouts_total",
		Help:      "Accounts locked after repeated login failures.",
	})
)

// Login outcome labels.
const (
	LoginSuccess        = "success"
	LoginBadCredentials = "bad_credentials"
	LoginDisabled       = "disabled"
	LoginLocked         = "locked"
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
