// Package metrics holds the Prometheus collectors of the service and the
// echo middleware that records HTTP traffic.
package metrics

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    // Registry holds the application-specific Prometheus collectors.
    Registry = prometheus.NewRegistry()

    httpInFlight = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "cafe",
            Subsystem: "http",
            Name:      "inflight_requests",
            Help:      "Current number of in-flight HTTP requests.",
        },
    )

    httpRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "cafe",
            Subsystem: "http",
            Name:      "requests_total",
            Help:      "Total number of HTTP requests handled.",
        },
        []string{"method", "route", "status"},
    )

    httpDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "cafe",
            Subsystem: "http",
            Name:      "request_duration_seconds",
            Help:      "Duration of HTTP requests.",
            Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
        },
        []string{"method", "route"},
    )

    requestsCreated = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "cafe",
            Subsystem: "lifecycle",
            Name:      "requests_created_total",
            Help:      "Service requests created, by kind.",
        },
        []string{"kind"},
    )

    transitions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "cafe",
            Subsystem: "lifecycle",
            Name:      "transitions_total",
            Help:      "Applied status transitions.",
        },
        []string{"kind", "from", "to"},
    )

    notificationFailures = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "cafe",
            Subsystem: "notify",
            Name:      "failures_total",
            Help:      "Status notifications that could not be published.",
        },
    )
)

func init() {
    Registry.MustRegister(
        httpInFlight,
        httpRequests,
        httpDuration,
        requestsCreated,
        transitions,
        notificationFailures,
        prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
        prometheus.NewGoCollector(),
    )
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
    return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records in-flight requests, totals and latency per route
// template (never per raw path, which would explode label cardinality).
func Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Path() == "/metrics" {
                return next(c)
            }
            httpInFlight.Inc()
            start := time.Now()
            err := next(c)
            httpInFlight.Dec()

            status := c.Response().Status
            if he, ok := err.(*echo.HTTPError); ok {
                status = he.Code
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            method := c.Request().Method
            httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
            httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
            return err
        }
    }
}

// RequestCreated counts a newly created service request.
func RequestCreated(kind string) {
    requestsCreated.WithLabelValues(kind).Inc()
}

// Transition counts an applied status change.
func Transition(kind, from, to string) {
    transitions.WithLabelValues(kind, from, to).Inc()
}

// NotificationFailed counts a notification that was dropped.
func NotificationFailed() {
    notificationFailures.Inc()
}
