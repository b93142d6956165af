package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "astra").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// requestMetrics holds the Prometheus collectors for the middleware.
type requestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	inflight        prometheus.Gauge
}

func newRequestMetrics(cfg MetricsConfig) *requestMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "astra"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(cfg.Registry)

	return &requestMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests processed",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request processing duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"method"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of handler errors",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_inflight",
			Help:        "Number of requests currently being handled",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Metrics returns a middleware that records request counts, durations and
// handler errors to Prometheus. Labels are kept to method and status; the
// raw path is deliberately not a label since parameterized paths would
// explode the cardinality.
func Metrics(cfg MetricsConfig) Middleware {
	m := newRequestMetrics(cfg)

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			start := time.Now()
			m.inflight.Inc()
			defer m.inflight.Dec()

			resp, err := next(ctx, req)

			method := req.Method()
			m.requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

			if err != nil {
				m.requestErrors.WithLabelValues(method).Inc()

				status := "500"
				var webErr *web.Error
				if errors.As(err, &webErr) {
					status = strconv.Itoa(webErr.Status)
				}
				m.requestsTotal.WithLabelValues(method, status).Inc()
				return nil, err
			}

			m.requestsTotal.WithLabelValues(method, strconv.Itoa(resp.Status)).Inc()
			return resp, nil
		}
	}
}
