package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for outgoing API requests.
//
// Labels stay low-cardinality: the request path embeds bitlink IDs, so only
// the method and status are recorded.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Inflight prometheus.Gauge
}

// NewMetrics registers the collectors with reg. Registering twice against the
// same registry returns the collectors already registered, so several clients
// can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitly_client_requests_total",
			Help: "Total number of requests sent to the Bitly API.",
		},
		[]string{"method", "status"},
	))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bitly_client_request_duration_seconds",
			Help:    "Latency of requests sent to the Bitly API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	))
	if err != nil {
		return nil, err
	}

	inflight, err := register(reg, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bitly_client_inflight_requests",
			Help: "Current number of in-flight requests to the Bitly API.",
		},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{Requests: requests, Duration: duration, Inflight: inflight}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware records every round trip, including transport failures
// (status label "error").
func (m *Metrics) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			m.Inflight.Inc()
			defer m.Inflight.Dec()

			start := time.Now()
			resp, err := next.RoundTrip(r)

			m.Duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
			m.Requests.WithLabelValues(r.Method, statusLabel(resp, err)).Inc()

			return resp, err
		})
	}
}
