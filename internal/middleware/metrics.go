package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/pipetree/internal/runctx"
)

// Metrics holds the collectors behind the metrics middleware.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipetree",
			Name:      "invocations_total",
			Help:      "Node invocations by type and outcome",
		}, []string{"type", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pipetree",
			Name:      "invocation_duration_seconds",
			Help:      "Node invocation latency including children",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// Middleware returns the factory that records into m.
func (m *Metrics) Middleware() Factory {
	return func(owner Owner, next Next) Next {
		return func(ctx context.Context, in runctx.Input) (any, error) {
			start := time.Now()
			out, err := next(ctx, in)
			m.duration.WithLabelValues(owner.TypeName()).Observe(time.Since(start).Seconds())

			status := string(runctx.StatusDone)
			if err != nil {
				status = string(runctx.StatusError)
			}
			m.invocations.WithLabelValues(owner.TypeName(), status).Inc()
			return out, err
		}
	}
}

// prometheusRegistry is a private registry, so building several standard
// registries in one process never registers the same collector twice.
func prometheusRegistry() prometheus.Registerer {
	return prometheus.NewRegistry()
}
