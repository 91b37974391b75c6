package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels analyses that produced a result. Failed analyses are
// labelled with their analysis.Kind.
const OutcomeSuccess = "success"

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deeptrust",
			Name:      "analyses_total",
			Help:      "Total number of relay analyses, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	providerDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deeptrust",
			Name:      "provider_request_seconds",
			Help:      "Latency of the outbound chat completion call in seconds.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 12, 16, 24, 32, 60},
		},
		[]string{"input"},
	)
)

// Register attaches the relay collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		providerDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one relay call. input is "url" or "inline".
func ObserveAnalysis(duration time.Duration, input, outcome string) {
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	providerDurationSeconds.WithLabelValues(input).Observe(duration.Seconds())
}
