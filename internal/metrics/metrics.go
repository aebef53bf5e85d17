package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/televator/internal/models"
)

const (
	// OutcomeCompleted labels rides closed by a matching exit.
	OutcomeCompleted = "completed"
	// OutcomeRejected labels exits refused for ordering violations.
	OutcomeRejected = "rejected"
)

var (
	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "televator",
			Name:      "samples_total",
			Help:      "Classified latency samples, partitioned by signal.",
		},
		[]string{"signal"},
	)

	probeLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "televator",
			Name:      "probe_latency_seconds",
			Help:      "Round-trip latency reported by the probe.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	probeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "televator",
			Name:      "probe_failures_total",
			Help:      "Probes that failed or timed out.",
		},
	)

	paddedSamplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "televator",
			Name:      "padded_samples_total",
			Help:      "Samples synthesised to fill sequence gaps.",
		},
	)

	rejectedSamplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "televator",
			Name:      "rejected_samples_total",
			Help:      "Samples dropped as duplicate, stale or invalid.",
		},
	)

	ridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "televator",
			Name:      "rides_total",
			Help:      "Exit events, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	rideDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "televator",
			Name:      "ride_estimated_seconds",
			Help:      "Estimated duration of completed rides.",
			Buckets:   []float64{2, 5, 10, 15, 20, 30, 45, 60, 120},
		},
	)
)

// Register attaches televator collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		samplesTotal,
		probeLatencySeconds,
		probeFailuresTotal,
		paddedSamplesTotal,
		rejectedSamplesTotal,
		ridesTotal,
		rideDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSample counts a classified sample under its signal label.
func ObserveSample(signal models.Signal) {
	samplesTotal.WithLabelValues(signal.String()).Inc()
}

// ObserveProbe records a probe round trip; failed probes are counted separately.
func ObserveProbe(seconds float64, failed bool) {
	if failed {
		probeFailuresTotal.Inc()
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	probeLatencySeconds.Observe(seconds)
}

// ObservePadded counts n gap-filling samples.
func ObservePadded(n int) {
	paddedSamplesTotal.Add(float64(n))
}

// ObserveRejected counts a dropped sample.
func ObserveRejected() {
	rejectedSamplesTotal.Inc()
}

// ObserveRide records an exit outcome and, for completed rides, the estimate.
func ObserveRide(outcome string, estimatedSeconds float64) {
	if outcome != OutcomeRejected {
		outcome = OutcomeCompleted
	}
	ridesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted {
		rideDurationSeconds.Observe(estimatedSeconds)
	}
}
