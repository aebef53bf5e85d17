package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/televator/internal/models"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveSampleBySignal(t *testing.T) {
	before := testutil.ToFloat64(samplesTotal.WithLabelValues("high"))
	ObserveSample(models.SignalHigh)
	if got := testutil.ToFloat64(samplesTotal.WithLabelValues("high")); got != before+1 {
		t.Fatalf("expected high counter %v, got %v", before+1, got)
	}
}

func TestObserveRideOutcome(t *testing.T) {
	before := testutil.ToFloat64(ridesTotal.WithLabelValues(OutcomeRejected))
	ObserveRide(OutcomeRejected, 0)
	if got := testutil.ToFloat64(ridesTotal.WithLabelValues(OutcomeRejected)); got != before+1 {
		t.Fatalf("expected rejected counter %v, got %v", before+1, got)
	}
}
