package utils

import (
	"errors"
	"testing"
	"time"
)

func TestRTTWindowPercentile(t *testing.T) {
	window := NewRTTWindow(10)
	for _, s := range []float64{0.010, 0.020, 0.030, 0.040, 0.050} {
		window.Observe(s)
	}

	if window.Count() != 5 {
		t.Fatalf("expected count 5, got %d", window.Count())
	}
	if p95 := window.Percentile(95); p95 < 0.040 {
		t.Fatalf("expected percentile >= 0.040, got %v", p95)
	}
	if max := window.Percentile(100); max != 0.050 {
		t.Fatalf("expected max 0.050, got %v", max)
	}
}

func TestRTTWindowNearestRank(t *testing.T) {
	window := NewRTTWindow(8)
	window.Observe(0.2)
	window.Observe(0.1)
	if p95 := window.Percentile(95); p95 != 0.2 {
		t.Fatalf("expected p95 of two samples to be the larger, got %v", p95)
	}
	if p50 := window.Percentile(50); p50 != 0.1 {
		t.Fatalf("expected p50 0.1, got %v", p50)
	}

	window.Observe(0.3)
	window.Observe(0.4)
	if p75 := window.Percentile(75); p75 != 0.3 {
		t.Fatalf("expected p75 0.3, got %v", p75)
	}
	if p76 := window.Percentile(76); p76 != 0.4 {
		t.Fatalf("expected p76 0.4, got %v", p76)
	}
}

func TestRTTWindowWrapsAround(t *testing.T) {
	window := NewRTTWindow(3)
	for i := 0; i < 10; i++ {
		window.Observe(float64(i))
	}
	if window.Count() != 3 {
		t.Fatalf("expected window size 3, got %d", window.Count())
	}
	if min := window.Percentile(0); min != 7 {
		t.Fatalf("expected oldest retained sample 7, got %v", min)
	}
}

func TestRTTWindowEmpty(t *testing.T) {
	if got := NewRTTWindow(4).Percentile(50); got != 0 {
		t.Fatalf("expected 0 on empty window, got %v", got)
	}
}

func TestFromSecondsClamps(t *testing.T) {
	if FromSeconds(-1) != 0 {
		t.Fatalf("expected negative seconds to clamp to zero")
	}
	if FromSeconds(1.5) != 1500*time.Millisecond {
		t.Fatalf("unexpected conversion: %v", FromSeconds(1.5))
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("session.MarkExit", "no open enter", ErrOrdering)
	if !errors.Is(err, ErrOrdering) {
		t.Fatalf("expected errors.Is to match ErrOrdering, got %v", err)
	}
	if err.Error() != "session.MarkExit: no open enter: session ordering violation" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
