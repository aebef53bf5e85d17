package utils

import (
	"math"
	"time"
)

// Seconds converts a duration into fractional seconds.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// FromSeconds converts fractional seconds into a duration, clamping negatives and
// non-finite values to zero.
func FromSeconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
