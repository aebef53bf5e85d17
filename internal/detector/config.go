package detector

import (
	"fmt"
	"math"

	"github.com/miradorstack/televator/internal/utils"
)

// Config parameterises the smoothed z-score filter.
type Config struct {
	// Lag is the trailing window length used for the rolling mean.
	Lag int
	// Threshold is the number of standard deviations that makes a sample anomalous.
	Threshold float64
	// Influence in [0,1] weights an anomalous sample in the smoothed series.
	Influence float64
	// DetectNegative enables -1 signals; when false low outliers are smoothed but not flagged.
	DetectNegative bool

	// StdLag overrides the window length used for the standard deviation. Zero means Lag.
	StdLag int
	// StdInfluence overrides Influence for the series feeding the standard deviation.
	StdInfluence *float64
}

// Validate rejects settings the filter cannot run with.
func (c Config) Validate() error {
	if c.Lag < 2 {
		return invalid("lag must be at least 2, got %d", c.Lag)
	}
	if c.StdLag != 0 && c.StdLag < 2 {
		return invalid("stdLag must be 0 or at least 2, got %d", c.StdLag)
	}
	if !(c.Threshold > 0) || math.IsInf(c.Threshold, 0) {
		return invalid("threshold must be a positive finite number, got %v", c.Threshold)
	}
	if !inUnitInterval(c.Influence) {
		return invalid("influence must be within [0,1], got %v", c.Influence)
	}
	if c.StdInfluence != nil && !inUnitInterval(*c.StdInfluence) {
		return invalid("stdInfluence must be within [0,1], got %v", *c.StdInfluence)
	}
	return nil
}

// Warmup is the number of samples consumed before classification starts.
func (c Config) Warmup() int {
	return max(c.Lag, c.stdLag())
}

func (c Config) stdLag() int {
	if c.StdLag == 0 {
		return c.Lag
	}
	return c.StdLag
}

func (c Config) stdInfluence() float64 {
	if c.StdInfluence == nil {
		return c.Influence
	}
	return *c.StdInfluence
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func invalid(format string, args ...any) error {
	return utils.NewAppError("detector.Config", fmt.Sprintf(format, args...), utils.ErrInvalidConfig)
}
