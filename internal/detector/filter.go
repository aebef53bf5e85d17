// Package detector implements smoothed z-score peak detection over a latency series.
//
// Each sample is compared with the mean and population standard deviation of a
// trailing window of previously filtered values. Anomalous samples enter the window
// only with weight Influence, so a sustained spike does not drag the baseline along.
package detector

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

// Filter is the streaming form of the detector. It is not safe for concurrent use;
// callers serialise Push.
type Filter struct {
	cfg    Config
	warmup int

	n         int
	meanTrail trail
	stdTrail  trail
	mean      float64
	std       float64
}

// NewFilter validates cfg and returns an empty filter.
func NewFilter(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Filter{
		cfg:       cfg,
		warmup:    cfg.Warmup(),
		meanTrail: newTrail(cfg.Lag),
		stdTrail:  newTrail(cfg.stdLag()),
	}, nil
}

// Config returns the settings the filter was built with.
func (f *Filter) Config() Config { return f.cfg }

// Count returns the number of samples absorbed so far.
func (f *Filter) Count() int { return f.n }

// Ready reports whether the warm-up window has been filled.
func (f *Filter) Ready() bool { return f.n >= f.warmup }

// Push classifies the next value and advances the window.
func (f *Filter) Push(value float64) models.ClassifiedSample {
	i := f.n
	f.n++

	if i < f.warmup {
		f.meanTrail.push(value)
		f.stdTrail.push(value)
		out := models.ClassifiedSample{Index: i, Latency: value, Filtered: value}
		if i == f.warmup-1 {
			f.recompute(i)
			out.Mean, out.StdDev = f.mean, f.std
		}
		return out
	}

	signal := models.SignalNone
	meanValue, stdValue := value, value
	if math.Abs(value-f.mean) > f.cfg.Threshold*f.std {
		if value > f.mean {
			signal = models.SignalHigh
		} else if f.cfg.DetectNegative {
			signal = models.SignalLow
		}
		meanValue = smooth(f.cfg.Influence, value, f.meanTrail.last())
		stdValue = smooth(f.cfg.stdInfluence(), value, f.stdTrail.last())
	}
	f.meanTrail.push(meanValue)
	f.stdTrail.push(stdValue)
	f.recompute(i)

	return models.ClassifiedSample{
		Index:    i,
		Latency:  value,
		Signal:   signal,
		Mean:     f.mean,
		StdDev:   f.std,
		Filtered: meanValue,
	}
}

// recompute sets the statistics for index i from the window [i-lag, i), clamped at 0.
func (f *Filter) recompute(i int) {
	f.mean = meanOf(f.meanTrail.window(max(0, i-f.cfg.Lag), i))
	f.std = stdDevOf(f.stdTrail.window(max(0, i-f.cfg.stdLag()), i))
}

// Detect runs the filter over a complete series. The series must cover the warm-up window.
func Detect(series []float64, cfg Config) ([]models.ClassifiedSample, error) {
	f, err := NewFilter(cfg)
	if err != nil {
		return nil, err
	}
	if len(series) < f.warmup {
		return nil, utils.NewAppError("detector.Detect", "series shorter than warm-up window", utils.ErrInsufficientHistory)
	}
	out := make([]models.ClassifiedSample, 0, len(series))
	for _, v := range series {
		out = append(out, f.Push(v))
	}
	return out, nil
}

func smooth(influence, value, previous float64) float64 {
	return influence*value + (1-influence)*previous
}

// meanOf and stdDevOf are only called on windows of at least one element, so the
// empty-input errors from stats cannot occur.
func meanOf(values []float64) float64 {
	m, _ := stats.Mean(values)
	return m
}

// stdDevOf is the population standard deviation.
func stdDevOf(values []float64) float64 {
	sd, _ := stats.StandardDeviationPopulation(values)
	return sd
}
