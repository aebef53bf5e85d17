package models

// Sample is one latency measurement delivered by the probe.
type Sample struct {
	Sequence uint64
	Latency  float64 // seconds
}

// Signal classifies a sample against its trailing window.
type Signal int

const (
	SignalLow  Signal = -1
	SignalNone Signal = 0
	SignalHigh Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SignalHigh:
		return "high"
	case SignalLow:
		return "low"
	default:
		return "none"
	}
}

// ClassifiedSample is the filter output for one sample. Mean and StdDev are the
// rolling statistics after the sample was absorbed; Filtered is the smoothed value
// that entered the window in place of the raw latency.
type ClassifiedSample struct {
	Index    int     `json:"index"`
	Latency  float64 `json:"latency"`
	Signal   Signal  `json:"signal"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Filtered float64 `json:"filtered"`
}
