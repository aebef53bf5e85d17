package models

import "time"

// Session is the single enter/exit pair tracked against history indices.
type Session struct {
	Enter *int `json:"enter,omitempty"`
	Exit  *int `json:"exit,omitempty"`
}

// Open reports whether an enter has been marked without a matching exit.
func (s Session) Open() bool {
	return s.Enter != nil && s.Exit == nil
}

// Ride is the derived estimate for a closed session.
type Ride struct {
	ID                uint64    `json:"id,omitempty"`
	Enter             int       `json:"enter"`
	Exit              int       `json:"exit"`
	ObservedLatency   float64   `json:"observedLatency"`
	ExpectedLatency   float64   `json:"expectedLatency"`
	EstimatedDuration float64   `json:"estimatedDuration"`
	Floors            int       `json:"floors"`
	CompletedAt       time.Time `json:"completedAt"`
}

// Snapshot is an immutable view of tracker state published after every update.
// History shares its backing array with the tracker but is never written below
// its length, so readers may hold it without copying.
type Snapshot struct {
	Samples        int                `json:"samples"`
	Ready          bool               `json:"ready"`
	WarmupProgress float64            `json:"warmupProgress"`
	MaxLatency     float64            `json:"maxLatency"`
	History        []ClassifiedSample `json:"history"`
	Session        Session            `json:"session"`
	LastRide       *Ride              `json:"lastRide,omitempty"`
}

// Latest returns the newest classified sample, if any.
func (s Snapshot) Latest() (ClassifiedSample, bool) {
	if len(s.History) == 0 {
		return ClassifiedSample{}, false
	}
	return s.History[len(s.History)-1], true
}
