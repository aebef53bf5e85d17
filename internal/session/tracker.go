// Package session tracks elevator rides against the classified latency history.
package session

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/miradorstack/televator/internal/detector"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

// Config is fixed at construction.
type Config struct {
	Detector detector.Config
	// PingInterval is the nominal spacing between samples, in seconds.
	PingInterval float64
	// Floors converts an estimated duration into a floor count. Nil uses DefaultFloorPolicy.
	Floors FloorPolicy
}

// Tracker owns the classified history and the single open session. Every mutator
// returns the snapshot it published.
type Tracker struct {
	mu sync.Mutex

	logger       *slog.Logger
	filter       *detector.Filter
	warmup       int
	pingInterval float64
	floors       FloorPolicy
	now          func() time.Time
	bus          *Broadcaster

	samples    int
	maxLatency float64
	history    []models.ClassifiedSample
	enter      *int
	exit       *int
	lastRide   *models.Ride
}

// NewTracker validates cfg and returns an empty tracker.
func NewTracker(logger *slog.Logger, cfg Config) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !(cfg.PingInterval >= 0) || math.IsInf(cfg.PingInterval, 0) {
		return nil, utils.NewAppError("session.NewTracker", fmt.Sprintf("ping interval must be a non-negative number, got %v", cfg.PingInterval), utils.ErrInvalidConfig)
	}
	filter, err := detector.NewFilter(cfg.Detector)
	if err != nil {
		return nil, err
	}
	floors := cfg.Floors
	if floors == nil {
		floors = DefaultFloorPolicy
	}
	return &Tracker{
		logger:       logger,
		filter:       filter,
		warmup:       cfg.Detector.Warmup(),
		pingInterval: cfg.PingInterval,
		floors:       floors,
		now:          time.Now,
		bus:          NewBroadcaster(),
	}, nil
}

// Subscribe registers a snapshot listener. See Broadcaster.Subscribe.
func (t *Tracker) Subscribe(buffer int) (<-chan models.Snapshot, func()) {
	return t.bus.Subscribe(buffer)
}

// Close releases all subscribers.
func (t *Tracker) Close() {
	t.bus.Close()
}

// Snapshot returns the current state without mutating it.
func (t *Tracker) Snapshot() models.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// RecordSample absorbs the next latency (seconds). Samples inside the warm-up window
// only move the progress counter; later ones are appended to history with indices
// counted from the end of warm-up.
func (t *Tracker) RecordSample(latency float64) (models.Snapshot, error) {
	if !(latency >= 0) || math.IsInf(latency, 0) {
		return models.Snapshot{}, utils.NewAppError("session.RecordSample", fmt.Sprintf("latency must be a non-negative number, got %v", latency), utils.ErrInvalidSample)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples++
	if latency > t.maxLatency {
		t.maxLatency = latency
	}
	out := t.filter.Push(latency)
	if out.Index >= t.warmup {
		out.Index -= t.warmup
		t.history = append(t.history, out)
	}
	return t.publishLocked(), nil
}

// MarkEnter opens a session at the newest history index, discarding any previous
// pair. It is a no-op until Snapshot.Ready: the warm-up samples never enter the
// history, so after exactly the warm-up count WarmupProgress already reads 1 but
// marks are still ignored until one more sample arrives.
func (t *Tracker) MarkEnter() models.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		t.logger.Debug("enter ignored during warm-up", slog.Int("samples", t.samples))
		return t.snapshotLocked()
	}
	if t.enter != nil && t.exit == nil {
		t.logger.Info("discarding open session", slog.Int("enter", *t.enter))
	}
	idx := len(t.history) - 1
	t.enter = &idx
	t.exit = nil
	t.logger.Info("session entered", slog.Int("index", idx))
	return t.publishLocked()
}

// MarkExit closes the open session at the newest history index and returns the
// ride estimate in Snapshot.LastRide. It is a no-op during warm-up and fails with
// ErrOrdering when no session is open.
func (t *Tracker) MarkExit() (models.Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		t.logger.Debug("exit ignored during warm-up", slog.Int("samples", t.samples))
		return t.snapshotLocked(), nil
	}
	if t.enter == nil || t.exit != nil {
		return t.snapshotLocked(), utils.NewAppError("session.MarkExit", "no open enter", utils.ErrOrdering)
	}

	idx := len(t.history) - 1
	ride, err := Estimate(t.history, *t.enter, idx, t.pingInterval, t.floors)
	if err != nil {
		return t.snapshotLocked(), err
	}
	ride.CompletedAt = t.now().UTC()
	t.exit = &idx
	t.lastRide = &ride
	t.logger.Info("session exited",
		slog.Int("enter", ride.Enter),
		slog.Int("exit", ride.Exit),
		slog.Float64("estimated_seconds", ride.EstimatedDuration),
		slog.Int("floors", ride.Floors),
	)
	return t.publishLocked(), nil
}

func (t *Tracker) publishLocked() models.Snapshot {
	snap := t.snapshotLocked()
	t.bus.Publish(snap)
	return snap
}

func (t *Tracker) snapshotLocked() models.Snapshot {
	progress := 1.0
	if t.warmup > 0 && t.samples < t.warmup {
		progress = float64(t.samples) / float64(t.warmup)
	}
	return models.Snapshot{
		Samples:        t.samples,
		Ready:          len(t.history) > 0,
		WarmupProgress: progress,
		MaxLatency:     t.maxLatency,
		History:        t.history[:len(t.history):len(t.history)],
		Session:        models.Session{Enter: t.enter, Exit: t.exit},
		LastRide:       t.lastRide,
	}
}
