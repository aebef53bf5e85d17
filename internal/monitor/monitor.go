// Package monitor is the single consumer between the probe and the session tracker.
// Producers push samples onto a channel; Run drains it in order, repairs sequence
// gaps and feeds the tracker. Gesture events go straight to the tracker, which never
// lets them touch filter state.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/miradorstack/televator/internal/metrics"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/session"
	"github.com/miradorstack/televator/internal/utils"
)

// RideStore persists completed rides.
type RideStore interface {
	SaveRide(ctx context.Context, ride models.Ride) (models.Ride, error)
}

// Options tunes the consumer.
type Options struct {
	// QueueSize bounds the inbound channel.
	QueueSize int
	// PadLatency (seconds) is recorded for each missing sequence number.
	PadLatency float64
	// MaxGap caps how many samples a single gap may synthesise.
	MaxGap int
}

// Monitor wires a tracker to an inbound sample queue and a ride store.
type Monitor struct {
	logger  *slog.Logger
	tracker *session.Tracker
	store   RideStore
	opts    Options
	in      chan models.Sample
	rtt     *utils.RTTWindow

	// consumer-owned
	hasLast bool
	last    uint64
}

// New builds a monitor. store may be nil, in which case rides are not persisted.
func New(logger *slog.Logger, tracker *session.Tracker, store RideStore, opts Options) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxGap <= 0 {
		opts.MaxGap = 300
	}
	return &Monitor{
		logger:  logger,
		tracker: tracker,
		store:   store,
		opts:    opts,
		in:      make(chan models.Sample, opts.QueueSize),
		rtt:     utils.NewRTTWindow(1024),
	}
}

// Submit enqueues a sample, blocking until there is room or ctx ends.
func (m *Monitor) Submit(ctx context.Context, sample models.Sample) error {
	select {
	case m.in <- sample:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes samples until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-m.in:
			if err := m.ingest(sample); err != nil {
				metrics.ObserveRejected()
				m.logger.Warn("sample rejected", slog.Uint64("sequence", sample.Sequence), slog.Any("error", err))
			}
		}
	}
}

func (m *Monitor) ingest(sample models.Sample) error {
	if !(sample.Latency >= 0) || math.IsInf(sample.Latency, 0) {
		return utils.NewAppError("monitor.ingest", fmt.Sprintf("latency must be a non-negative number, got %v", sample.Latency), utils.ErrInvalidSample)
	}
	if m.hasLast {
		if sample.Sequence <= m.last {
			return utils.NewAppError("monitor.ingest", fmt.Sprintf("sequence %d not after %d", sample.Sequence, m.last), utils.ErrOutOfOrder)
		}
		if gap := sample.Sequence - m.last - 1; gap > 0 {
			m.pad(gap)
		}
	}

	snap, err := m.tracker.RecordSample(sample.Latency)
	if err != nil {
		return err
	}
	m.hasLast = true
	m.last = sample.Sequence
	m.observe(sample, snap)
	return nil
}

func (m *Monitor) pad(gap uint64) {
	n := int(min(gap, uint64(m.opts.MaxGap)))
	if uint64(n) < gap {
		m.logger.Warn("sequence gap truncated", slog.Uint64("gap", gap), slog.Int("padded", n))
	}
	for i := 0; i < n; i++ {
		if _, err := m.tracker.RecordSample(m.opts.PadLatency); err != nil {
			m.logger.Error("padding failed", slog.Any("error", err))
			return
		}
	}
	metrics.ObservePadded(n)
	m.logger.Debug("padded sequence gap", slog.Int("samples", n), slog.Float64("latency", m.opts.PadLatency))
}

func (m *Monitor) observe(sample models.Sample, snap models.Snapshot) {
	m.rtt.Observe(sample.Latency)
	if count := snap.Samples; count >= 60 && count%60 == 0 {
		m.logger.Info("probe latency", slog.Float64("p95_seconds", m.rtt.Percentile(95)), slog.Int("samples", count))
	}

	latest, ok := snap.Latest()
	if !ok {
		return
	}
	metrics.ObserveSample(latest.Signal)
	if latest.Signal != models.SignalNone {
		m.logger.Info("latency signal",
			slog.Int("index", latest.Index),
			slog.Float64("latency", latest.Latency),
			slog.String("signal", latest.Signal.String()),
			slog.Float64("mean", latest.Mean),
			slog.Float64("stddev", latest.StdDev),
		)
	}
}

// MarkEnter opens a ride at the newest sample.
func (m *Monitor) MarkEnter() models.Snapshot {
	return m.tracker.MarkEnter()
}

// MarkExit closes the open ride and persists it.
func (m *Monitor) MarkExit(ctx context.Context) (models.Snapshot, error) {
	snap, err := m.tracker.MarkExit()
	if err != nil {
		if errors.Is(err, utils.ErrOrdering) {
			metrics.ObserveRide(metrics.OutcomeRejected, 0)
		}
		return snap, err
	}
	if snap.LastRide == nil || snap.Session.Exit == nil {
		return snap, nil
	}

	ride := *snap.LastRide
	metrics.ObserveRide(metrics.OutcomeCompleted, ride.EstimatedDuration)
	if m.store != nil {
		saved, err := m.store.SaveRide(ctx, ride)
		if err != nil {
			m.logger.Warn("failed to persist ride", slog.Any("error", err))
			return snap, nil
		}
		snap.LastRide = &saved
	}
	return snap, nil
}

// Snapshot returns the tracker's current state.
func (m *Monitor) Snapshot() models.Snapshot {
	return m.tracker.Snapshot()
}

// Subscribe forwards to the tracker's broadcaster.
func (m *Monitor) Subscribe(buffer int) (<-chan models.Snapshot, func()) {
	return m.tracker.Subscribe(buffer)
}
