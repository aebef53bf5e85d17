package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/miradorstack/televator/internal/metrics"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

// SubmitFunc hands a sample to the consumer.
type SubmitFunc func(ctx context.Context, sample models.Sample) error

// Scheduler probes once per interval and numbers samples densely. A failed probe
// becomes a sample at the timeout latency so the series keeps one entry per tick.
type Scheduler struct {
	logger   *slog.Logger
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	next     uint64
}

// NewScheduler builds a scheduler; interval and timeout must be positive.
func NewScheduler(logger *slog.Logger, prober Prober, interval, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Scheduler{logger: logger, prober: prober, interval: interval, timeout: timeout}
}

// Run probes until ctx is cancelled. Probes overlap when a reply takes longer than
// the interval, each bounded by the timeout; submissions happen in sequence order.
func (s *Scheduler) Run(ctx context.Context, submit SubmitFunc) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	pending := make(chan chan models.Sample, int(s.timeout/s.interval)+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for slot := range pending {
			var sample models.Sample
			select {
			case sample = <-slot:
			case <-ctx.Done():
				return
			}
			if err := submit(ctx, sample); err != nil && ctx.Err() == nil {
				s.logger.Warn("sample submission failed", slog.Uint64("sequence", sample.Sequence), slog.Any("error", err))
			}
		}
	}()
	defer func() {
		close(pending)
		<-done
	}()

	for {
		slot := make(chan models.Sample, 1)
		seq := s.next
		s.next++
		go s.measure(ctx, seq, slot)

		select {
		case pending <- slot:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) measure(ctx context.Context, seq uint64, slot chan<- models.Sample) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rtt, err := s.prober.Probe(probeCtx)
	latency := utils.Seconds(rtt)
	if err != nil || rtt > s.timeout {
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("probe failed", slog.Uint64("sequence", seq), slog.Any("error", err))
		latency = utils.Seconds(s.timeout)
	}
	metrics.ObserveProbe(latency, err != nil)
	slot <- models.Sample{Sequence: seq, Latency: latency}
}
