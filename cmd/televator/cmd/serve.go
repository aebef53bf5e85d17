package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/televator/internal/api"
	"github.com/miradorstack/televator/internal/config"
	"github.com/miradorstack/televator/internal/metrics"
	"github.com/miradorstack/televator/internal/monitor"
	"github.com/miradorstack/televator/internal/probe"
	"github.com/miradorstack/televator/internal/services"
	"github.com/miradorstack/televator/internal/session"
	"github.com/miradorstack/televator/internal/store"
	"github.com/miradorstack/televator/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the probe, session tracker, gRPC API and HTTP feed",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		return err
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting televator",
		slog.String("address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.Int("lag", cfg.Detector.Lag),
		slog.Float64("threshold", cfg.Detector.Threshold),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return err
	}

	var rides *store.RideStore
	if cfg.Store.Path != "" {
		rides, err = store.Open(cfg.Store.Path)
		if err != nil {
			logger.Error("failed to open ride store", slog.String("path", cfg.Store.Path), slog.Any("error", err))
			return err
		}
		defer rides.Close()
	}

	tracker, err := session.NewTracker(logger, session.Config{
		Detector:     cfg.DetectorSettings(),
		PingInterval: utils.Seconds(cfg.Probe.Interval),
		Floors:       session.SecondsPerFloor(cfg.Session.SecondsPerFloor),
	})
	if err != nil {
		logger.Error("failed to build session tracker", slog.Any("error", err))
		return err
	}
	defer tracker.Close()

	// A nil *store.RideStore must not reach the interface as a typed nil.
	var rideStore monitor.RideStore
	var rideLister services.RideLister
	if rides != nil {
		rideStore = rides
		rideLister = rides
	}
	mon := monitor.New(logger, tracker, rideStore, monitor.Options{
		QueueSize:  cfg.Probe.QueueSize,
		PadLatency: utils.Seconds(cfg.Probe.Timeout),
		MaxGap:     cfg.Probe.MaxGap,
	})

	televatorService := services.NewTelevatorService(logger, mon, rideLister)

	server, err := api.NewServer(cfg.Server, televatorService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("monitor exited", slog.Any("error", err))
			stop()
		}
	}()

	if cfg.Probe.Enabled {
		prober, err := probe.New(cfg.Probe.Kind, cfg.Probe.Target, cfg.Probe.Timeout)
		if err != nil {
			logger.Error("failed to build prober", slog.Any("error", err))
			return err
		}
		scheduler := probe.NewScheduler(logger, prober, cfg.Probe.Interval, cfg.Probe.Timeout)
		go func() {
			logger.Info("probe started",
				slog.String("kind", cfg.Probe.Kind),
				slog.String("target", cfg.Probe.Target),
				slog.Duration("interval", cfg.Probe.Interval),
			)
			if err := scheduler.Run(ctx, mon.Submit); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("probe exited", slog.Any("error", err))
			}
		}()
	} else {
		logger.Info("probe disabled; samples arrive via RecordSample")
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:        cfg.Server.HTTPAddress,
			Handler:     newHTTPMux(logger, mon),
			ReadTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Closing the tracker ends websocket and WatchSnapshots streams so the
	// graceful stops below do not wait on them.
	tracker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if httpServer != nil {
		httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(httpCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
		cancelHTTP()
	}

	logger.Info("televator stopped")
	return nil
}

func newHTTPMux(logger *slog.Logger, source api.SnapshotSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", api.NewSnapshotFeed(logger, source))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := source.Snapshot()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "ok samples=%d ready=%t\n", snap.Samples, snap.Ready)
	})
	return mux
}
