package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/televator/internal/config"
	"github.com/miradorstack/televator/internal/detector"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/session"
	"github.com/miradorstack/televator/internal/utils"
)

var (
	replayFile  string
	replayEnter int
	replayExit  int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Classify a recorded latency series and optionally estimate a ride",
	Long: `Reads a YAML document holding either a plain list of latencies in seconds or
{pingInterval: <seconds>, latencies: [...]}, runs the detector with the configured
parameters and prints one row per sample. --enter and --exit are history indices,
counted from the first sample after warm-up.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "YAML file with the latency series (required)")
	replayCmd.Flags().IntVar(&replayEnter, "enter", -1, "History index of the enter mark")
	replayCmd.Flags().IntVar(&replayExit, "exit", -1, "History index of the exit mark")
	_ = replayCmd.MarkFlagRequired("file")
}

// replaySeries is the on-disk form of a recorded series.
type replaySeries struct {
	PingInterval *float64  `yaml:"pingInterval"`
	Latencies    []float64 `yaml:"latencies"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)

	data, err := os.ReadFile(replayFile)
	if err != nil {
		return fmt.Errorf("read series: %w", err)
	}
	series, err := parseSeries(data)
	if err != nil {
		return err
	}
	pingInterval := utils.Seconds(cfg.Probe.Interval)
	if series.PingInterval != nil {
		pingInterval = *series.PingInterval
	}
	logger.Debug("replaying series", slog.String("file", replayFile), slog.Int("samples", len(series.Latencies)))

	return replay(cmd.OutOrStdout(), series.Latencies, cfg.DetectorSettings(), pingInterval,
		session.SecondsPerFloor(cfg.Session.SecondsPerFloor), replayEnter, replayExit)
}

func parseSeries(data []byte) (replaySeries, error) {
	var list []float64
	if err := yaml.Unmarshal(data, &list); err == nil {
		return replaySeries{Latencies: list}, nil
	}
	var series replaySeries
	if err := yaml.Unmarshal(data, &series); err != nil {
		return replaySeries{}, fmt.Errorf("parse series: %w", err)
	}
	return series, nil
}

// replay classifies latencies and writes a table, followed by a ride line when
// both marks are set (>= 0).
func replay(out io.Writer, latencies []float64, cfg detector.Config, pingInterval float64, floors session.FloorPolicy, enter, exit int) error {
	classified, err := detector.Detect(latencies, cfg)
	if err != nil {
		return err
	}
	warmup := cfg.Warmup()
	history := make([]models.ClassifiedSample, 0, len(classified)-warmup)
	for _, c := range classified[warmup:] {
		c.Index -= warmup
		history = append(history, c)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tLATENCY\tSIGNAL\tMEAN\tSTDDEV\tFILTERED")
	for _, c := range history {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%.4f\t%.4f\t%.4f\n", c.Index, c.Latency, c.Signal, c.Mean, c.StdDev, c.Filtered)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case enter < 0 && exit < 0:
		return nil
	case enter < 0 || exit < 0:
		return errors.New("--enter and --exit must be given together")
	}
	ride, err := session.Estimate(history, enter, exit, pingInterval, floors)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nride %d..%d: observed %.3fs, expected %.3fs, estimated %.3fs, %d floor(s)\n",
		ride.Enter, ride.Exit, ride.ObservedLatency, ride.ExpectedLatency, ride.EstimatedDuration, ride.Floors)
	return nil
}
