package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/televator/internal/detector"
	"github.com/miradorstack/televator/internal/utils"
)

// Config captures the settings required to boot the televator service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Probe    ProbeConfig    `yaml:"probe"`
	Detector DetectorConfig `yaml:"detector"`
	Session  SessionConfig  `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ProbeConfig controls the latency probe.
type ProbeConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Kind      string        `yaml:"kind"`
	Target    string        `yaml:"target"`
	Interval  time.Duration `yaml:"interval"`
	Timeout   time.Duration `yaml:"timeout"`
	QueueSize int           `yaml:"queueSize"`
	MaxGap    int           `yaml:"maxGap"`
}

// DetectorConfig mirrors detector.Config for YAML.
type DetectorConfig struct {
	Lag            int      `yaml:"lag"`
	Threshold      float64  `yaml:"threshold"`
	Influence      float64  `yaml:"influence"`
	DetectNegative bool     `yaml:"detectNegative"`
	StdLag         int      `yaml:"stdLag"`
	StdInfluence   *float64 `yaml:"stdInfluence"`
}

// SessionConfig controls ride estimation.
type SessionConfig struct {
	SecondsPerFloor float64 `yaml:"secondsPerFloor"`
}

// StoreConfig locates the ride database. An empty path disables persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TELEVATOR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DetectorSettings converts the YAML section into filter parameters.
func (c *Config) DetectorSettings() detector.Config {
	return detector.Config{
		Lag:            c.Detector.Lag,
		Threshold:      c.Detector.Threshold,
		Influence:      c.Detector.Influence,
		DetectNegative: c.Detector.DetectNegative,
		StdLag:         c.Detector.StdLag,
		StdInfluence:   c.Detector.StdInfluence,
	}
}

// Validate rejects configurations that cannot start the service.
func (c *Config) Validate() error {
	if err := c.DetectorSettings().Validate(); err != nil {
		return err
	}
	if c.Probe.Interval <= 0 {
		return utils.NewAppError("config.Validate", "probe.interval must be positive", utils.ErrInvalidConfig)
	}
	if c.Probe.Timeout <= 0 {
		return utils.NewAppError("config.Validate", "probe.timeout must be positive", utils.ErrInvalidConfig)
	}
	if c.Probe.Enabled && strings.TrimSpace(c.Probe.Target) == "" {
		return utils.NewAppError("config.Validate", "probe.target is required when the probe is enabled", utils.ErrInvalidConfig)
	}
	if !(c.Session.SecondsPerFloor > 0) {
		return utils.NewAppError("config.Validate", "session.secondsPerFloor must be positive", utils.ErrInvalidConfig)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			HTTPAddress:     ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Probe: ProbeConfig{
			Enabled:   true,
			Kind:      "tcp",
			Target:    "1.1.1.1:443",
			Interval:  time.Second,
			Timeout:   5 * time.Second,
			QueueSize: 64,
			MaxGap:    300,
		},
		Detector: DetectorConfig{
			Lag:       10,
			Threshold: 4.0,
			Influence: 0.1,
		},
		Session: SessionConfig{SecondsPerFloor: 5.0},
		Store:   StoreConfig{Path: "televator.db"},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEVATOR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("TELEVATOR_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("TELEVATOR_PROBE_ENABLED"); v != "" {
		cfg.Probe.Enabled = parseBool(v)
	}
	if v := os.Getenv("TELEVATOR_PROBE_KIND"); v != "" {
		cfg.Probe.Kind = v
	}
	if v := os.Getenv("TELEVATOR_PROBE_TARGET"); v != "" {
		cfg.Probe.Target = v
	}
	if v := os.Getenv("TELEVATOR_PROBE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Probe.Interval = d
		}
	}
	if v := os.Getenv("TELEVATOR_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Probe.Timeout = d
		}
	}
	if v := os.Getenv("TELEVATOR_DETECTOR_LAG"); v != "" {
		if lag, err := strconv.Atoi(v); err == nil {
			cfg.Detector.Lag = lag
		}
	}
	if v := os.Getenv("TELEVATOR_DETECTOR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Threshold = f
		}
	}
	if v := os.Getenv("TELEVATOR_DETECTOR_INFLUENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Influence = f
		}
	}
	if v := os.Getenv("TELEVATOR_DETECTOR_NEGATIVE"); v != "" {
		cfg.Detector.DetectNegative = parseBool(v)
	}
	if v := os.Getenv("TELEVATOR_SECONDS_PER_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Session.SecondsPerFloor = f
		}
	}
	if v, ok := os.LookupEnv("TELEVATOR_STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TELEVATOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TELEVATOR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
