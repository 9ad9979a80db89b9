package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultMaxEpochs     = 50
	defaultStopThreshold = 0.1
	defaultCSVPath       = "logs.csv"
	defaultSamples       = 1000
	defaultSeed          = 1
	defaultDamping       = 0.25
	defaultLogLevel      = slog.LevelInfo
)

// Config controls the demo training run.
type Config struct {
	MaxEpochs     int
	StopThreshold float64
	CSVPath       string
	Samples       int
	Seed          int64
	Damping       float64
	LogLevel      slog.Level
}

func Default() Config {
	return Config{
		MaxEpochs:     defaultMaxEpochs,
		StopThreshold: defaultStopThreshold,
		CSVPath:       defaultCSVPath,
		Samples:       defaultSamples,
		Seed:          defaultSeed,
		Damping:       defaultDamping,
		LogLevel:      defaultLogLevel,
	}
}

// Load reads runtime configuration from environment variables.
func Load() (Config, error) {
	cfg := Default()

	if epochs := os.Getenv("POMEGRANATE_MAX_EPOCHS"); epochs != "" {
		parsed, err := strconv.Atoi(epochs)
		if err != nil {
			return Config{}, fmt.Errorf("parse POMEGRANATE_MAX_EPOCHS: %w", err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("parse POMEGRANATE_MAX_EPOCHS: value must be > 0")
		}
		cfg.MaxEpochs = parsed
	}
	if threshold := os.Getenv("POMEGRANATE_STOP_THRESHOLD"); threshold != "" {
		parsed, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse POMEGRANATE_STOP_THRESHOLD: %w", err)
		}
		cfg.StopThreshold = parsed
	}
	if path := strings.TrimSpace(os.Getenv("POMEGRANATE_CSV_PATH")); path != "" {
		cfg.CSVPath = path
	}
	if samples := os.Getenv("POMEGRANATE_SAMPLES"); samples != "" {
		parsed, err := strconv.Atoi(samples)
		if err != nil {
			return Config{}, fmt.Errorf("parse POMEGRANATE_SAMPLES: %w", err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("parse POMEGRANATE_SAMPLES: value must be > 0")
		}
		cfg.Samples = parsed
	}
	if seed := os.Getenv("POMEGRANATE_SEED"); seed != "" {
		parsed, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse POMEGRANATE_SEED: %w", err)
		}
		cfg.Seed = parsed
	}
	if damping := os.Getenv("POMEGRANATE_DAMPING"); damping != "" {
		parsed, err := strconv.ParseFloat(damping, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse POMEGRANATE_DAMPING: %w", err)
		}
		if parsed <= 0 || parsed > 1 {
			return Config{}, fmt.Errorf("parse POMEGRANATE_DAMPING: value must be in (0, 1]")
		}
		cfg.Damping = parsed
	}
	if level := strings.TrimSpace(os.Getenv("POMEGRANATE_LOG_LEVEL")); level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}

	return cfg, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("parse POMEGRANATE_LOG_LEVEL: unknown level %q", value)
	}
}
