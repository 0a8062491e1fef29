// Package config assembles runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sstent/fitbit2garmin-go/internal/hrzones"
	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// Config is the configuration surface the converter consumes.
type Config struct {
	TakeoutDir string
	OutputDir  string

	ZoneSystem hrzones.System
	Formula    hrzones.Formula
	Formats    []models.OutputFormat

	// Workers overrides the detected worker count; 0 means auto.
	Workers int
	// MemoryCeilingMB is the available-memory floor below which the
	// pipeline runs sequentially.
	MemoryCeilingMB uint64

	CheckpointPath string
	WatchSchedule  string
	LogFormat      string // "text" or "json"
}

// Defaults mirrors the environment-free configuration.
func Defaults() Config {
	return Config{
		TakeoutDir:      "./takeout",
		OutputDir:       "./output",
		ZoneSystem:      hrzones.GarminStandard,
		Formula:         hrzones.Tanaka,
		Formats:         append([]models.OutputFormat(nil), models.AllFormats...),
		Workers:         0,
		MemoryCeilingMB: 512,
		CheckpointPath:  "./output/fitbit2garmin.db",
		WatchSchedule:   "@hourly",
		LogFormat:       "text",
	}
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if v := os.Getenv("TAKEOUT_DIR"); v != "" {
		cfg.TakeoutDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("CHECKPOINT_PATH"); v != "" {
		cfg.CheckpointPath = v
	}
	if v := os.Getenv("WATCH_SCHEDULE"); v != "" {
		cfg.WatchSchedule = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := os.Getenv("ZONE_SYSTEM"); v != "" {
		system, err := hrzones.ParseSystem(v)
		if err != nil {
			return cfg, fmt.Errorf("ZONE_SYSTEM: %w", err)
		}
		cfg.ZoneSystem = system
	}
	if v := os.Getenv("HR_FORMULA"); v != "" {
		formula, err := hrzones.ParseFormula(v)
		if err != nil {
			return cfg, fmt.Errorf("HR_FORMULA: %w", err)
		}
		cfg.Formula = formula
	}
	if v := os.Getenv("FORMATS"); v != "" {
		formats, err := ParseFormats(v)
		if err != nil {
			return cfg, err
		}
		cfg.Formats = formats
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("WORKERS: invalid value %q", v)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("MEMORY_CEILING_MB"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("MEMORY_CEILING_MB: invalid value %q", v)
		}
		cfg.MemoryCeilingMB = n
	}

	return cfg, nil
}

// ParseFormats splits a comma-separated format list.
func ParseFormats(s string) ([]models.OutputFormat, error) {
	var formats []models.OutputFormat
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, ok := models.ParseOutputFormat(part)
		if !ok {
			return nil, fmt.Errorf("unknown output format %q", part)
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats selected")
	}
	return formats, nil
}
