// Package summary writes run-level exports alongside the per-activity
// files: daily counter CSVs, a sleep log CSV, a per-activity zone table
// CSV, and a columnar zone dataset in Parquet.
package summary

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// Exporter writes summary files under OutputDir.
type Exporter struct {
	OutputDir string
	Logger    *slog.Logger
}

// New returns an Exporter writing to dir.
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{OutputDir: dir, Logger: logger}
}

// ExportAll writes every summary file that has data. Returns the paths
// written.
func (e *Exporter) ExportAll(metrics []models.DailyMetric, sleep []models.SleepRecord, enriched []models.EnrichedActivity) ([]string, error) {
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	add := func(path string, err error) error {
		if err != nil {
			return err
		}
		if path != "" {
			written = append(written, path)
		}
		return nil
	}

	if err := add(e.DailyMetricsCSV(metrics)); err != nil {
		return written, err
	}
	if err := add(e.SleepCSV(sleep)); err != nil {
		return written, err
	}
	if err := add(e.ZoneTableCSV(enriched)); err != nil {
		return written, err
	}
	if err := add(e.ZoneParquet(enriched)); err != nil {
		return written, err
	}

	e.Logger.Info("summary export finished", "files", len(written))
	return written, nil
}

// DailyMetricsCSV writes fitbit_daily_metrics.csv, one row per day.
func (e *Exporter) DailyMetricsCSV(metrics []models.DailyMetric) (string, error) {
	if len(metrics) == 0 {
		return "", nil
	}
	path := filepath.Join(e.OutputDir, "fitbit_daily_metrics.csv")

	rows := [][]string{{"Date", "Steps", "Distance (km)", "Calories Burned", "Floors", "Resting HR"}}
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Date.Format("2006-01-02"),
			strconv.Itoa(m.Steps),
			strconv.FormatFloat(m.DistanceMeters/1000, 'f', 2, 64),
			strconv.Itoa(m.CaloriesOut),
			strconv.Itoa(m.Floors),
			strconv.Itoa(m.RestingHeartRate),
		})
	}
	if err := e.writeCSV(path, rows); err != nil {
		return "", err
	}
	e.Logger.Info("daily metrics exported", "file", path, "days", len(metrics))
	return path, nil
}

// SleepCSV writes fitbit_sleep.csv, one row per sleep log.
func (e *Exporter) SleepCSV(sleep []models.SleepRecord) (string, error) {
	if len(sleep) == 0 {
		return "", nil
	}
	path := filepath.Join(e.OutputDir, "fitbit_sleep.csv")

	rows := [][]string{{
		"Date", "Start Time", "End Time", "Duration (hours)",
		"Minutes Asleep", "Minutes Awake", "Sleep Efficiency", "Time in Bed",
	}}
	for _, s := range sleep {
		rows = append(rows, []string{
			s.DateOfSleep.Format("2006-01-02"),
			s.StartTime.Format("2006-01-02 15:04:05"),
			s.EndTime.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(s.Duration.Hours(), 'f', 2, 64),
			strconv.Itoa(s.MinutesAsleep),
			strconv.Itoa(s.MinutesAwake),
			strconv.Itoa(s.Efficiency),
			strconv.Itoa(s.TimeInBed),
		})
	}
	if err := e.writeCSV(path, rows); err != nil {
		return "", err
	}
	e.Logger.Info("sleep exported", "file", path, "records", len(sleep))
	return path, nil
}

// ZoneTableCSV writes fitbit_heart_rate_zones.csv, one row per activity
// per zone.
func (e *Exporter) ZoneTableCSV(enriched []models.EnrichedActivity) (string, error) {
	path := filepath.Join(e.OutputDir, "fitbit_heart_rate_zones.csv")

	rows := [][]string{{
		"Date", "Activity", "Activity Type", "Start Time", "Duration (minutes)",
		"Average HR", "Max HR", "Calculated Max HR", "Resting HR",
		"Zone Number", "Zone Name", "Min BPM", "Max BPM", "Time in Zone (minutes)",
	}}
	count := 0
	for _, act := range enriched {
		if act.Distribution.Empty() {
			continue
		}
		count++
		for _, z := range act.Zones {
			rows = append(rows, []string{
				act.StartTime.Format("2006-01-02"),
				act.Name,
				string(act.Type),
				act.StartTime.Format("15:04:05"),
				strconv.FormatFloat(act.Duration.Minutes(), 'f', 1, 64),
				strconv.Itoa(act.AvgHeartRate),
				strconv.Itoa(act.MaxHeartRate),
				strconv.Itoa(act.Profile.MaxHR),
				strconv.Itoa(act.Profile.RestingHR),
				strconv.Itoa(z.Index),
				z.Name,
				strconv.Itoa(z.MinBPM),
				strconv.Itoa(z.MaxBPM),
				strconv.FormatFloat(act.Distribution.Seconds[z.Name]/60, 'f', 2, 64),
			})
		}
	}
	if count == 0 {
		return "", nil
	}
	if err := e.writeCSV(path, rows); err != nil {
		return "", err
	}
	e.Logger.Info("zone table exported", "file", path, "activities", count)
	return path, nil
}

func (e *Exporter) writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
