// Package parser reads a Fitbit Google Takeout export tree and produces
// the raw records the conversion pipeline consumes. Takeout exports are
// messy: the same record kind can live under several directory names,
// timestamps come in at least three formats, and individual entries are
// frequently truncated. The parser skips what it cannot read and logs
// why, rather than failing the whole run.
package parser

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// Fitbit data directories show up under a few different roots depending
// on how the export was unpacked.
var fitbitRoots = []string{
	filepath.Join("Takeout", "Fitbit"),
	filepath.Join("Takeout 2", "Fitbit"),
	"Fitbit",
	".",
}

// Parser walks one unpacked Takeout tree.
type Parser struct {
	root   string
	logger *slog.Logger
	only   map[string]bool
}

// New locates the Fitbit directory under takeoutDir.
func New(takeoutDir string, logger *slog.Logger) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, sub := range fitbitRoots {
		candidate := filepath.Join(takeoutDir, sub)
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		// The bare directory itself only counts as an export root when
		// it actually holds JSON data, otherwise any directory would do.
		if sub == "." && !containsJSON(candidate) {
			continue
		}
		logger.Info("fitbit export located", "path", candidate)
		return &Parser{root: candidate, logger: logger}, nil
	}
	return nil, fmt.Errorf("no Fitbit data found under %s", takeoutDir)
}

func containsJSON(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// Root returns the resolved Fitbit directory.
func (p *Parser) Root() string { return p.root }

// Limit restricts activity parsing to the given source files, so a
// resumed run only converts activities from files it has not seen.
// Heart rate, sleep and daily metric files are still read in full:
// sample attachment and the summary exports need the whole export.
func (p *Parser) Limit(files []string) {
	p.only = make(map[string]bool, len(files))
	for _, f := range files {
		p.only[f] = true
	}
}

// ParseAll reads every supported record kind from the export.
func (p *Parser) ParseAll() (*models.TakeoutData, error) {
	activities, err := p.Activities()
	if err != nil {
		return nil, err
	}
	samples, err := p.HeartRateSamples()
	if err != nil {
		return nil, err
	}
	AttachSamples(activities, samples)

	sleep, err := p.Sleep()
	if err != nil {
		return nil, err
	}
	metrics, err := p.DailyMetrics()
	if err != nil {
		return nil, err
	}

	p.logger.Info("takeout parsed",
		"activities", len(activities),
		"heart_rate_samples", len(samples),
		"sleep_records", len(sleep),
		"daily_metrics", len(metrics))

	return &models.TakeoutData{
		Activities:   activities,
		Sleep:        sleep,
		DailyMetrics: metrics,
		HeartRate:    samples,
	}, nil
}

// SourceFiles returns every JSON file the parser would read, for the
// checkpoint ledger.
func (p *Parser) SourceFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk export tree: %w", err)
	}
	return files, nil
}

// rawActivity mirrors one entry of an exercise-*.json file.
type rawActivity struct {
	LogID             int64   `json:"logId"`
	ActivityName      string  `json:"activityName"`
	StartTime         string  `json:"startTime"`
	OriginalStartTime string  `json:"originalStartTime"`
	ActiveDuration    int64   `json:"activeDuration"`
	Duration          int64   `json:"duration"`
	Calories          int     `json:"calories"`
	Distance          float64 `json:"distance"` // kilometers
	Steps             int     `json:"steps"`
	AverageHeartRate  int     `json:"averageHeartRate"`
	MaxHeartRate      int     `json:"maxHeartRate"`

	HeartRateZones []struct {
		Name    string `json:"name"`
		Min     int    `json:"min"`
		Max     int    `json:"max"`
		Minutes int    `json:"minutes"`
	} `json:"heartRateZones"`
}

// Activities reads every activity log in the export.
func (p *Parser) Activities() ([]models.Activity, error) {
	files, err := p.matchFiles("exercise", "activity", "workout")
	if err != nil {
		return nil, err
	}

	var out []models.Activity
	for _, file := range files {
		if p.only != nil && !p.only[file] {
			continue
		}
		var raws []rawActivity
		if err := p.decodeList(file, &raws); err != nil {
			p.logger.Warn("skipping unreadable activity file", "file", file, "error", err)
			continue
		}
		for _, raw := range raws {
			act, err := raw.toActivity()
			if err != nil {
				p.logger.Warn("skipping activity entry", "file", file, "log_id", raw.LogID, "error", err)
				continue
			}
			out = append(out, act)
		}
	}
	p.logger.Debug("activities parsed", "files", len(files), "activities", len(out))
	return out, nil
}

func (r rawActivity) toActivity() (models.Activity, error) {
	startStr := r.StartTime
	if startStr == "" {
		startStr = r.OriginalStartTime
	}
	start, err := parseTime(startStr)
	if err != nil {
		return models.Activity{}, fmt.Errorf("bad start time %q: %w", startStr, err)
	}

	durationMS := r.ActiveDuration
	if durationMS == 0 {
		durationMS = r.Duration
	}

	act := models.Activity{
		LogID:        r.LogID,
		Name:         r.ActivityName,
		Type:         models.ParseActivityType(r.ActivityName),
		StartTime:    start,
		Duration:     time.Duration(durationMS) * time.Millisecond,
		Distance:     r.Distance * 1000,
		Calories:     r.Calories,
		Steps:        r.Steps,
		AvgHeartRate: r.AverageHeartRate,
		MaxHeartRate: r.MaxHeartRate,
	}
	for _, z := range r.HeartRateZones {
		act.SourceZones = append(act.SourceZones, models.SourceZoneTime{
			Name:    z.Name,
			MinBPM:  z.Min,
			MaxBPM:  z.Max,
			Seconds: float64(z.Minutes) * 60,
		})
	}
	return act, nil
}

// rawHeartRate mirrors one entry of a heart_rate-*.json file.
type rawHeartRate struct {
	DateTime string `json:"dateTime"`
	Value    struct {
		BPM        int `json:"bpm"`
		Confidence int `json:"confidence"`
	} `json:"value"`
}

// HeartRateSamples reads continuous heart rate readings, sorted by time.
func (p *Parser) HeartRateSamples() ([]models.HeartRateSample, error) {
	files, err := p.matchFiles("heart_rate")
	if err != nil {
		return nil, err
	}

	var out []models.HeartRateSample
	for _, file := range files {
		var raws []rawHeartRate
		if err := p.decodeList(file, &raws); err != nil {
			p.logger.Warn("skipping unreadable heart rate file", "file", file, "error", err)
			continue
		}
		for _, raw := range raws {
			ts, err := parseTime(raw.DateTime)
			if err != nil {
				continue
			}
			out = append(out, models.HeartRateSample{Timestamp: ts, BPM: raw.Value.BPM})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// AttachSamples assigns each activity the heart rate samples that fall
// inside its time window. Samples must be sorted by timestamp.
func AttachSamples(activities []models.Activity, samples []models.HeartRateSample) {
	for i := range activities {
		act := &activities[i]
		end := act.StartTime.Add(act.Duration)

		lo := sort.Search(len(samples), func(j int) bool {
			return !samples[j].Timestamp.Before(act.StartTime)
		})
		for j := lo; j < len(samples) && !samples[j].Timestamp.After(end); j++ {
			act.Samples = append(act.Samples, samples[j])
		}
	}
}

// rawSleep mirrors one entry of a sleep-*.json file.
type rawSleep struct {
	LogID         int64  `json:"logId"`
	DateOfSleep   string `json:"dateOfSleep"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Duration      int64  `json:"duration"`
	Efficiency    int    `json:"efficiency"`
	MinutesAsleep int    `json:"minutesAsleep"`
	MinutesAwake  int    `json:"minutesAwake"`
	TimeInBed     int    `json:"timeInBed"`
	MainSleep     bool   `json:"mainSleep"`
}

// Sleep reads every sleep log in the export.
func (p *Parser) Sleep() ([]models.SleepRecord, error) {
	files, err := p.matchFiles("sleep")
	if err != nil {
		return nil, err
	}

	var out []models.SleepRecord
	for _, file := range files {
		var raws []rawSleep
		if err := p.decodeList(file, &raws); err != nil {
			p.logger.Warn("skipping unreadable sleep file", "file", file, "error", err)
			continue
		}
		for _, raw := range raws {
			start, err := parseTime(raw.StartTime)
			if err != nil {
				continue
			}
			end, err := parseTime(raw.EndTime)
			if err != nil {
				continue
			}
			date, err := parseTime(raw.DateOfSleep)
			if err != nil {
				date = start
			}
			out = append(out, models.SleepRecord{
				LogID:         raw.LogID,
				DateOfSleep:   date,
				StartTime:     start,
				EndTime:       end,
				Duration:      time.Duration(raw.Duration) * time.Millisecond,
				Efficiency:    raw.Efficiency,
				MinutesAsleep: raw.MinutesAsleep,
				MinutesAwake:  raw.MinutesAwake,
				TimeInBed:     raw.TimeInBed,
				MainSleep:     raw.MainSleep,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// rawDaily mirrors one entry of an intraday counter file such as
// steps-*.json. Values arrive as strings in the export.
type rawDaily struct {
	DateTime string      `json:"dateTime"`
	Value    json.Number `json:"value"`
}

// rawRestingHR mirrors resting_heart_rate-*.json, which nests the value.
type rawRestingHR struct {
	DateTime string `json:"dateTime"`
	Value    struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	} `json:"value"`
}

// DailyMetrics aggregates intraday counter files into one record per day.
func (p *Parser) DailyMetrics() ([]models.DailyMetric, error) {
	byDay := make(map[string]*models.DailyMetric)
	metric := func(day time.Time) *models.DailyMetric {
		key := day.Format("2006-01-02")
		m, ok := byDay[key]
		if !ok {
			m = &models.DailyMetric{Date: day.Truncate(24 * time.Hour)}
			byDay[key] = m
		}
		return m
	}

	counters := []struct {
		keyword string
		apply   func(m *models.DailyMetric, v float64)
	}{
		{"steps", func(m *models.DailyMetric, v float64) { m.Steps += int(v) }},
		{"distance", func(m *models.DailyMetric, v float64) { m.DistanceMeters += v }},
		{"calories", func(m *models.DailyMetric, v float64) { m.CaloriesOut += int(v) }},
		{"floors", func(m *models.DailyMetric, v float64) { m.Floors += int(v) }},
	}

	for _, c := range counters {
		files, err := p.matchFiles(c.keyword)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			var raws []rawDaily
			if err := p.decodeList(file, &raws); err != nil {
				p.logger.Warn("skipping unreadable daily file", "file", file, "error", err)
				continue
			}
			for _, raw := range raws {
				ts, err := parseTime(raw.DateTime)
				if err != nil {
					continue
				}
				v, err := raw.Value.Float64()
				if err != nil {
					continue
				}
				c.apply(metric(ts), v)
			}
		}
	}

	rhrFiles, err := p.matchFiles("resting_heart_rate")
	if err != nil {
		return nil, err
	}
	for _, file := range rhrFiles {
		var raws []rawRestingHR
		if err := p.decodeList(file, &raws); err != nil {
			p.logger.Warn("skipping unreadable resting heart rate file", "file", file, "error", err)
			continue
		}
		for _, raw := range raws {
			ts, err := parseTime(raw.DateTime)
			if err != nil {
				continue
			}
			if raw.Value.Value > 0 {
				metric(ts).RestingHeartRate = int(raw.Value.Value)
			}
		}
	}

	out := make([]models.DailyMetric, 0, len(byDay))
	for _, m := range byDay {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// matchFiles returns JSON files whose base name contains any keyword.
// The resting_heart_rate prefix would otherwise also match heart_rate,
// so heart_rate matches are filtered to the exact prefix.
func (p *Parser) matchFiles(keywords ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		name := strings.ToLower(d.Name())
		for _, kw := range keywords {
			if kw == "heart_rate" && strings.HasPrefix(name, "resting_heart_rate") {
				continue
			}
			if strings.Contains(name, kw) {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk export tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// decodeList reads a JSON file that holds either a list of entries or a
// single entry.
func (p *Parser) decodeList(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool { return r == ' ' || r == '\n' || r == '\r' || r == '\t' })
	if strings.HasPrefix(trimmed, "{") {
		data = []byte("[" + trimmed + "]")
	}
	return json.Unmarshal(data, out)
}

// Takeout timestamp formats, most common first.
var timeLayouts = []string{
	"01/02/06 15:04:05",
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
