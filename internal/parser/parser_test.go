package parser

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const exerciseJSON = `[
  {
    "logId": 101,
    "activityName": "Run",
    "startTime": "03/15/24 08:00:00",
    "activeDuration": 1800000,
    "calories": 320,
    "distance": 5.2,
    "steps": 4200,
    "averageHeartRate": 150,
    "maxHeartRate": 172,
    "heartRateZones": [
      {"name": "Fat Burn", "min": 98, "max": 123, "minutes": 10},
      {"name": "Cardio", "min": 123, "max": 152, "minutes": 15},
      {"name": "Peak", "min": 152, "max": 220, "minutes": 5}
    ]
  },
  {
    "logId": 102,
    "activityName": "Mystery",
    "activeDuration": 60000
  }
]`

const heartRateJSON = `[
  {"dateTime": "03/15/24 08:00:00", "value": {"bpm": 148, "confidence": 2}},
  {"dateTime": "03/15/24 08:10:00", "value": {"bpm": 155, "confidence": 3}},
  {"dateTime": "03/15/24 09:30:00", "value": {"bpm": 72, "confidence": 3}}
]`

const sleepJSON = `[
  {
    "logId": 201,
    "dateOfSleep": "2024-03-15",
    "startTime": "2024-03-14T23:10:00.000",
    "endTime": "2024-03-15T07:05:00.000",
    "duration": 28500000,
    "efficiency": 92,
    "minutesAsleep": 440,
    "minutesAwake": 35,
    "timeInBed": 475,
    "mainSleep": true
  }
]`

const stepsJSON = `[
  {"dateTime": "03/15/24 08:00:00", "value": "3000"},
  {"dateTime": "03/15/24 12:00:00", "value": "5000"},
  {"dateTime": "03/16/24 09:00:00", "value": "7000"}
]`

func writeExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Takeout", "Fitbit", "Global Export Data")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	files := map[string]string{
		"exercise-0.json":            exerciseJSON,
		"heart_rate-2024-03-15.json": heartRateJSON,
		"sleep-2024-03-01.json":      sleepJSON,
		"steps-2024-03-15.json":      stepsJSON,
		"not-json.txt":               "ignore me",
		"exercise-broken.json":       "{not valid json",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return root
}

func TestNewLocatesFitbitDir(t *testing.T) {
	root := writeExport(t)
	p, err := New(root, testLogger())
	require.NoError(t, err)
	assert.Contains(t, p.Root(), filepath.Join("Takeout", "Fitbit"))

	_, err = New(t.TempDir(), testLogger())
	assert.Error(t, err)

	// A directory that holds export JSON directly is itself a valid root.
	bare := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bare, "exercise-0.json"), []byte("[]"), 0o644))
	p, err = New(bare, testLogger())
	require.NoError(t, err)
	assert.Equal(t, bare, p.Root())
}

func TestActivities(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	acts, err := p.Activities()
	require.NoError(t, err)
	// The broken file is skipped; the entry without a start time is
	// dropped individually.
	require.Len(t, acts, 1)

	act := acts[0]
	assert.Equal(t, int64(101), act.LogID)
	assert.Equal(t, models.TypeRunning, act.Type)
	assert.Equal(t, 30*time.Minute, act.Duration)
	assert.InDelta(t, 5200.0, act.Distance, 1e-9, "distance converts from km to meters")
	assert.Equal(t, 320, act.Calories)
	assert.Equal(t, 150, act.AvgHeartRate)

	require.Len(t, act.SourceZones, 3)
	assert.Equal(t, "Cardio", act.SourceZones[1].Name)
	assert.InDelta(t, 900.0, act.SourceZones[1].Seconds, 1e-9, "zone minutes convert to seconds")
}

func TestActivitiesLimit(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	p.Limit(nil)
	acts, err := p.Activities()
	require.NoError(t, err)
	assert.Empty(t, acts, "no files selected means no activities")

	exercise := filepath.Join(p.Root(), "Global Export Data", "exercise-0.json")
	p.Limit([]string{exercise})
	acts, err = p.Activities()
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, int64(101), acts[0].LogID)

	// Heart rate stays unrestricted so attachment keeps working.
	samples, err := p.HeartRateSamples()
	require.NoError(t, err)
	assert.Len(t, samples, 3)
}

func TestHeartRateSamplesAndAttach(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	samples, err := p.HeartRateSamples()
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].Timestamp.Before(samples[1].Timestamp))

	acts, err := p.Activities()
	require.NoError(t, err)
	AttachSamples(acts, samples)

	// Only the two readings inside the 08:00-08:30 window attach.
	require.Len(t, acts[0].Samples, 2)
	assert.Equal(t, 148, acts[0].Samples[0].BPM)
	assert.Equal(t, 155, acts[0].Samples[1].BPM)
}

func TestSleep(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	sleep, err := p.Sleep()
	require.NoError(t, err)
	require.Len(t, sleep, 1)

	s := sleep[0]
	assert.Equal(t, int64(201), s.LogID)
	assert.Equal(t, 92, s.Efficiency)
	assert.Equal(t, 440, s.MinutesAsleep)
	assert.True(t, s.MainSleep)
	assert.Equal(t, 475, s.TimeInBed)
}

func TestDailyMetricsAggregation(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	metrics, err := p.DailyMetrics()
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	assert.Equal(t, 8000, metrics[0].Steps, "intraday entries sum per day")
	assert.Equal(t, 7000, metrics[1].Steps)
	assert.True(t, metrics[0].Date.Before(metrics[1].Date))
}

func TestParseAll(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	data, err := p.ParseAll()
	require.NoError(t, err)
	assert.Len(t, data.Activities, 1)
	assert.Len(t, data.HeartRate, 3)
	assert.Len(t, data.Sleep, 1)
	assert.NotEmpty(t, data.DailyMetrics)
	assert.Len(t, data.Activities[0].Samples, 2, "samples attach during ParseAll")
}

func TestSourceFiles(t *testing.T) {
	p, err := New(writeExport(t), testLogger())
	require.NoError(t, err)

	files, err := p.SourceFiles()
	require.NoError(t, err)
	assert.Len(t, files, 5, "only .json files count as sources")
}

func TestParseTimeFormats(t *testing.T) {
	for _, s := range []string{
		"03/15/24 08:00:00",
		"2024-03-15T08:00:00.000",
		"2024-03-15T08:00:00Z",
		"2024-03-15",
	} {
		ts, err := parseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, ts.Year())
		assert.Equal(t, time.March, ts.Month())
	}

	_, err := parseTime("")
	assert.Error(t, err)
	_, err = parseTime("next tuesday")
	assert.Error(t, err)
}
