package summary

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

func testExporter(t *testing.T) *Exporter {
	t.Helper()
	return New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func enrichedFixture() []models.EnrichedActivity {
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	withZones := models.EnrichedActivity{
		Activity: models.Activity{
			LogID: 42, Name: "Morning Run", Type: models.TypeRunning,
			StartTime: start, Duration: 30 * time.Minute,
			AvgHeartRate: 150, MaxHeartRate: 172,
		},
		Profile: models.UserProfile{Age: 30, MaxHR: 187, RestingHR: 65, Estimated: true},
		Zones: []models.HeartRateZone{
			{Index: 1, Name: "Active Recovery", MinBPM: 93, MaxBPM: 112},
			{Index: 2, Name: "Aerobic Base", MinBPM: 112, MaxBPM: 130},
		},
		Distribution: models.ZoneDistribution{
			Seconds:        map[string]float64{"Active Recovery": 300, "Aerobic Base": 900},
			TotalSamples:   20,
			MatchedSamples: 20,
		},
	}
	empty := models.EnrichedActivity{
		Activity: models.Activity{LogID: 43, Name: "Ghost", StartTime: start.Add(time.Hour)},
	}
	return []models.EnrichedActivity{withZones, empty}
}

func TestDailyMetricsCSV(t *testing.T) {
	e := testExporter(t)
	metrics := []models.DailyMetric{
		{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Steps: 8000, DistanceMeters: 6200, CaloriesOut: 2100, RestingHeartRate: 58},
	}

	path, err := e.DailyMetricsCSV(metrics)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Steps", "Distance (km)", "Calories Burned", "Floors", "Resting HR"}, rows[0])
	assert.Equal(t, "2024-03-15", rows[1][0])
	assert.Equal(t, "8000", rows[1][1])
	assert.Equal(t, "6.20", rows[1][2])
	assert.Equal(t, "58", rows[1][5])
}

func TestDailyMetricsCSVEmpty(t *testing.T) {
	e := testExporter(t)
	path, err := e.DailyMetricsCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, path, "no file for no data")
}

func TestSleepCSV(t *testing.T) {
	e := testExporter(t)
	sleep := []models.SleepRecord{{
		LogID:         201,
		DateOfSleep:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		StartTime:     time.Date(2024, 3, 14, 23, 10, 0, 0, time.UTC),
		EndTime:       time.Date(2024, 3, 15, 7, 5, 0, 0, time.UTC),
		Duration:      475 * time.Minute,
		Efficiency:    92,
		MinutesAsleep: 440,
		MinutesAwake:  35,
		TimeInBed:     475,
	}}

	path, err := e.SleepCSV(sleep)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-15", rows[1][0])
	assert.Equal(t, "7.92", rows[1][3])
	assert.Equal(t, "440", rows[1][4])
}

func TestZoneTableCSV(t *testing.T) {
	e := testExporter(t)

	path, err := e.ZoneTableCSV(enrichedFixture())
	require.NoError(t, err)

	rows := readCSV(t, path)
	// Header plus one row per zone of the one activity with a
	// distribution; the empty activity is skipped.
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-15", rows[1][0])
	assert.Equal(t, "Morning Run", rows[1][1])
	assert.Equal(t, "1", rows[1][9])
	assert.Equal(t, "Active Recovery", rows[1][10])
	assert.Equal(t, "5.00", rows[1][13])
	assert.Equal(t, "Aerobic Base", rows[2][10])
	assert.Equal(t, "15.00", rows[2][13])
}

func TestZoneParquet(t *testing.T) {
	e := testExporter(t)

	path, err := e.ZoneParquet(enrichedFixture())
	require.NoError(t, err)
	require.NotEmpty(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	data, rows, err := marshalZoneParquet(enrichedFixture())
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	// Parquet files end with the PAR1 magic.
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestZoneParquetEmpty(t *testing.T) {
	e := testExporter(t)
	path, err := e.ZoneParquet(nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestExportAll(t *testing.T) {
	e := testExporter(t)
	metrics := []models.DailyMetric{{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Steps: 100}}

	written, err := e.ExportAll(metrics, nil, enrichedFixture())
	require.NoError(t, err)
	// Daily metrics, zone table, zone parquet; no sleep file without data.
	assert.Len(t, written, 3)
	for _, path := range written {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
}
