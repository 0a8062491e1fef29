package hrzones

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func steadySamples(start time.Time, n, bpm int, gap time.Duration) []models.HeartRateSample {
	out := make([]models.HeartRateSample, n)
	for i := range out {
		out[i] = models.HeartRateSample{Timestamp: start.Add(time.Duration(i) * gap), BPM: bpm}
	}
	return out
}

func TestBoundariesGarminStandard(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}

	zones := calc.Boundaries(profile)
	require.Len(t, zones, 5)

	want := []models.HeartRateZone{
		{Index: 1, Name: "Active Recovery", MinBPM: 93, MaxBPM: 112},
		{Index: 2, Name: "Aerobic Base", MinBPM: 112, MaxBPM: 130},
		{Index: 3, Name: "Aerobic", MinBPM: 130, MaxBPM: 149},
		{Index: 4, Name: "Lactate Threshold", MinBPM: 149, MaxBPM: 168},
		{Index: 5, Name: "Neuromuscular", MinBPM: 168, MaxBPM: 187},
	}
	assert.Equal(t, want, zones)
}

func TestBoundariesKarvonen(t *testing.T) {
	calc := NewCalculator(FiveZone, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}

	zones := calc.Boundaries(profile)
	require.Len(t, zones, 5)

	// reserve = 122; bound = resting + pct * reserve
	assert.Equal(t, 126, zones[0].MinBPM)
	assert.Equal(t, 138, zones[0].MaxBPM)
	assert.Equal(t, 187, zones[4].MaxBPM)
	assert.Equal(t, "Recovery", zones[0].Name)
	assert.Equal(t, "Anaerobic", zones[4].Name)
}

func TestBoundariesContiguous(t *testing.T) {
	profiles := []models.UserProfile{
		{MaxHR: 187, RestingHR: 65},
		{MaxHR: 200, RestingHR: 48},
		{MaxHR: 160, RestingHR: 70},
	}
	for _, system := range []System{GarminStandard, FiveZone, FitbitMapped} {
		calc := NewCalculator(system, testLogger())
		for _, profile := range profiles {
			zones := calc.Boundaries(profile)
			for i := 1; i < len(zones); i++ {
				assert.Equal(t, zones[i-1].MaxBPM, zones[i].MinBPM,
					"system %s: zone %d must start where zone %d ends", system, i+1, i)
			}
			for _, z := range zones {
				assert.Less(t, z.MinBPM, z.MaxBPM, "system %s: zone %q", system, z.Name)
			}
		}
	}
}

func TestClassifySteadyRun(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}

	// 10 samples at 150 bpm, 10 seconds apart. 150 sits in the fourth
	// Garmin zone for max HR 187; each sample credits its gap.
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	dist := calc.Classify(profile, steadySamples(start, 10, 150, 10*time.Second))

	assert.Equal(t, 10, dist.TotalSamples)
	assert.Equal(t, 10, dist.MatchedSamples)
	assert.InDelta(t, 100.0, dist.Seconds["Lactate Threshold"], 1e-9)
	assert.InDelta(t, 100.0, dist.TotalSeconds(), 1e-9)
}

func TestClassifyGapCap(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}

	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	dist := calc.Classify(profile, steadySamples(start, 2, 150, 5*time.Minute))

	// A 300s sensor gap credits at most the 60s cap per sample.
	assert.InDelta(t, 120.0, dist.TotalSeconds(), 1e-9)
}

func TestClassifySingleSample(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}

	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	dist := calc.Classify(profile, steadySamples(start, 1, 150, 0))

	assert.InDelta(t, 60.0, dist.TotalSeconds(), 1e-9)
}

func TestClassifyClampAndFloor(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	samples := []models.HeartRateSample{
		{Timestamp: start, BPM: 210},                       // above top: clamped into zone 5
		{Timestamp: start.Add(10 * time.Second), BPM: 80},  // below zone 1: counted, unmatched
		{Timestamp: start.Add(20 * time.Second), BPM: 150}, // zone 4
	}
	dist := calc.Classify(profile, samples)

	assert.Equal(t, 3, dist.TotalSamples)
	assert.Equal(t, 2, dist.MatchedSamples)
	assert.InDelta(t, 10.0, dist.Seconds["Neuromuscular"], 1e-9)
	assert.InDelta(t, 10.0, dist.Seconds["Lactate Threshold"], 1e-9)
}

func TestClassifyRejectsInvalidSamples(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	calc.Summary = &models.RunSummary{}
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	samples := []models.HeartRateSample{
		{Timestamp: start, BPM: 0},
		{Timestamp: start.Add(10 * time.Second), BPM: 150},
		{Timestamp: start.Add(20 * time.Second), BPM: 300},
	}
	dist := calc.Classify(profile, samples)

	assert.Equal(t, 3, dist.TotalSamples)
	assert.Equal(t, 1, dist.MatchedSamples)
	assert.Equal(t, int64(2), calc.Summary.RejectedSamples.Load())
}

func TestClassifyIdempotent(t *testing.T) {
	calc := NewCalculator(GarminStandard, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	samples := steadySamples(start, 50, 142, 7*time.Second)

	first := calc.Classify(profile, samples)
	second := calc.Classify(profile, samples)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("classification not deterministic (-first +second):\n%s", diff)
	}
}

func TestRedistribute(t *testing.T) {
	calc := NewCalculator(FitbitMapped, testLogger())

	source := []models.SourceZoneTime{
		{Name: "Fat Burn", Seconds: 600},
		{Name: "Cardio", Seconds: 600},
		{Name: "Peak", Seconds: 300},
		{Name: "Out of Range", Seconds: 1200},
	}
	dist := calc.Redistribute(source)

	assert.InDelta(t, 360.0, dist.Seconds["Zone 1"], 1e-9)
	assert.InDelta(t, 240.0, dist.Seconds["Zone 2"], 1e-9)
	assert.InDelta(t, 300.0, dist.Seconds["Zone 3"], 1e-9)
	assert.InDelta(t, 300.0, dist.Seconds["Zone 4"], 1e-9)
	assert.InDelta(t, 300.0, dist.Seconds["Zone 5"], 1e-9)
	// Out-of-range time is dropped, not redistributed.
	assert.InDelta(t, 1500.0, dist.TotalSeconds(), 1e-9)
}

func TestDistributePrefersSourceZones(t *testing.T) {
	calc := NewCalculator(FitbitMapped, testLogger())
	profile := models.UserProfile{MaxHR: 187, RestingHR: 65}
	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	act := models.Activity{
		LogID:     1,
		StartTime: start,
		Samples:   steadySamples(start, 5, 150, 10*time.Second),
		SourceZones: []models.SourceZoneTime{
			{Name: "Peak", Seconds: 120},
		},
	}

	dist, zones := calc.Distribute(profile, &act)
	assert.InDelta(t, 120.0, dist.Seconds["Zone 5"], 1e-9)
	require.Len(t, zones, 5)
	assert.Equal(t, "Zone 1", zones[0].Name)

	// Without source zones the same system classifies raw samples over
	// Fitbit's own bands.
	act.SourceZones = nil
	dist, zones = calc.Distribute(profile, &act)
	require.Len(t, zones, 3)
	assert.Positive(t, dist.MatchedSamples)
}

func TestRedistributionTableValidate(t *testing.T) {
	require.NoError(t, DefaultRedistribution().Validate())

	bad := RedistributionTable{
		"Cardio": {{Target: 3, Weight: 0.5}, {Target: 4, Weight: 0.7}},
	}
	assert.Error(t, bad.Validate())

	outOfRange := RedistributionTable{
		"Peak": {{Target: 6, Weight: 1.0}},
	}
	assert.Error(t, outOfRange.Validate())
}
