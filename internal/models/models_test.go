package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tormoder/fit"
)

func TestParseActivityType(t *testing.T) {
	tests := []struct {
		name string
		want ActivityType
	}{
		{"Run", TypeRunning},
		{"  RUNNING ", TypeRunning},
		{"Outdoor Bike", TypeBiking},
		{"Rowing Machine", TypeRowing},
		{"Aerobic Workout", TypeWorkout},
		{"Interpretive Dance", TypeOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseActivityType(tt.name), tt.name)
	}
}

func TestSportMappings(t *testing.T) {
	assert.Equal(t, "Running", TypeTreadmill.TCXSport())
	assert.Equal(t, "Walking", TypeHiking.TCXSport())
	assert.Equal(t, "Other", TypeYoga.TCXSport())

	assert.Equal(t, fit.SportRunning, TypeTreadmill.FITSport())
	assert.Equal(t, fit.SportHiking, TypeHiking.FITSport())
	assert.Equal(t, fit.SportTraining, TypeYoga.FITSport())
	assert.Equal(t, fit.SportGeneric, TypeOther.FITSport())
}

func TestParseOutputFormat(t *testing.T) {
	f, ok := ParseOutputFormat(" TCX ")
	assert.True(t, ok)
	assert.Equal(t, FormatTCX, f)

	_, ok = ParseOutputFormat("xlsx")
	assert.False(t, ok)
}

func TestHeartRateSampleValid(t *testing.T) {
	assert.True(t, HeartRateSample{BPM: 1}.Valid())
	assert.True(t, HeartRateSample{BPM: 250}.Valid())
	assert.False(t, HeartRateSample{BPM: 0}.Valid())
	assert.False(t, HeartRateSample{BPM: 251}.Valid())
}

func TestZoneDistribution(t *testing.T) {
	var empty ZoneDistribution
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.Coverage())

	d := ZoneDistribution{
		Seconds:        map[string]float64{"Zone 1": 30, "Zone 2": 70},
		TotalSamples:   10,
		MatchedSamples: 8,
	}
	assert.False(t, d.Empty())
	assert.InDelta(t, 0.8, d.Coverage(), 1e-9)
	assert.InDelta(t, 100.0, d.TotalSeconds(), 1e-9)
}

func TestConversionError(t *testing.T) {
	cause := errors.New("boom")
	err := NewConversionError(KindEncodingFailure, 42, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), KindEncodingFailure.String())

	wrapped := fmt.Errorf("encode: %w", err)
	var convErr *ConversionError
	assert.ErrorAs(t, wrapped, &convErr)
	assert.Equal(t, int64(42), convErr.ActivityID)
}

func TestRunSummaryString(t *testing.T) {
	var s RunSummary
	s.DroppedFixes.Add(2)
	s.EncodingFailures.Add(1)
	assert.Equal(t, "dropped_fixes=2 rejected_samples=0 estimation_fallbacks=0 encoding_failures=1 fatal=0", s.String())
}
