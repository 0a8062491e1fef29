package models

import "time"

// GpsFix is a single positional sample on an activity track.
// Elevation and Speed are optional; a negative value means "not present"
// in the source data and is filled in by the geo enhancer.
type GpsFix struct {
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Elevation float64
	Speed     float64

	HasElevation bool
	HasSpeed     bool
}

// HeartRateSample is one bpm reading with its wall-clock timestamp.
// Valid bpm range is 1..250; anything outside is sensor noise.
type HeartRateSample struct {
	Timestamp time.Time
	BPM       int
}

const (
	MinValidBPM = 1
	MaxValidBPM = 250
)

// Valid reports whether the sample is inside the accepted bpm range.
func (s HeartRateSample) Valid() bool {
	return s.BPM >= MinValidBPM && s.BPM <= MaxValidBPM
}

// Activity is a raw activity record as parsed from a Fitbit export,
// before enrichment.
type Activity struct {
	LogID        int64
	Name         string
	Type         ActivityType
	StartTime    time.Time
	Duration     time.Duration
	Distance     float64 // meters
	Calories     int
	Steps        int
	AvgHeartRate int
	MaxHeartRate int

	Fixes   []GpsFix
	Samples []HeartRateSample

	// Fitbit activity logs may carry pre-bucketed zone minutes instead of
	// (or in addition to) raw samples.
	SourceZones []SourceZoneTime
}

// SourceZoneTime is time already bucketed by the source vendor into one of
// its named zones (Fat Burn / Cardio / Peak / Out of Range).
type SourceZoneTime struct {
	Name    string
	MinBPM  int
	MaxBPM  int
	Seconds float64
}

// EnrichedActivity is the immutable result of running one raw activity
// through the enrichment steps. It is built once and consumed by one
// encoder invocation per requested output format.
type EnrichedActivity struct {
	Activity

	Profile      UserProfile
	Distribution ZoneDistribution
	Zones        []HeartRateZone
}
