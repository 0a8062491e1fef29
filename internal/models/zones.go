package models

// UserProfile carries the physiological values zone boundaries are derived
// from. A profile returned by the estimator is always fully populated;
// Estimated is true when MaxHR came from a formula rather than the user.
type UserProfile struct {
	Age       int
	MaxHR     int
	RestingHR int
	Estimated bool
}

// HeartRateZone is one computed intensity band with concrete bpm bounds.
// The interval is [MinBPM, MaxBPM) within a zone sequence.
type HeartRateZone struct {
	Index  int
	Name   string
	MinBPM int
	MaxBPM int
}

// ZoneDistribution maps zone names to cumulative seconds spent, with
// sample accounting. It is derived per activity and never persisted on
// its own.
type ZoneDistribution struct {
	Seconds        map[string]float64
	TotalSamples   int
	MatchedSamples int
}

// Coverage is matched / total samples, 0 when the activity had no samples.
func (d ZoneDistribution) Coverage() float64 {
	if d.TotalSamples == 0 {
		return 0
	}
	return float64(d.MatchedSamples) / float64(d.TotalSamples)
}

// TotalSeconds sums time across all zones.
func (d ZoneDistribution) TotalSeconds() float64 {
	var total float64
	for _, s := range d.Seconds {
		total += s
	}
	return total
}

// Empty reports whether no sample landed in any zone.
func (d ZoneDistribution) Empty() bool {
	return d.MatchedSamples == 0 && d.TotalSeconds() == 0
}
