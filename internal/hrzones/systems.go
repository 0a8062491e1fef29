// Package hrzones derives heart-rate zone boundaries from a user profile
// and buckets sampled heart-rate readings into them.
package hrzones

import (
	"fmt"
	"strings"
)

// System is a closed enumeration of supported zone systems, resolved once
// at pipeline configuration time.
type System int

const (
	// GarminStandard is the 5-zone %max-HR partition Garmin Connect uses.
	GarminStandard System = iota
	// FiveZone is the classic 5-zone training partition over heart-rate
	// reserve (Karvonen bounds).
	FiveZone
	// FitbitMapped redistributes Fitbit's 3 source zones (fat burn, cardio,
	// peak) across the 5 Garmin zones by a fixed weight table.
	FitbitMapped
)

// ParseSystem resolves a configuration string to a System.
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "garmin", "garmin_standard", "garmin-standard":
		return GarminStandard, nil
	case "5zone", "five_zone", "five-zone":
		return FiveZone, nil
	case "fitbit", "fitbit_mapped", "fitbit-mapped":
		return FitbitMapped, nil
	}
	return 0, fmt.Errorf("unknown zone system %q", s)
}

func (s System) String() string {
	switch s {
	case GarminStandard:
		return "garmin_standard"
	case FiveZone:
		return "five_zone"
	case FitbitMapped:
		return "fitbit_mapped"
	}
	return "unknown"
}

// UsesReserve reports whether zone bounds are computed over heart-rate
// reserve (Karvonen) instead of %max-HR.
func (s System) UsesReserve() bool {
	return s == FiveZone
}

// band is one zone definition in percent of max HR (or HR reserve).
// The bpm interval derived from it is half-open: [low, high).
type band struct {
	name    string
	lowPct  int
	highPct int
}

var garminBands = []band{
	{"Active Recovery", 50, 60},
	{"Aerobic Base", 60, 70},
	{"Aerobic", 70, 80},
	{"Lactate Threshold", 80, 90},
	{"Neuromuscular", 90, 100},
}

var fiveZoneBands = []band{
	{"Recovery", 50, 60},
	{"Aerobic", 60, 70},
	{"Tempo", 70, 80},
	{"Threshold", 80, 90},
	{"Anaerobic", 90, 100},
}

// Fitbit's own partition, used when reclassifying raw samples under the
// FitbitMapped system is unavoidable (no source zone times in the log).
var fitbitBands = []band{
	{"Fat Burn", 50, 70},
	{"Cardio", 70, 85},
	{"Peak", 85, 100},
}

func (s System) bands() []band {
	switch s {
	case FiveZone:
		return fiveZoneBands
	case FitbitMapped:
		return fitbitBands
	default:
		return garminBands
	}
}

// ZoneCount is the number of zones the system produces on the Garmin side.
// FitbitMapped classifies into 3 source bands but always emits 5 zones.
func (s System) ZoneCount() int {
	if s == FitbitMapped {
		return 5
	}
	return len(s.bands())
}

// GarminZoneName is the output-side zone label for a 1-based index.
func GarminZoneName(index int) string {
	return fmt.Sprintf("Zone %d", index)
}

// RedistributionTable maps a source zone name to weighted shares of the
// five Garmin target zones. The weights are a policy choice, not a
// physiological law; alternate tables are accepted via configuration as
// long as each row sums to 1.
type RedistributionTable map[string][]ZoneShare

// ZoneShare assigns a fraction of a source zone's time to one target zone.
type ZoneShare struct {
	Target int // 1-based Garmin zone index
	Weight float64
}

// DefaultRedistribution splits fat-burn time across zones 1-2, cardio
// across zones 3-4, and maps peak onto zone 5. Out-of-range time is not
// redistributed.
func DefaultRedistribution() RedistributionTable {
	return RedistributionTable{
		"Fat Burn":     {{Target: 1, Weight: 0.6}, {Target: 2, Weight: 0.4}},
		"Cardio":       {{Target: 3, Weight: 0.5}, {Target: 4, Weight: 0.5}},
		"Peak":         {{Target: 5, Weight: 1.0}},
		"Out of Range": nil,
	}
}

// Validate checks that every row's weights sum to 1 (empty rows allowed)
// and reference valid target zones.
func (t RedistributionTable) Validate() error {
	for name, shares := range t {
		if len(shares) == 0 {
			continue
		}
		var sum float64
		for _, sh := range shares {
			if sh.Target < 1 || sh.Target > 5 {
				return fmt.Errorf("redistribution row %q: target zone %d out of range", name, sh.Target)
			}
			sum += sh.Weight
		}
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("redistribution row %q: weights sum to %.3f, want 1", name, sum)
		}
	}
	return nil
}
