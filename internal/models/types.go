package models

import (
	"strings"

	"github.com/tormoder/fit"
)

// ActivityType is the internal activity classification, matching the set of
// activity names a Fitbit export can produce.
type ActivityType string

const (
	TypeRunning      ActivityType = "running"
	TypeWalking      ActivityType = "walking"
	TypeBiking       ActivityType = "biking"
	TypeHiking       ActivityType = "hiking"
	TypeSwimming     ActivityType = "swimming"
	TypeTreadmill    ActivityType = "treadmill"
	TypeElliptical   ActivityType = "elliptical"
	TypeRowing       ActivityType = "rowing"
	TypeWorkout      ActivityType = "workout"
	TypeYoga         ActivityType = "yoga"
	TypeWeights      ActivityType = "weights"
	TypeTennis       ActivityType = "tennis"
	TypeBasketball   ActivityType = "basketball"
	TypeSoccer       ActivityType = "soccer"
	TypeFootball     ActivityType = "football"
	TypeGolf         ActivityType = "golf"
	TypeSkiing       ActivityType = "skiing"
	TypeSnowboarding ActivityType = "snowboarding"
	TypeBoxing       ActivityType = "boxing"
	TypeClimbing     ActivityType = "climbing"
	TypeOther        ActivityType = "other"
)

var activityNameMap = map[string]ActivityType{
	"run":              TypeRunning,
	"running":          TypeRunning,
	"jog":              TypeRunning,
	"walk":             TypeWalking,
	"walking":          TypeWalking,
	"bike":             TypeBiking,
	"biking":           TypeBiking,
	"cycling":          TypeBiking,
	"outdoor bike":     TypeBiking,
	"hike":             TypeHiking,
	"hiking":           TypeHiking,
	"swim":             TypeSwimming,
	"swimming":         TypeSwimming,
	"treadmill":        TypeTreadmill,
	"elliptical":       TypeElliptical,
	"rowing":           TypeRowing,
	"rowing machine":   TypeRowing,
	"workout":          TypeWorkout,
	"aerobic workout":  TypeWorkout,
	"circuit training": TypeWorkout,
	"yoga":             TypeYoga,
	"weights":          TypeWeights,
	"weightlifting":    TypeWeights,
	"tennis":           TypeTennis,
	"basketball":       TypeBasketball,
	"soccer":           TypeSoccer,
	"football":         TypeFootball,
	"golf":             TypeGolf,
	"skiing":           TypeSkiing,
	"snowboarding":     TypeSnowboarding,
	"boxing":           TypeBoxing,
	"climbing":         TypeClimbing,
	"rock climbing":    TypeClimbing,
}

// ParseActivityType maps a Fitbit activity name to an ActivityType,
// falling back to TypeOther for anything unrecognised.
func ParseActivityType(name string) ActivityType {
	if t, ok := activityNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return TypeOther
}

// TCXSport returns the Sport attribute value Garmin Connect recognises for
// this activity type. Garmin imports hiking as walking and treadmill runs
// as running; everything it has no category for imports best as "Other".
func (t ActivityType) TCXSport() string {
	switch t {
	case TypeRunning, TypeTreadmill:
		return "Running"
	case TypeWalking, TypeHiking:
		return "Walking"
	case TypeBiking:
		return "Biking"
	case TypeSwimming:
		return "Swimming"
	default:
		return "Other"
	}
}

// FITSport returns the FIT profile sport code for this activity type.
func (t ActivityType) FITSport() fit.Sport {
	switch t {
	case TypeRunning, TypeTreadmill:
		return fit.SportRunning
	case TypeWalking:
		return fit.SportWalking
	case TypeBiking:
		return fit.SportCycling
	case TypeHiking:
		return fit.SportHiking
	case TypeSwimming:
		return fit.SportSwimming
	case TypeElliptical:
		return fit.SportFitnessEquipment
	case TypeRowing:
		return fit.SportRowing
	case TypeTennis:
		return fit.SportTennis
	case TypeBasketball:
		return fit.SportBasketball
	case TypeSoccer:
		return fit.SportSoccer
	case TypeFootball:
		return fit.SportAmericanFootball
	case TypeGolf:
		return fit.SportGolf
	case TypeSkiing:
		return fit.SportAlpineSkiing
	case TypeSnowboarding:
		return fit.SportSnowboarding
	case TypeBoxing:
		return fit.SportBoxing
	case TypeClimbing:
		return fit.SportRockClimbing
	case TypeWorkout, TypeYoga, TypeWeights:
		return fit.SportTraining
	default:
		return fit.SportGeneric
	}
}

// OutputFormat selects one of the supported Garmin import encodings.
type OutputFormat string

const (
	FormatCSV OutputFormat = "csv"
	FormatTCX OutputFormat = "tcx"
	FormatGPX OutputFormat = "gpx"
	FormatFIT OutputFormat = "fit"
)

// AllFormats lists every supported output format.
var AllFormats = []OutputFormat{FormatCSV, FormatTCX, FormatGPX, FormatFIT}

// ParseOutputFormat validates a format name from configuration.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, true
	case FormatTCX:
		return FormatTCX, true
	case FormatGPX:
		return FormatGPX, true
	case FormatFIT:
		return FormatFIT, true
	}
	return "", false
}
