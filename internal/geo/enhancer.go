// Package geo reconstructs missing motion attributes (speed, elevation,
// cumulative distance) on sequences of GPS fixes.
package geo

import (
	"log/slog"
	"math"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

const earthRadiusMeters = 6371000

// Enhancer fills gaps in GPS tracks. Invalid fixes are dropped and logged
// as data-quality events; Enhance never fails.
type Enhancer struct {
	Logger  *slog.Logger
	Summary *models.RunSummary
}

// NewEnhancer returns an enhancer logging through the given logger.
func NewEnhancer(logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{Logger: logger}
}

// Result carries the cleaned track and its accumulated distance.
type Result struct {
	Fixes    []models.GpsFix
	Distance float64 // meters, monotone sum of per-segment distances
}

// Enhance returns the track with invalid fixes removed, missing speeds
// computed from adjacent great-circle segments, and elevation gaps filled
// by holding the last known value forward. The output is the same length
// as the input or shorter.
func (e *Enhancer) Enhance(activityID int64, fixes []models.GpsFix) Result {
	out := make([]models.GpsFix, 0, len(fixes))

	var (
		lastSpeed     float64
		lastElevation float64
		haveElevation bool
		distance      float64
	)

	for _, fix := range fixes {
		if !finiteCoords(fix) {
			e.drop(activityID, fix, "non-finite coordinates")
			continue
		}
		if n := len(out); n > 0 && fix.Timestamp.Before(out[n-1].Timestamp) {
			e.drop(activityID, fix, "timestamp regression")
			continue
		}

		// Sensor dropout: hold the last known elevation, no interpolation.
		if fix.HasElevation {
			lastElevation = fix.Elevation
			haveElevation = true
		} else if haveElevation {
			fix.Elevation = lastElevation
			fix.HasElevation = true
		}

		if n := len(out); n > 0 {
			prev := out[n-1]
			seg := Haversine(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
			distance += seg

			if !fix.HasSpeed {
				dt := fix.Timestamp.Sub(prev.Timestamp).Seconds()
				speed := 0.0
				if dt > 0 {
					speed = seg / dt
				}
				if dt <= 0 || math.IsInf(speed, 0) || math.IsNaN(speed) || speed < 0 {
					speed = lastSpeed
				}
				fix.Speed = speed
				fix.HasSpeed = true
			}
		} else if !fix.HasSpeed {
			fix.Speed = 0
			fix.HasSpeed = true
		}

		lastSpeed = fix.Speed
		out = append(out, fix)
	}

	return Result{Fixes: out, Distance: distance}
}

func (e *Enhancer) drop(activityID int64, fix models.GpsFix, reason string) {
	e.Logger.Warn("gps fix dropped",
		"event", models.KindDataQuality.String(),
		"activity_id", activityID,
		"reason", reason,
		"lat", fix.Latitude,
		"lon", fix.Longitude,
	)
	if e.Summary != nil {
		e.Summary.DroppedFixes.Add(1)
	}
}

func finiteCoords(fix models.GpsFix) bool {
	return !math.IsNaN(fix.Latitude) && !math.IsInf(fix.Latitude, 0) &&
		!math.IsNaN(fix.Longitude) && !math.IsInf(fix.Longitude, 0)
}

// Haversine returns the great-circle distance in meters between two
// latitude/longitude pairs.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
