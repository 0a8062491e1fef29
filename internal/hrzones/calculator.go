package hrzones

import (
	"log/slog"
	"math"
	"time"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// DefaultIntervalCap bounds the per-sample time credit so long sensor gaps
// do not inflate time-in-zone.
const DefaultIntervalCap = 60 * time.Second

// Calculator computes concrete zone boundaries for a profile and buckets
// heart-rate samples into them. The system and redistribution table are
// resolved once at construction, not per sample.
type Calculator struct {
	System      System
	Table       RedistributionTable
	IntervalCap time.Duration
	Logger      *slog.Logger
	Summary     *models.RunSummary
}

// NewCalculator returns a calculator for the given system with the default
// redistribution table and interval cap.
func NewCalculator(system System, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		System:      system,
		Table:       DefaultRedistribution(),
		IntervalCap: DefaultIntervalCap,
		Logger:      logger,
	}
}

// Boundaries derives bpm zone bounds from the profile. Percent-of-max
// systems scale max HR directly; reserve systems apply Karvonen bounds
// (resting + pct * (max - resting)).
func (c *Calculator) Boundaries(profile models.UserProfile) []models.HeartRateZone {
	bands := c.System.bands()
	zones := make([]models.HeartRateZone, 0, len(bands))
	for i, b := range bands {
		var low, high int
		if c.System.UsesReserve() {
			reserve := float64(profile.MaxHR - profile.RestingHR)
			low = profile.RestingHR + int(float64(b.lowPct)/100*reserve)
			high = profile.RestingHR + int(float64(b.highPct)/100*reserve)
		} else {
			low = int(float64(b.lowPct) / 100 * float64(profile.MaxHR))
			high = int(float64(b.highPct) / 100 * float64(profile.MaxHR))
		}
		zones = append(zones, models.HeartRateZone{
			Index:  i + 1,
			Name:   b.name,
			MinBPM: low,
			MaxBPM: high,
		})
	}
	return zones
}

// Classify assigns each valid sample to the unique zone whose [low, high)
// bpm interval contains it. Samples above the top zone are clamped into
// the top zone; samples below the bottom zone count toward the total but
// not the matched set. Classification is pure: the same samples and
// profile always yield the same distribution.
func (c *Calculator) Classify(profile models.UserProfile, samples []models.HeartRateSample) models.ZoneDistribution {
	zones := c.Boundaries(profile)
	dist := models.ZoneDistribution{Seconds: make(map[string]float64, len(zones))}
	for _, z := range zones {
		dist.Seconds[z.Name] = 0
	}

	valid := samples[:0:0]
	for _, s := range samples {
		dist.TotalSamples++
		if !s.Valid() {
			c.rejectSample(s)
			continue
		}
		valid = append(valid, s)
	}

	capSec := c.IntervalCap.Seconds()
	for i, s := range valid {
		interval := capSec
		switch {
		case i < len(valid)-1:
			gap := valid[i+1].Timestamp.Sub(s.Timestamp).Seconds()
			interval = math.Min(math.Max(gap, 0), capSec)
		case i > 0:
			// The last sample has no following gap; reuse the preceding one.
			gap := s.Timestamp.Sub(valid[i-1].Timestamp).Seconds()
			interval = math.Min(math.Max(gap, 0), capSec)
		}

		zone, ok := locate(zones, s.BPM)
		if !ok {
			// Below the bottom zone: counted, not matched.
			continue
		}
		dist.MatchedSamples++
		dist.Seconds[zone.Name] += interval
	}

	return dist
}

// locate finds the zone containing bpm, clamping readings above the top
// zone's upper bound into the top zone.
func locate(zones []models.HeartRateZone, bpm int) (models.HeartRateZone, bool) {
	if len(zones) == 0 {
		return models.HeartRateZone{}, false
	}
	if bpm < zones[0].MinBPM {
		return models.HeartRateZone{}, false
	}
	for _, z := range zones {
		if bpm >= z.MinBPM && bpm < z.MaxBPM {
			return z, true
		}
	}
	return zones[len(zones)-1], true
}

// Redistribute maps time already bucketed into Fitbit's source zones onto
// the five Garmin zones using the weight table. This is a deliberate
// approximation for logs that never expose raw bpm samples, not a
// reclassification.
func (c *Calculator) Redistribute(source []models.SourceZoneTime) models.ZoneDistribution {
	dist := models.ZoneDistribution{Seconds: make(map[string]float64, 5)}
	for i := 1; i <= 5; i++ {
		dist.Seconds[GarminZoneName(i)] = 0
	}
	for _, sz := range source {
		shares, ok := c.Table[sz.Name]
		if !ok {
			c.Logger.Warn("unknown source zone dropped",
				"event", models.KindDataQuality.String(), "zone", sz.Name)
			continue
		}
		for _, sh := range shares {
			dist.Seconds[GarminZoneName(sh.Target)] += sz.Seconds * sh.Weight
		}
	}
	return dist
}

// Distribute is the activity-level entry point. FitbitMapped prefers the
// source vendor's pre-bucketed zone times; every other system (and
// FitbitMapped logs without them) classifies raw samples.
func (c *Calculator) Distribute(profile models.UserProfile, act *models.Activity) (models.ZoneDistribution, []models.HeartRateZone) {
	if c.System == FitbitMapped && len(act.SourceZones) > 0 {
		dist := c.Redistribute(act.SourceZones)
		dist.TotalSamples = len(act.Samples)
		dist.MatchedSamples = len(act.Samples)
		return dist, garminOutputZones(c, profile)
	}
	return c.Classify(profile, act.Samples), c.Boundaries(profile)
}

// garminOutputZones renders the 5 output-side zone bounds for redistributed
// activities using the Garmin standard bands.
func garminOutputZones(c *Calculator, profile models.UserProfile) []models.HeartRateZone {
	gc := Calculator{System: GarminStandard, IntervalCap: c.IntervalCap, Logger: c.Logger}
	zones := gc.Boundaries(profile)
	for i := range zones {
		zones[i].Name = GarminZoneName(i + 1)
	}
	return zones
}

func (c *Calculator) rejectSample(s models.HeartRateSample) {
	c.Logger.Warn("heart-rate sample outside 1..250 rejected",
		"event", models.KindDataQuality.String(), "bpm", s.BPM)
	if c.Summary != nil {
		c.Summary.RejectedSamples.Add(1)
	}
}
