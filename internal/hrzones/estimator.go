package hrzones

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// Population fallbacks when no explicit value and no usable history exist.
const (
	defaultAge       = 40
	defaultRestingHR = 65

	restingFloor   = 40
	restingCeiling = 100
)

// Estimator derives a fully populated UserProfile from whatever explicit
// values and historical samples are available. Estimate never fails; the
// worst case is a population-average profile.
type Estimator struct {
	Formula Formula
	Logger  *slog.Logger
	Summary *models.RunSummary
}

// NewEstimator returns an estimator using the given formula.
func NewEstimator(formula Formula, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{Formula: formula, Logger: logger}
}

// Estimate resolves max HR and resting HR in priority order: explicit
// value, formula over explicit age, formula over an age inferred from the
// highest historical sample, population default.
func (e *Estimator) Estimate(explicit models.UserProfile, history []models.Activity) models.UserProfile {
	out := explicit

	samples := collectHistorySamples(history)

	switch {
	case explicit.MaxHR > 0:
		out.Estimated = false
	case explicit.Age > 0:
		out.MaxHR = e.Formula.MaxHR(explicit.Age)
		out.Estimated = true
	default:
		age := defaultAge
		if peak := peakBPM(samples); peak > 0 {
			age = ageFromMaxHR(peak)
		} else {
			e.fallback("no age, max HR, or history; using population default age")
		}
		out.Age = age
		out.MaxHR = e.Formula.MaxHR(age)
		out.Estimated = true
	}

	if out.RestingHR <= 0 {
		out.RestingHR = restingFromHistory(samples)
		if len(samples) == 0 {
			e.fallback("no history for resting HR; using population default")
		}
	}

	return out
}

func (e *Estimator) fallback(msg string) {
	e.Logger.Warn(msg, "event", models.KindEstimationFallback.String())
	if e.Summary != nil {
		e.Summary.EstimationFallbacks.Add(1)
	}
}

func collectHistorySamples(history []models.Activity) []float64 {
	var bpms []float64
	for _, act := range history {
		for _, s := range act.Samples {
			if s.Valid() {
				bpms = append(bpms, float64(s.BPM))
			}
		}
	}
	return bpms
}

func peakBPM(samples []float64) int {
	peak := 0.0
	for _, v := range samples {
		if v > peak {
			peak = v
		}
	}
	return int(peak)
}

// restingFromHistory takes the 5th percentile of all historical readings,
// clamped to a physiologically plausible band.
func restingFromHistory(samples []float64) int {
	if len(samples) == 0 {
		return defaultRestingHR
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	resting := int(stat.Quantile(0.05, stat.Empirical, sorted, nil))
	if resting < restingFloor {
		return restingFloor
	}
	if resting > restingCeiling {
		return restingCeiling
	}
	return resting
}
