package models

import (
	"fmt"
	"sync/atomic"
)

// ErrorKind classifies conversion failures and degradations.
type ErrorKind int

const (
	// KindDataQuality marks a dropped or clamped sample/fix. Absorbed
	// locally and counted, never fatal.
	KindDataQuality ErrorKind = iota
	// KindEstimationFallback marks a profile value filled from defaults.
	KindEstimationFallback
	// KindEncodingFailure marks a malformed or empty activity for one
	// specific output format. Reported per activity.
	KindEncodingFailure
	// KindResourceExhaustion marks a breached memory ceiling. Triggers the
	// pipeline's sequential fallback.
	KindResourceExhaustion
	// KindFatal marks corrupt input that halts processing of one activity.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindDataQuality:
		return "data_quality"
	case KindEstimationFallback:
		return "estimation_fallback"
	case KindEncodingFailure:
		return "encoding_failure"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// ConversionError is an error with a kind and the activity it belongs to.
type ConversionError struct {
	Kind       ErrorKind
	ActivityID int64
	Err        error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: activity %d: %v", e.Kind, e.ActivityID, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// NewConversionError wraps err with a kind and activity id.
func NewConversionError(kind ErrorKind, activityID int64, err error) *ConversionError {
	return &ConversionError{Kind: kind, ActivityID: activityID, Err: err}
}

// RunSummary aggregates the non-fatal events absorbed during a run. Safe
// for concurrent use by pipeline workers.
type RunSummary struct {
	DroppedFixes        atomic.Int64
	RejectedSamples     atomic.Int64
	EstimationFallbacks atomic.Int64
	EncodingFailures    atomic.Int64
	FatalActivities     atomic.Int64
}

func (s *RunSummary) String() string {
	return fmt.Sprintf(
		"dropped_fixes=%d rejected_samples=%d estimation_fallbacks=%d encoding_failures=%d fatal=%d",
		s.DroppedFixes.Load(), s.RejectedSamples.Load(), s.EstimationFallbacks.Load(),
		s.EncodingFailures.Load(), s.FatalActivities.Load(),
	)
}
