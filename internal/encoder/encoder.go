// Package encoder assembles an enriched activity into the Garmin import
// encodings: CSV summary rows, TCX, GPX, and binary FIT. Column layouts,
// XML namespaces, and FIT field numbering are fixed compatibility
// contracts; changing them breaks downstream import.
package encoder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

var (
	// ErrEmptyActivity is returned instead of emitting a malformed file
	// when an activity has no encodable content for the format.
	ErrEmptyActivity = errors.New("empty activity")
	// ErrNoTrackData is returned for track formats when no GPS fixes exist.
	ErrNoTrackData = errors.New("no track data")
	// ErrUnsupportedFormat is returned for unknown output formats.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Encoder serializes enriched activities. Safe for concurrent use.
type Encoder struct {
	Logger *slog.Logger
}

// New returns an encoder logging through the given logger.
func New(logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{Logger: logger}
}

// Encode renders one activity into the requested format.
func (e *Encoder) Encode(act *models.EnrichedActivity, format models.OutputFormat) ([]byte, error) {
	switch format {
	case models.FormatCSV:
		return e.encodeCSV(act)
	case models.FormatGPX:
		return e.encodeGPX(act)
	case models.FormatTCX:
		return e.encodeTCX(act)
	case models.FormatFIT:
		return e.encodeFIT(act)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Filename returns the conventional output file name for an activity in
// the given format.
func Filename(act *models.EnrichedActivity, format models.OutputFormat) string {
	return fmt.Sprintf("%s_%d_%s.%s",
		act.Type, act.LogID, act.StartTime.UTC().Format("20060102_150405"), format)
}
