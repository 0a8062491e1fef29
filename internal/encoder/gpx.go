package encoder

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// GPX is track geometry only: the format carries no heart-rate or zone
// data, so none is emitted.

type gpxFile struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Trk     gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Type     string       `xml:"type"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele,omitempty"`
	Time string   `xml:"time,omitempty"`
}

func (e *Encoder) encodeGPX(act *models.EnrichedActivity) ([]byte, error) {
	if len(act.Fixes) == 0 {
		return nil, fmt.Errorf("%w: activity %d has no GPS fixes", ErrNoTrackData, act.LogID)
	}

	points := make([]gpxPoint, 0, len(act.Fixes))
	for _, fix := range act.Fixes {
		p := gpxPoint{
			Lat:  fix.Latitude,
			Lon:  fix.Longitude,
			Time: fix.Timestamp.UTC().Format(time.RFC3339),
		}
		if fix.HasElevation {
			ele := fix.Elevation
			p.Ele = &ele
		}
		points = append(points, p)
	}

	doc := gpxFile{
		Version: "1.1",
		Creator: "fitbit2garmin-go",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Trk: gpxTrack{
			Name:     fmt.Sprintf("%s - %s", act.Name, act.StartTime.UTC().Format("2006-01-02 15:04")),
			Type:     string(act.Type),
			Segments: []gpxSegment{{Points: points}},
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
