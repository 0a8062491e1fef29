package encoder

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// Fixed TCX namespaces; part of the output contract.
const (
	tcxNamespace = "http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2"
	tcxExtension = "http://www.garmin.com/xmlschemas/ActivityExtension/v2"
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	tcxTimestamp = "2006-01-02T15:04:05.000Z"
)

type tcxDatabase struct {
	XMLName    xml.Name      `xml:"TrainingCenterDatabase"`
	Xmlns      string        `xml:"xmlns,attr"`
	XmlnsXsi   string        `xml:"xmlns:xsi,attr"`
	Activities tcxActivities `xml:"Activities"`
}

type tcxActivities struct {
	Activity tcxActivity `xml:"Activity"`
}

type tcxActivity struct {
	Sport   string      `xml:"Sport,attr"`
	ID      string      `xml:"Id"`
	Laps    []tcxLap    `xml:"Lap"`
	Notes   string      `xml:"Notes,omitempty"`
	Creator *tcxCreator `xml:"Creator,omitempty"`
}

type tcxLap struct {
	StartTime        string         `xml:"StartTime,attr"`
	TotalTimeSeconds float64        `xml:"TotalTimeSeconds"`
	DistanceMeters   float64        `xml:"DistanceMeters"`
	Calories         int            `xml:"Calories"`
	AverageHeartRate *tcxHeartRate  `xml:"AverageHeartRateBpm,omitempty"`
	MaximumHeartRate *tcxHeartRate  `xml:"MaximumHeartRateBpm,omitempty"`
	Intensity        string         `xml:"Intensity"`
	TriggerMethod    string         `xml:"TriggerMethod"`
	Track            tcxTrack       `xml:"Track"`
	Extensions       *tcxExtensions `xml:"Extensions,omitempty"`
}

type tcxHeartRate struct {
	Value int `xml:"Value"`
}

type tcxTrack struct {
	Trackpoints []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time           string        `xml:"Time"`
	Position       *tcxPosition  `xml:"Position,omitempty"`
	AltitudeMeters *float64      `xml:"AltitudeMeters,omitempty"`
	HeartRateBpm   *tcxHeartRate `xml:"HeartRateBpm,omitempty"`
}

type tcxPosition struct {
	LatitudeDegrees  float64 `xml:"LatitudeDegrees"`
	LongitudeDegrees float64 `xml:"LongitudeDegrees"`
}

type tcxExtensions struct {
	LX tcxLX `xml:"LX"`
}

type tcxLX struct {
	Xmlns string        `xml:"xmlns,attr"`
	Zones []tcxZoneTime `xml:"HeartRateZone"`
}

// tcxZoneTime carries the zone distribution as named zone/seconds pairs;
// tag and attribute names are a versioned vendor contract.
type tcxZoneTime struct {
	Index   int     `xml:"Index,attr"`
	Name    string  `xml:"Name,attr"`
	Low     int     `xml:"Low,attr"`
	High    int     `xml:"High,attr"`
	Seconds float64 `xml:"Seconds,attr"`
}

func (e *Encoder) encodeTCX(act *models.EnrichedActivity) ([]byte, error) {
	if len(act.Fixes) == 0 && len(act.Samples) == 0 && act.Distribution.Empty() {
		return nil, fmt.Errorf("%w: activity %d has no trackpoints or zone time", ErrEmptyActivity, act.LogID)
	}

	lap := tcxLap{
		StartTime:        act.StartTime.UTC().Format(tcxTimestamp),
		TotalTimeSeconds: act.Duration.Seconds(),
		DistanceMeters:   act.Distance,
		Calories:         act.Calories,
		Intensity:        "Active",
		TriggerMethod:    "Manual",
		Track:            tcxTrack{Trackpoints: e.trackpoints(act)},
	}
	if act.AvgHeartRate > 0 {
		lap.AverageHeartRate = &tcxHeartRate{Value: act.AvgHeartRate}
	}
	if act.MaxHeartRate > 0 {
		lap.MaximumHeartRate = &tcxHeartRate{Value: act.MaxHeartRate}
	}
	if !act.Distribution.Empty() {
		lap.Extensions = &tcxExtensions{LX: tcxLX{Xmlns: tcxExtension, Zones: zoneTimes(act)}}
	}

	doc := tcxDatabase{
		Xmlns:    tcxNamespace,
		XmlnsXsi: xsiNamespace,
		Activities: tcxActivities{
			Activity: tcxActivity{
				Sport: act.Type.TCXSport(),
				ID:    act.StartTime.UTC().Format(tcxTimestamp),
				Laps:  []tcxLap{lap},
				Notes: fmt.Sprintf("Fitbit Activity: %s | Log ID: %d", act.Name, act.LogID),
				Creator: &tcxCreator{
					XsiType: "Device_t",
					Name:    "fitbit2garmin-go",
					UnitID:  act.LogID,
				},
			},
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

type tcxCreator struct {
	XsiType string `xml:"xsi:type,attr"`
	Name    string `xml:"Name"`
	UnitID  int64  `xml:"UnitId"`
}

// trackpoints prefers GPS fixes; sample-only activities get time/HR
// trackpoints so Garmin still reconstructs an HR curve.
func (e *Encoder) trackpoints(act *models.EnrichedActivity) []tcxTrackpoint {
	if len(act.Fixes) > 0 {
		pts := make([]tcxTrackpoint, 0, len(act.Fixes))
		for _, fix := range act.Fixes {
			tp := tcxTrackpoint{
				Time: fix.Timestamp.UTC().Format(tcxTimestamp),
				Position: &tcxPosition{
					LatitudeDegrees:  fix.Latitude,
					LongitudeDegrees: fix.Longitude,
				},
			}
			if fix.HasElevation {
				alt := fix.Elevation
				tp.AltitudeMeters = &alt
			}
			pts = append(pts, tp)
		}
		return pts
	}

	pts := make([]tcxTrackpoint, 0, len(act.Samples))
	for _, s := range act.Samples {
		if !s.Valid() {
			continue
		}
		pts = append(pts, tcxTrackpoint{
			Time:         s.Timestamp.UTC().Format(tcxTimestamp),
			HeartRateBpm: &tcxHeartRate{Value: s.BPM},
		})
	}
	return pts
}

func zoneTimes(act *models.EnrichedActivity) []tcxZoneTime {
	zones := make([]tcxZoneTime, 0, len(act.Zones))
	for _, z := range act.Zones {
		seconds := act.Distribution.Seconds[z.Name]
		if seconds <= 0 {
			continue
		}
		zones = append(zones, tcxZoneTime{
			Index:   z.Index,
			Name:    z.Name,
			Low:     z.MinBPM,
			High:    z.MaxBPM,
			Seconds: seconds,
		})
	}
	return zones
}
