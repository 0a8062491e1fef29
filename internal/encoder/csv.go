package encoder

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// csvHeader is a compatibility contract: downstream imports key on exact
// column names and order.
var csvHeader = []string{
	"Log ID",
	"Date",
	"Start Time",
	"Activity",
	"Activity Type",
	"Duration (seconds)",
	"Distance (meters)",
	"Calories",
	"Average HR",
	"Max HR",
	"Calculated Max HR",
	"Resting HR",
	"HR Estimated",
	"Sample Coverage",
	"Zone 1 Name", "Zone 1 Seconds", "Zone 1 Pct",
	"Zone 2 Name", "Zone 2 Seconds", "Zone 2 Pct",
	"Zone 3 Name", "Zone 3 Seconds", "Zone 3 Pct",
	"Zone 4 Name", "Zone 4 Seconds", "Zone 4 Pct",
	"Zone 5 Name", "Zone 5 Seconds", "Zone 5 Pct",
}

const csvZoneColumns = 5

// encodeCSV writes one summary row per activity: scalar totals plus
// per-zone seconds and percentages in fixed zone-index order.
func (e *Encoder) encodeCSV(act *models.EnrichedActivity) ([]byte, error) {
	if act.Distribution.Empty() {
		return nil, fmt.Errorf("%w: no zone time for activity %d", ErrEmptyActivity, act.LogID)
	}

	total := act.Distribution.TotalSeconds()
	row := []string{
		strconv.FormatInt(act.LogID, 10),
		act.StartTime.UTC().Format("2006-01-02"),
		act.StartTime.UTC().Format("15:04:05"),
		act.Name,
		string(act.Type),
		strconv.Itoa(int(act.Duration.Seconds())),
		strconv.FormatFloat(act.Distance, 'f', 1, 64),
		strconv.Itoa(act.Calories),
		strconv.Itoa(act.AvgHeartRate),
		strconv.Itoa(act.MaxHeartRate),
		strconv.Itoa(act.Profile.MaxHR),
		strconv.Itoa(act.Profile.RestingHR),
		strconv.FormatBool(act.Profile.Estimated),
		strconv.FormatFloat(act.Distribution.Coverage(), 'f', 3, 64),
	}

	for i := 0; i < csvZoneColumns; i++ {
		name, seconds := "", 0.0
		if i < len(act.Zones) {
			name = act.Zones[i].Name
			seconds = act.Distribution.Seconds[name]
		}
		pct := 0.0
		if total > 0 {
			pct = seconds / total * 100
		}
		row = append(row,
			name,
			strconv.FormatFloat(seconds, 'f', 1, 64),
			strconv.FormatFloat(pct, 'f', 1, 64),
		)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSVHeader exposes the fixed column layout so batch writers can merge
// per-activity rows under a single header.
func CSVHeader() []string {
	return append([]string(nil), csvHeader...)
}
