package summary

import (
	"fmt"
	"os"
	"path/filepath"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// zoneParquetRow is one activity/zone pair in the columnar export.
type zoneParquetRow struct {
	ActivityID   int64   `parquet:"name=activity_id, type=INT64"`
	ActivityType string  `parquet:"name=activity_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StartISO     string  `parquet:"name=start_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ZoneIndex    int64   `parquet:"name=zone_index, type=INT64"`
	ZoneName     string  `parquet:"name=zone_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	MinBPM       int64   `parquet:"name=min_bpm, type=INT64"`
	MaxBPM       int64   `parquet:"name=max_bpm, type=INT64"`
	Seconds      float64 `parquet:"name=seconds, type=DOUBLE"`
	Coverage     float64 `parquet:"name=coverage, type=DOUBLE"`
	EstimatedHR  bool    `parquet:"name=estimated_profile, type=BOOLEAN"`
}

// ZoneParquet writes fitbit_zone_seconds.parquet with one row per
// activity/zone pair. Returns "" when no activity has a distribution.
func (e *Exporter) ZoneParquet(enriched []models.EnrichedActivity) (string, error) {
	data, rowCount, err := marshalZoneParquet(enriched)
	if err != nil {
		return "", err
	}
	if rowCount == 0 {
		return "", nil
	}

	path := filepath.Join(e.OutputDir, "fitbit_zone_seconds.parquet")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	e.Logger.Info("zone parquet exported", "file", path, "rows", rowCount)
	return path, nil
}

func marshalZoneParquet(enriched []models.EnrichedActivity) ([]byte, int, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(zoneParquetRow), 4)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rows := 0
	for _, act := range enriched {
		if act.Distribution.Empty() {
			continue
		}
		for _, z := range act.Zones {
			row := zoneParquetRow{
				ActivityID:   act.LogID,
				ActivityType: string(act.Type),
				StartISO:     act.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
				ZoneIndex:    int64(z.Index),
				ZoneName:     z.Name,
				MinBPM:       int64(z.MinBPM),
				MaxBPM:       int64(z.MaxBPM),
				Seconds:      act.Distribution.Seconds[z.Name],
				Coverage:     act.Distribution.Coverage(),
				EstimatedHR:  act.Profile.Estimated,
			}
			if err := pw.Write(row); err != nil {
				_ = pw.WriteStop()
				return nil, 0, fmt.Errorf("failed to write parquet row: %w", err)
			}
			rows++
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, 0, err
	}
	return append([]byte(nil), fw.Bytes()...), rows, nil
}
