package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tormoder/fit"

	"github.com/sstent/fitbit2garmin-go/internal/geo"
	"github.com/sstent/fitbit2garmin-go/internal/models"
)

// FIT binary layout constants. Header length, the ".FIT" signature at
// offset 8, and the trailing CRC-16 are bit-exactness contracts.
const (
	fitHeaderSize      = 14
	fitProtocolVersion = 0x10 // 1.0
	fitProfileVersion  = 2132 // 21.32

	fitEpochOffset = 631065600 // seconds between Unix and FIT epochs

	semicirclesPerDegree = float64(1<<31) / 180
)

// Global message numbers and field definitions used by the encoder.
// Every message is immediately followed by its declared field set in
// declaration order.
const (
	globalFileID     = 0
	globalSession    = 18
	globalRecord     = 20
	globalActivity   = 34
	globalTimeInZone = 216
)

// FIT base types.
const (
	baseEnum   = 0x00
	baseUint8  = 0x02
	baseSint32 = 0x85
	baseUint16 = 0x84
	baseUint32 = 0x86
)

// Invalid-value sentinels per base type.
const (
	invalidUint8  = uint8(0xFF)
	invalidUint16 = uint16(0xFFFF)
	invalidSint32 = int32(0x7FFFFFFF)
)

const fileTypeActivity = 4

type fitField struct {
	num  byte
	size byte
	base byte
}

// fitWriter accumulates definition and data messages for the file body.
type fitWriter struct {
	body bytes.Buffer
}

func (w *fitWriter) writeDefinition(localType byte, global uint16, fields []fitField) {
	w.body.WriteByte(0x40 | localType)
	w.body.WriteByte(0) // reserved
	w.body.WriteByte(0) // little-endian architecture
	var g [2]byte
	binary.LittleEndian.PutUint16(g[:], global)
	w.body.Write(g[:])
	w.body.WriteByte(byte(len(fields)))
	for _, f := range fields {
		w.body.WriteByte(f.num)
		w.body.WriteByte(f.size)
		w.body.WriteByte(f.base)
	}
}

func (w *fitWriter) startData(localType byte) {
	w.body.WriteByte(localType)
}

func (w *fitWriter) u8(v uint8)   { w.body.WriteByte(v) }
func (w *fitWriter) u16(v uint16) { _ = binary.Write(&w.body, binary.LittleEndian, v) }
func (w *fitWriter) u32(v uint32) { _ = binary.Write(&w.body, binary.LittleEndian, v) }
func (w *fitWriter) s32(v int32)  { _ = binary.Write(&w.body, binary.LittleEndian, v) }

func fitTimestamp(t time.Time) uint32 {
	return uint32(t.UTC().Unix() - fitEpochOffset)
}

// encodeFIT emits header, file_id, session, record, time-in-zone, and
// activity messages, then the trailing CRC. An activity with zero record
// messages is an explicit error, never a malformed file.
func (e *Encoder) encodeFIT(act *models.EnrichedActivity) ([]byte, error) {
	records := buildFITRecords(act)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: activity %d produces no FIT record messages", ErrEmptyActivity, act.LogID)
	}

	var w fitWriter

	endTime := act.StartTime.Add(act.Duration)

	// file_id: type, manufacturer, product, time_created.
	w.writeDefinition(0, globalFileID, []fitField{
		{0, 1, baseEnum},
		{1, 2, baseUint16},
		{2, 2, baseUint16},
		{4, 4, baseUint32},
	})
	w.startData(0)
	w.u8(fileTypeActivity)
	w.u16(uint16(fit.ManufacturerDevelopment))
	w.u16(1)
	w.u32(fitTimestamp(act.StartTime))

	// session: totals plus sport.
	w.writeDefinition(1, globalSession, []fitField{
		{253, 4, baseUint32}, // timestamp
		{2, 4, baseUint32},   // start_time
		{5, 1, baseEnum},     // sport
		{7, 4, baseUint32},   // total_elapsed_time, s*1000
		{8, 4, baseUint32},   // total_timer_time, s*1000
		{9, 4, baseUint32},   // total_distance, m*100
		{11, 2, baseUint16},  // total_calories
		{16, 1, baseUint8},   // avg_heart_rate
		{17, 1, baseUint8},   // max_heart_rate
	})
	w.startData(1)
	w.u32(fitTimestamp(endTime))
	w.u32(fitTimestamp(act.StartTime))
	w.u8(uint8(act.Type.FITSport()))
	w.u32(uint32(act.Duration.Seconds() * 1000))
	w.u32(uint32(act.Duration.Seconds() * 1000))
	w.u32(uint32(act.Distance * 100))
	if act.Calories > 0 {
		w.u16(uint16(act.Calories))
	} else {
		w.u16(invalidUint16)
	}
	w.u8(bpmOrInvalid(act.AvgHeartRate))
	w.u8(bpmOrInvalid(act.MaxHeartRate))

	// record: one per track point.
	w.writeDefinition(2, globalRecord, []fitField{
		{253, 4, baseUint32}, // timestamp
		{0, 4, baseSint32},   // position_lat, semicircles
		{1, 4, baseSint32},   // position_long, semicircles
		{2, 2, baseUint16},   // altitude, (m+500)*5
		{3, 1, baseUint8},    // heart_rate
		{5, 4, baseUint32},   // distance, m*100
		{6, 2, baseUint16},   // speed, mm/s
	})
	for _, r := range records {
		w.startData(2)
		w.u32(r.timestamp)
		w.s32(r.lat)
		w.s32(r.lon)
		w.u16(r.altitude)
		w.u8(r.heartRate)
		w.u32(r.distance)
		w.u16(r.speed)
	}

	// time_in_zone: cumulative seconds per Garmin zone, s*1000.
	zoneTimes := fitZoneTimes(act)
	w.writeDefinition(3, globalTimeInZone, []fitField{
		{253, 4, baseUint32},                      // timestamp
		{0, 2, baseUint16},                        // reference_mesg
		{1, 2, baseUint16},                        // reference_index
		{2, byte(4 * len(zoneTimes)), baseUint32}, // time_in_hr_zone array
	})
	w.startData(3)
	w.u32(fitTimestamp(endTime))
	w.u16(globalSession)
	w.u16(0)
	for _, zt := range zoneTimes {
		w.u32(zt)
	}

	// activity: closes the file.
	w.writeDefinition(4, globalActivity, []fitField{
		{253, 4, baseUint32}, // timestamp
		{0, 4, baseUint32},   // total_timer_time, s*1000
		{1, 2, baseUint16},   // num_sessions
		{2, 1, baseEnum},     // type: manual
		{3, 1, baseEnum},     // event: activity
		{4, 1, baseEnum},     // event_type: stop
	})
	w.startData(4)
	w.u32(fitTimestamp(endTime))
	w.u32(uint32(act.Duration.Seconds() * 1000))
	w.u16(1)
	w.u8(0)  // manual
	w.u8(26) // activity
	w.u8(1)  // stop

	return assembleFITFile(w.body.Bytes()), nil
}

// assembleFITFile prepends the 14-byte header (with its own CRC over the
// first 12 bytes) and appends the CRC-16 over header plus body.
func assembleFITFile(body []byte) []byte {
	out := make([]byte, fitHeaderSize, fitHeaderSize+len(body)+2)
	out[0] = fitHeaderSize
	out[1] = fitProtocolVersion
	binary.LittleEndian.PutUint16(out[2:4], fitProfileVersion)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(body)))
	copy(out[8:12], ".FIT")
	binary.LittleEndian.PutUint16(out[12:14], crc16(out[:12]))

	out = append(out, body...)

	var trailer [2]byte
	binary.LittleEndian.PutUint16(trailer[:], crc16(out))
	return append(out, trailer[:]...)
}

type fitRecord struct {
	timestamp uint32
	lat       int32
	lon       int32
	altitude  uint16
	heartRate uint8
	distance  uint32
	speed     uint16
}

// buildFITRecords merges GPS fixes with heart-rate samples by timestamp.
// Sample-only activities produce position-less records so indoor workouts
// still carry an HR curve.
func buildFITRecords(act *models.EnrichedActivity) []fitRecord {
	if len(act.Fixes) == 0 {
		records := make([]fitRecord, 0, len(act.Samples))
		for _, s := range act.Samples {
			if !s.Valid() {
				continue
			}
			records = append(records, fitRecord{
				timestamp: fitTimestamp(s.Timestamp),
				lat:       invalidSint32,
				lon:       invalidSint32,
				altitude:  invalidUint16,
				heartRate: uint8(s.BPM),
				distance:  invalidUint32Value,
				speed:     invalidUint16,
			})
		}
		return records
	}

	records := make([]fitRecord, 0, len(act.Fixes))
	var distance float64
	sampleIdx := 0
	var prev *models.GpsFix
	for i := range act.Fixes {
		fix := act.Fixes[i]
		if prev != nil {
			distance += geo.Haversine(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
		}

		r := fitRecord{
			timestamp: fitTimestamp(fix.Timestamp),
			lat:       semicircles(fix.Latitude),
			lon:       semicircles(fix.Longitude),
			altitude:  invalidUint16,
			heartRate: invalidUint8,
			distance:  uint32(distance * 100),
			speed:     invalidUint16,
		}
		if fix.HasElevation {
			r.altitude = uint16((fix.Elevation + 500) * 5)
		}
		if fix.HasSpeed {
			r.speed = uint16(fix.Speed * 1000)
		}
		// Latest sample at or before the fix supplies the heart rate.
		for sampleIdx < len(act.Samples) && !act.Samples[sampleIdx].Timestamp.After(fix.Timestamp) {
			if act.Samples[sampleIdx].Valid() {
				r.heartRate = uint8(act.Samples[sampleIdx].BPM)
			}
			sampleIdx++
		}
		records = append(records, r)
		prev = &act.Fixes[i]
	}
	return records
}

const invalidUint32Value = uint32(0xFFFFFFFF)

func semicircles(degrees float64) int32 {
	return int32(degrees * semicirclesPerDegree)
}

func bpmOrInvalid(bpm int) uint8 {
	if bpm <= 0 || bpm > int(invalidUint8) {
		return invalidUint8
	}
	return uint8(bpm)
}

// fitZoneTimes renders the distribution as a 5-element ms array in zone
// index order.
func fitZoneTimes(act *models.EnrichedActivity) []uint32 {
	times := make([]uint32, 5)
	for _, z := range act.Zones {
		if z.Index >= 1 && z.Index <= 5 {
			times[z.Index-1] = uint32(act.Distribution.Seconds[z.Name] * 1000)
		}
	}
	return times
}
