package models

import "time"

// SleepRecord is one night of sleep from the Takeout export.
type SleepRecord struct {
	LogID         int64
	DateOfSleep   time.Time
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	Efficiency    int
	MinutesAsleep int
	MinutesAwake  int
	TimeInBed     int
	MainSleep     bool
}

// DailyMetric is one day of aggregate health counters.
type DailyMetric struct {
	Date             time.Time
	Steps            int
	DistanceMeters   float64
	CaloriesOut      int
	Floors           int
	RestingHeartRate int
}

// TakeoutData bundles everything parsed from one export tree.
type TakeoutData struct {
	Activities   []Activity
	Sleep        []SleepRecord
	DailyMetrics []DailyMetric
	HeartRate    []HeartRateSample
}
