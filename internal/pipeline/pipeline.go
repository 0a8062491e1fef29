// Package pipeline fans activities across enrichment and encoding in
// parallel with bounded memory, degrading to sequential processing under
// memory pressure.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sstent/fitbit2garmin-go/internal/encoder"
	"github.com/sstent/fitbit2garmin-go/internal/geo"
	"github.com/sstent/fitbit2garmin-go/internal/hrzones"
	"github.com/sstent/fitbit2garmin-go/internal/models"
)

const (
	defaultChunkSize = 32
	maxWorkers       = 8
)

// Mode is the pipeline's scheduling state. The transition Parallel ->
// Sequential on resource exhaustion is one-way per run.
type Mode int

const (
	Parallel Mode = iota
	Sequential
)

func (m Mode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "parallel"
}

// FormatResult is one encoding outcome for one activity.
type FormatResult struct {
	Format models.OutputFormat
	Data   []byte
	Err    error
}

// ActivityResult collects the per-format outcomes for one activity. Err is
// set only for fatal input errors, in which case no encodings were run.
type ActivityResult struct {
	ActivityID int64
	Enriched   *models.EnrichedActivity
	Formats    []FormatResult
	Err        error
}

// Pipeline wires the enrichment and encoding stages. Construct with New.
type Pipeline struct {
	Enhancer   *geo.Enhancer
	Estimator  *hrzones.Estimator
	Calculator *hrzones.Calculator
	Encoder    *encoder.Encoder

	Formats []models.OutputFormat

	// Workers overrides the detected worker count when > 0.
	Workers int
	// ChunkSize bounds how many activities are in flight per dispatch.
	ChunkSize int
	// MemoryCeilingBytes is the available-memory floor for parallel mode.
	MemoryCeilingBytes uint64
	Monitor            MemoryMonitor

	Logger  *slog.Logger
	Summary *models.RunSummary
}

// New builds a pipeline from resolved configuration.
func New(system hrzones.System, formula hrzones.Formula, formats []models.OutputFormat, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	summary := &models.RunSummary{}
	enhancer := geo.NewEnhancer(logger)
	enhancer.Summary = summary
	estimator := hrzones.NewEstimator(formula, logger)
	estimator.Summary = summary
	calculator := hrzones.NewCalculator(system, logger)
	calculator.Summary = summary
	return &Pipeline{
		Enhancer:           enhancer,
		Estimator:          estimator,
		Calculator:         calculator,
		Encoder:            encoder.New(logger),
		Formats:            formats,
		ChunkSize:          defaultChunkSize,
		MemoryCeilingBytes: 512 << 20,
		Monitor:            SystemMemory{},
		Logger:             logger,
		Summary:            summary,
	}
}

// Run processes all activities and returns one result per activity,
// sorted by activity id. Individual failures never abort the batch;
// cancellation is honored at chunk boundaries, so in-flight chunks
// complete.
func (p *Pipeline) Run(ctx context.Context, activities []models.Activity, explicit models.UserProfile) []ActivityResult {
	runID := uuid.NewString()

	// The profile is user-level: estimate once over the whole history,
	// then share it read-only across workers.
	profile := p.Estimator.Estimate(explicit, activities)

	mode := Parallel
	workers := p.workerCount()
	if workers <= 1 {
		mode = Sequential
	}

	p.Logger.Info("starting conversion run",
		"run_id", runID,
		"activities", len(activities),
		"formats", len(p.Formats),
		"workers", workers,
		"mode", mode.String(),
	)

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	results := make([]ActivityResult, 0, len(activities))
	for start := 0; start < len(activities); start += chunkSize {
		if ctx.Err() != nil {
			p.Logger.Info("run cancelled at chunk boundary", "run_id", runID, "completed", len(results))
			break
		}

		if mode == Parallel && p.underMemoryPressure() {
			// One-way transition; the rest of the run stays sequential.
			mode = Sequential
			p.Logger.Warn("memory ceiling breached, falling back to sequential processing",
				"run_id", runID, "event", models.KindResourceExhaustion.String())
		}

		end := start + chunkSize
		if end > len(activities) {
			end = len(activities)
		}
		chunk := activities[start:end]

		if mode == Parallel {
			results = append(results, p.runChunkParallel(chunk, profile, workers)...)
		} else {
			for i := range chunk {
				results = append(results, p.processActivity(&chunk[i], profile))
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ActivityID < results[j].ActivityID
	})

	p.Logger.Info("conversion run finished",
		"run_id", runID,
		"results", len(results),
		"summary", p.Summary.String(),
	)
	return results
}

func (p *Pipeline) runChunkParallel(chunk []models.Activity, profile models.UserProfile, workers int) []ActivityResult {
	if workers > len(chunk) {
		workers = len(chunk)
	}

	jobs := make(chan int)
	out := make([]ActivityResult, len(chunk))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.processActivity(&chunk[i], profile)
			}
		}()
	}
	for i := range chunk {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// processActivity runs the strictly sequential per-activity steps:
// geo enhancement, zone distribution, then one encode per format.
func (p *Pipeline) processActivity(act *models.Activity, profile models.UserProfile) ActivityResult {
	res := ActivityResult{ActivityID: act.LogID}

	if err := validate(act); err != nil {
		p.Summary.FatalActivities.Add(1)
		res.Err = models.NewConversionError(models.KindFatal, act.LogID, err)
		return res
	}

	geoResult := p.Enhancer.Enhance(act.LogID, act.Fixes)

	enriched := &models.EnrichedActivity{Activity: *act, Profile: profile}
	enriched.Fixes = geoResult.Fixes
	if geoResult.Distance > 0 {
		enriched.Distance = geoResult.Distance
	}
	enriched.Distribution, enriched.Zones = p.Calculator.Distribute(profile, &enriched.Activity)
	res.Enriched = enriched

	for _, format := range p.Formats {
		data, err := p.Encoder.Encode(enriched, format)
		if err != nil {
			p.Summary.EncodingFailures.Add(1)
			err = models.NewConversionError(models.KindEncodingFailure, act.LogID, err)
		}
		res.Formats = append(res.Formats, FormatResult{Format: format, Data: data, Err: err})
	}
	return res
}

func validate(act *models.Activity) error {
	if act.StartTime.IsZero() {
		return fmt.Errorf("activity %d has no start time", act.LogID)
	}
	if act.Duration < 0 {
		return fmt.Errorf("activity %d has negative duration", act.LogID)
	}
	return nil
}

func (p *Pipeline) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	n := runtime.NumCPU()
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pipeline) underMemoryPressure() bool {
	if p.Monitor == nil || p.MemoryCeilingBytes == 0 {
		return false
	}
	available, err := p.Monitor.AvailableBytes()
	if err != nil {
		p.Logger.Warn("memory monitor unavailable", "error", err)
		return false
	}
	return available < p.MemoryCeilingBytes
}
