// main.go - Entry point and dependency injection
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/sstent/fitbit2garmin-go/internal/checkpoint"
	"github.com/sstent/fitbit2garmin-go/internal/config"
	"github.com/sstent/fitbit2garmin-go/internal/encoder"
	"github.com/sstent/fitbit2garmin-go/internal/hrzones"
	"github.com/sstent/fitbit2garmin-go/internal/models"
	"github.com/sstent/fitbit2garmin-go/internal/parser"
	"github.com/sstent/fitbit2garmin-go/internal/pipeline"
	"github.com/sstent/fitbit2garmin-go/internal/summary"
)

// App holds the long-lived pieces a run needs.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	store  *checkpoint.Store
}

// CLI flag overrides; zero values mean "use env/defaults".
var (
	flagTakeoutDir string
	flagOutputDir  string
	flagZoneSystem string
	flagFormula    string
	flagFormats    string
	flagWorkers    int
	flagAge        int
	flagMaxHR      int
	flagRestingHR  int
	flagForce      bool
)

func main() {
	root := &cobra.Command{
		Use:           "fitbit2garmin",
		Short:         "Convert Fitbit Google Takeout exports to Garmin-compatible files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagTakeoutDir, "takeout-dir", "", "path to the unpacked Takeout export")
	pf.StringVar(&flagOutputDir, "output-dir", "", "directory for converted files")
	pf.StringVar(&flagZoneSystem, "zone-system", "", "zone system: garmin, five_zone, fitbit")
	pf.StringVar(&flagFormula, "formula", "", "max HR formula: tanaka, fox, gellish, nes")
	pf.StringVar(&flagFormats, "formats", "", "comma-separated output formats (csv,tcx,gpx,fit)")
	pf.IntVar(&flagWorkers, "workers", 0, "worker count, 0 for auto")
	pf.IntVar(&flagAge, "age", 0, "user age for zone estimation")
	pf.IntVar(&flagMaxHR, "max-hr", 0, "known maximum heart rate")
	pf.IntVar(&flagRestingHR, "resting-hr", 0, "known resting heart rate")

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert new activities once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			return app.convert(cmd.Context())
		},
	}
	convertCmd.Flags().BoolVar(&flagForce, "force", false, "reconvert files already in the checkpoint ledger")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			return app.watch(cmd.Context())
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize the export and the estimated heart rate profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			return app.info()
		},
	}

	root.AddCommand(convertCmd, watchCmd, infoCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(&cfg); err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	store, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, logger: logger, store: store}, nil
}

func applyFlags(cfg *config.Config) error {
	if flagTakeoutDir != "" {
		cfg.TakeoutDir = flagTakeoutDir
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if flagZoneSystem != "" {
		system, err := hrzones.ParseSystem(flagZoneSystem)
		if err != nil {
			return err
		}
		cfg.ZoneSystem = system
	}
	if flagFormula != "" {
		formula, err := hrzones.ParseFormula(flagFormula)
		if err != nil {
			return err
		}
		cfg.Formula = formula
	}
	if flagFormats != "" {
		formats, err := config.ParseFormats(flagFormats)
		if err != nil {
			return err
		}
		cfg.Formats = formats
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	return nil
}

func newLogger(format string) *slog.Logger {
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return slog.New(handler)
}

func explicitProfile() models.UserProfile {
	return models.UserProfile{
		Age:       flagAge,
		MaxHR:     flagMaxHR,
		RestingHR: flagRestingHR,
	}
}

func (app *App) close() {
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.Warn("failed to close checkpoint store", "error", err)
		}
	}
}

// convert runs one full pass: parse, filter already-processed sources,
// enrich and encode, write outputs, record the run.
func (app *App) convert(ctx context.Context) error {
	p, err := parser.New(app.cfg.TakeoutDir, app.logger)
	if err != nil {
		return err
	}

	sources, err := p.SourceFiles()
	if err != nil {
		return err
	}
	if !flagForce {
		remaining, err := app.store.FilterUnprocessed(sources)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			app.logger.Info("nothing new to convert", "sources", len(sources))
			return nil
		}
		// Resume: only activities from unseen files get converted.
		p.Limit(remaining)
		app.logger.Info("sources to convert", "new", len(remaining), "total", len(sources))
	}

	data, err := p.ParseAll()
	if err != nil {
		return err
	}

	runID, err := app.store.BeginRun()
	if err != nil {
		return err
	}

	pipe := pipeline.New(app.cfg.ZoneSystem, app.cfg.Formula, app.cfg.Formats, app.logger)
	pipe.Workers = app.cfg.Workers
	pipe.MemoryCeilingBytes = app.cfg.MemoryCeilingMB * 1024 * 1024

	results := pipe.Run(ctx, data.Activities, explicitProfile())

	written, failures := 0, 0
	var enriched []models.EnrichedActivity
	for _, res := range results {
		if res.Err != nil {
			failures++
			app.logger.Error("activity failed", "activity_id", res.ActivityID, "error", res.Err)
			continue
		}
		enriched = append(enriched, *res.Enriched)
		for _, fr := range res.Formats {
			if fr.Err != nil {
				failures++
				app.logger.Warn("encoding failed",
					"activity_id", res.ActivityID, "format", fr.Format, "error", fr.Err)
				continue
			}
			path := filepath.Join(app.cfg.OutputDir, encoder.Filename(res.Enriched, fr.Format))
			if err := os.WriteFile(path, fr.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			written++
		}
	}

	exp := summary.New(app.cfg.OutputDir, app.logger)
	if _, err := exp.ExportAll(data.DailyMetrics, data.Sleep, enriched); err != nil {
		return err
	}

	for _, src := range sources {
		hash, err := checkpoint.FileHash(src)
		if err != nil {
			continue
		}
		if err := app.store.MarkProcessed(src, hash); err != nil {
			app.logger.Warn("failed to record processed file", "file", src, "error", err)
		}
	}
	if err := app.store.FinishRun(runID, len(results), failures, pipe.Summary.String()); err != nil {
		app.logger.Warn("failed to record run", "run_id", runID, "error", err)
	}

	app.logger.Info("conversion finished",
		"run_id", runID,
		"activities", len(results),
		"files_written", written,
		"failures", failures)
	return nil
}

// watch runs convert on the configured cron schedule until the context
// is cancelled.
func (app *App) watch(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(app.cfg.WatchSchedule, func() {
		if err := app.convert(ctx); err != nil {
			app.logger.Error("scheduled conversion failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", app.cfg.WatchSchedule, err)
	}

	// One pass up front so a fresh start does not wait for the first tick.
	if err := app.convert(ctx); err != nil {
		app.logger.Error("initial conversion failed", "error", err)
	}

	app.logger.Info("watching for new data", "schedule", app.cfg.WatchSchedule)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	app.logger.Info("watch stopped")
	return nil
}

// info parses the export and prints what a conversion would see.
func (app *App) info() error {
	p, err := parser.New(app.cfg.TakeoutDir, app.logger)
	if err != nil {
		return err
	}
	data, err := p.ParseAll()
	if err != nil {
		return err
	}

	estimator := hrzones.NewEstimator(app.cfg.Formula, app.logger)
	profile := estimator.Estimate(explicitProfile(), data.Activities)

	calc := hrzones.NewCalculator(app.cfg.ZoneSystem, app.logger)
	zones := calc.Boundaries(profile)

	fmt.Printf("Export:        %s\n", p.Root())
	fmt.Printf("Activities:    %d\n", len(data.Activities))
	fmt.Printf("HR samples:    %d\n", len(data.HeartRate))
	fmt.Printf("Sleep records: %d\n", len(data.Sleep))
	fmt.Printf("Daily records: %d\n", len(data.DailyMetrics))
	fmt.Printf("Profile:       max %d bpm, resting %d bpm (estimated=%v)\n",
		profile.MaxHR, profile.RestingHR, profile.Estimated)
	fmt.Printf("Zones (%s):\n", app.cfg.ZoneSystem)
	for _, z := range zones {
		fmt.Printf("  %-20s %3d-%3d bpm\n", z.Name, z.MinBPM, z.MaxBPM)
	}

	last, err := app.store.LastRun()
	if err == nil && !last.IsZero() {
		fmt.Printf("Last run:      %s\n", last.Format("2006-01-02 15:04:05"))
	}
	return nil
}
