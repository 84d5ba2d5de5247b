package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/me/nanokern/internal/config"
	"github.com/me/nanokern/internal/kernel"
	"github.com/me/nanokern/internal/monitor"
	"github.com/me/nanokern/internal/scenario"
	"github.com/me/nanokern/internal/script"
	"github.com/me/nanokern/internal/store"
	"github.com/me/nanokern/internal/timer"
	"github.com/me/nanokern/internal/trace"
	"github.com/me/nanokern/pkg/model"
)

func newRunCmd() *cobra.Command {
	cfg := config.DefaultRunConfig()

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|scenario.js>",
		Short: "Execute a scheduling scenario",
		Long: `Boots the kernel, creates the scenario's threads, and runs until every
thread has exited. YAML files describe the workload declaratively;
JavaScript files are evaluated once and must return the same structure.

With --db the run and its full event trace are persisted for later
inspection with 'nanokern trace'. With --monitor the live thread table
is served over HTTP for the duration of the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.LogLevel = flagLogLevel
			cfg.LogFormat = flagLogFormat
			return runScenario(args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.DBPath, "db", "", "SQLite trace database path (empty disables persistence)")
	cmd.Flags().StringVar(&cfg.MonitorOn, "monitor", "", "Serve the HTTP monitor on this address, e.g. :8080")
	cmd.Flags().IntVar(&cfg.Frequency, "frequency", 0, "Override the scenario's timer Hz (0 keeps it)")
	cmd.Flags().IntVar(&cfg.TimeSlice, "time-slice", 0, "Override the preemption quantum in ticks (0 keeps it)")
	cmd.Flags().IntVar(&cfg.MaxThreads, "max-threads", 0, "Override the thread table size (0 keeps it)")
	cmd.Flags().IntVar(&cfg.MaxEvents, "max-events", 0, "Trace buffer cap (0 uses the default)")

	return cmd
}

// loadScenario picks the frontend by extension: .js goes through the
// script evaluator, everything else is parsed as YAML.
func loadScenario(path string) (*scenario.Scenario, error) {
	if strings.EqualFold(filepath.Ext(path), ".js") {
		return script.Load(path)
	}
	return scenario.Load(path)
}

func runScenario(path string, cfg config.RunConfig) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}
	if cfg.Frequency > 0 {
		sc.Frequency = cfg.Frequency
	}
	if cfg.TimeSlice > 0 {
		sc.TimeSlice = cfg.TimeSlice
	}
	if cfg.MaxThreads > 0 {
		sc.MaxThreads = cfg.MaxThreads
	}

	kcfg := kernel.DefaultConfig()
	if sc.TimeSlice > 0 {
		kcfg.TimeSlice = sc.TimeSlice
	}
	if sc.MaxThreads > 0 {
		kcfg.MaxThreads = sc.MaxThreads
	}

	rec := trace.NewRecorder(cfg.MaxEvents)
	k := kernel.New(kcfg, logger, kernel.WithListener(rec))

	hz := sc.Frequency
	if hz == 0 {
		hz = timer.DefaultHz
	}
	tm := timer.New(k, hz, logger)

	var st store.Store
	var run *model.Run
	if cfg.DBPath != "" {
		sqlite, err := store.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		if err := sqlite.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migrate trace db: %w", err)
		}
		st = sqlite

		run = &model.Run{
			ID:        "run_" + uuid.New().String()[:8],
			Scenario:  sc.Name,
			StartedAt: time.Now().UTC(),
		}
		if err := st.CreateRun(context.Background(), run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		logger.Info("recording trace", "run_id", run.ID, "db", cfg.DBPath)
	}

	var srv *http.Server
	if cfg.MonitorOn != "" {
		opts := []monitor.Option{monitor.WithVersion(version)}
		if st != nil {
			opts = append(opts, monitor.WithStore(st))
		}
		srv = &http.Server{Addr: cfg.MonitorOn, Handler: monitor.New(k, logger, opts...)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitor stopped", "error", err)
			}
		}()
		logger.Info("monitor listening", "addr", cfg.MonitorOn)
	}

	var scErr error
	err = k.Run(func() {
		if sc.Frequency > 0 {
			if err := tm.Start(context.Background()); err != nil {
				scErr = err
				return
			}
			defer tm.Stop()
		}
		scErr = scenario.NewRunner(sc, k, tm, logger).Run()
	})
	if err == nil {
		err = scErr
	}

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := srv.Shutdown(ctx); serr != nil {
			logger.Warn("monitor shutdown", "error", serr)
		}
		cancel()
	}

	stats := k.Stats()
	fmt.Printf("scenario %s: %s ticks, %d switches, %d threads created, %d exited\n",
		sc.Name, humanize.Comma(stats.Ticks), stats.Switches, stats.Created, stats.Exited)

	if st != nil && run != nil {
		if ferr := rec.Flush(context.Background(), st, run.ID); ferr != nil && err == nil {
			err = ferr
		}
		now := time.Now().UTC()
		run.FinishedAt = &now
		run.Stats = stats
		if ferr := st.FinishRun(context.Background(), run); ferr != nil && err == nil {
			err = ferr
		}
		if dropped := rec.Dropped(); dropped > 0 {
			logger.Warn("trace buffer overflowed", "dropped", dropped)
		}
	}
	return err
}
