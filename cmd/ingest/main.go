// Command ingest is the Mercato data ingestion CLI.
//
// Usage:
//
//	mercato-ingest scrape
//	mercato-ingest scrape --mode static --url https://example.test/mercado --dry-run
//	mercato-ingest scrape --clear --clean
//	mercato-ingest schedule --spec "@every 6h"
//	mercato-ingest schedule --maintain
//	mercato-ingest stats --top 20
//	mercato-ingest runs --limit 10
//	mercato-ingest clean
//	mercato-ingest dedupe-store
//	mercato-ingest clear --yes
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/mercato-data/internal/config"
	"github.com/albapepper/mercato-data/internal/db"
	"github.com/albapepper/mercato-data/internal/extract"
	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/listener"
	"github.com/albapepper/mercato-data/internal/maintenance"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/pipeline"
	"github.com/albapepper/mercato-data/internal/report"
	"github.com/albapepper/mercato-data/internal/runlog"
	"github.com/albapepper/mercato-data/internal/scheduler"
	"github.com/albapepper/mercato-data/internal/sink"
	"github.com/albapepper/mercato-data/internal/store"
	"github.com/albapepper/mercato-data/internal/store/memory"
	"github.com/albapepper/mercato-data/internal/store/postgres"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "mercato-ingest",
		Short:        "Mercato fantasy market ingestion CLI",
		SilenceUsage: true,
	}

	root.AddCommand(scrapeCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(cleanCmd())
	root.AddCommand(dedupeStoreCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// scrape command
// --------------------------------------------------------------------------

// scrapeFlags override the matching config values when set.
type scrapeFlags struct {
	url       string
	mode      string
	source    string
	maxPages  int
	threshold int
	chunkSize int
	clear     bool
	clean     bool
	dryRun    bool
	top       int
}

func (f *scrapeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "Market page URL (default SCRAPE_URL)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Fetch mode: static or browser (default SCRAPE_MODE)")
	cmd.Flags().StringVar(&f.source, "source", "", "Source label stored on every record (default SCRAPE_SOURCE)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Maximum pages to follow in browser mode (default SCRAPE_MAX_PAGES)")
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "Candidates needed for a strategy to win (default SCRAPE_THRESHOLD)")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "Records per write transaction, at most 500 (default SCRAPE_CHUNK_SIZE)")
	cmd.Flags().BoolVar(&f.clear, "clear", false, "Empty the collection before writing the fresh snapshot")
	cmd.Flags().BoolVar(&f.clean, "clean", false, "Purge placeholders and collapse duplicates after a successful write")
}

func (f *scrapeFlags) apply(cfg *config.Config) error {
	if f.url != "" {
		cfg.ScrapeURL = f.url
	}
	if f.mode != "" {
		cfg.ScrapeMode = f.mode
	}
	if f.source != "" {
		cfg.ScrapeSource = f.source
	}
	if f.maxPages != 0 {
		cfg.MaxPages = f.maxPages
	}
	if f.threshold != 0 {
		cfg.Threshold = f.threshold
	}
	if f.chunkSize != 0 {
		cfg.ChunkSize = f.chunkSize
	}
	return cfg.Validate()
}

func scrapeCmd() *cobra.Command {
	var f scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the market page once and write the players collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.dryRun {
				return runDry(func(ctx context.Context, cfg *config.Config, coll store.Collection) error {
					if err := f.apply(cfg); err != nil {
						return err
					}
					return scrapeOnce(ctx, cfg, coll, nil, nil, f)
				})
			}
			return runSeed(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := f.apply(cfg); err != nil {
					return err
				}
				runs := runlog.NewPostgres(pool, cfg.RunLogLimit)
				return scrapeOnce(ctx, cfg, postgres.New(pool), runs, notifier(pool), f)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Write into an in-memory collection and print the report; the database is not touched")
	cmd.Flags().IntVar(&f.top, "top", 10, "Players listed in the report")
	return cmd
}

// scrapeOnce runs the pipeline through a scheduler so the outcome is
// recorded like a scheduled run. runs and notify may be nil.
func scrapeOnce(ctx context.Context, cfg *config.Config, coll store.Collection, runs runlog.Log, notify notifyFunc, f scrapeFlags) error {
	job, last, err := scrapeJob(cfg, coll, f.clear, f.clean, notify)
	if err != nil {
		return err
	}

	sched := scheduler.New(job, runs, scheduler.Options{Timeout: cfg.RunTimeout, Logger: logger})
	_, runErr := sched.RunOnce(ctx)
	if res := last(); res != nil {
		report.RenderRun(os.Stdout, res)
	}
	if runErr != nil {
		return runErr
	}

	st, err := report.Compute(ctx, coll, f.top)
	if err != nil {
		return err
	}
	report.Render(os.Stdout, st)
	return nil
}

// scrapeJob builds the pipeline and wraps it as a scheduler job. last
// returns the Result of the most recent run.
func scrapeJob(cfg *config.Config, coll store.Collection, clear, clean bool, notify notifyFunc) (scheduler.Job, func() *pipeline.Result, error) {
	p, err := newPipeline(cfg, coll, clear)
	if err != nil {
		return nil, nil, err
	}

	var res *pipeline.Result
	job := func(ctx context.Context) (string, error) {
		r, err := p.Run(ctx, cfg.ScrapeURL)
		res = r
		if err == nil && clean {
			maintenance.AfterScrape(ctx, coll, logger)
		}
		if r.Written > 0 || r.Cleared > 0 {
			notify.send(ctx, "scrape", r.Written)
		}
		return r.Summary(), err
	}
	return job, func() *pipeline.Result { return res }, nil
}

func newPipeline(cfg *config.Config, coll store.Collection, clear bool) (*pipeline.Pipeline, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		Fetcher:   fetcher,
		Extractor: extract.New(cfg.Threshold),
		Writer:    sink.NewWriter(coll, cfg.ChunkSize, logger),
		Source:    cfg.ScrapeSource,
		Status:    market.StatusAvailable,
		Logger:    logger,
	}
	if clear {
		p.Clear = coll.Clear
	}
	return p, nil
}

func newFetcher(cfg *config.Config) (fetch.Fetcher, error) {
	mode, err := fetch.ParseMode(cfg.ScrapeMode)
	if err != nil {
		return nil, err
	}
	switch mode {
	case fetch.ModeStatic:
		return fetch.NewStatic(fetch.StaticOptions{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Logger:            logger,
		}), nil
	default:
		sessions := fetch.ChromeSessions(fetch.ChromeOptions{
			Headless:  cfg.ChromeHeadless,
			UserAgent: fetch.UserAgent,
			ExecPath:  cfg.ChromeExecPath,
		})
		return fetch.NewBrowser(sessions, fetch.BrowserOptions{
			ContentMarker: cfg.ContentMarker,
			ConsentLabel:  cfg.ConsentLabel,
			MaxPages:      cfg.MaxPages,
			Logger:        logger,
		}), nil
	}
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	var (
		f         scrapeFlags
		spec      string
		immediate bool
		maintain  bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Scrape on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := f.apply(cfg); err != nil {
					return err
				}
				if spec != "" {
					cfg.Schedule = spec
				}

				coll := postgres.New(pool)
				job, _, err := scrapeJob(cfg, coll, f.clear, f.clean, notifier(pool))
				if err != nil {
					return err
				}
				sched := scheduler.New(job, runlog.NewPostgres(pool, cfg.RunLogLimit), scheduler.Options{
					Spec:           cfg.Schedule,
					Timeout:        cfg.RunTimeout,
					RunImmediately: immediate,
					Logger:         logger,
				})

				ctx, stop := context.WithCancel(ctx)
				defer stop()
				maintained := make(chan struct{})
				if maintain {
					go func() {
						defer close(maintained)
						maintenance.Start(ctx, coll, maintenanceConfig(sched, notifier(pool)), logger)
					}()
				} else {
					close(maintained)
				}

				err = sched.Start(ctx)
				stop()
				<-maintained
				if err != nil {
					return err
				}
				st := sched.Status()
				logger.Info("Scheduler stopped", "runs", st.Runs, "failures", st.Failures, "skipped", st.Skipped)
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&spec, "spec", "", "Cron spec or @every interval (default SCRAPE_SCHEDULE)")
	cmd.Flags().BoolVar(&immediate, "immediate", true, "Run once as soon as the scheduler starts")
	cmd.Flags().BoolVar(&maintain, "maintain", false, "Also purge placeholders and collapse duplicates on tickers (deletes documents)")
	return cmd
}

// maintenanceConfig returns the ticker config for schedule --maintain. Tasks
// share the scrape run lock and skip a tick while a scrape is in flight.
func maintenanceConfig(sched *scheduler.Scheduler, notify notifyFunc) maintenance.Config {
	mc := maintenance.DefaultConfig()
	mc.Exclusive = func(ctx context.Context, fn func(context.Context) error) error {
		err := sched.Exclusive(ctx, fn)
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return fmt.Errorf("%w: %w", maintenance.ErrSkipped, err)
		}
		return err
	}
	mc.OnDeleted = func(ctx context.Context, task string, rep maintenance.Report) {
		notify.send(ctx, task, rep.Deleted)
	}
	return mc
}

// --------------------------------------------------------------------------
// report commands
// --------------------------------------------------------------------------

func statsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st, err := report.Compute(ctx, postgres.New(pool), top)
				if err != nil {
					return err
				}
				report.Render(os.Stdout, st)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Players listed by value")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent scrape runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				entries, err := runlog.NewPostgres(pool, cfg.RunLogLimit).Recent(ctx, limit)
				if err != nil {
					return err
				}
				report.RenderRuns(os.Stdout, entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Entries to show")
	return cmd
}

// --------------------------------------------------------------------------
// maintenance commands
// --------------------------------------------------------------------------

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every player document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the players collection without --yes")
			}
			return runMaintenance("clear", maintenance.Clear)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete documents with placeholder or missing name, team or source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance("clean", maintenance.PurgeInvalid)
		},
	}
}

func dedupeStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe-store",
		Short: "Collapse stored duplicates sharing a name and team",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance("dedupe-store", maintenance.CollapseDuplicates)
		},
	}
}

func runMaintenance(name string, task func(context.Context, store.Collection) (maintenance.Report, error)) error {
	return runSeed(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
		start := time.Now()
		rep, err := task(ctx, postgres.New(pool))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Info("Maintenance finished",
			"task", name,
			"scanned", rep.Scanned,
			"deleted", rep.Deleted,
			"duration", time.Since(start).Round(time.Millisecond))
		if rep.Deleted > 0 {
			notifier(pool).send(ctx, name, rep.Deleted)
		}
		return nil
	})
}

// notifyFunc tells API instances the collection changed. A nil notifyFunc
// does nothing.
type notifyFunc func(ctx context.Context, ev listener.ChangeEvent) error

func notifier(pool *db.Pool) notifyFunc {
	return func(ctx context.Context, ev listener.ChangeEvent) error {
		return listener.Notify(ctx, pool, ev)
	}
}

func (n notifyFunc) send(ctx context.Context, reason string, count int) {
	if n == nil {
		return
	}
	// Partial writes still changed the collection; notify past the run deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n(ctx, listener.ChangeEvent{Reason: reason, Count: count}); err != nil {
		logger.Warn("Change notification failed", "reason", reason, "error", err)
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runSeed handles config loading, DB connection, and context cancellation.
func runSeed(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// runDry is runSeed for dry runs: the collection lives in memory and no
// database is needed.
func runDry(fn func(ctx context.Context, cfg *config.Config, coll store.Collection) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("Dry run, writing to an in-memory collection")
	return fn(ctx, cfg, memory.New())
}
