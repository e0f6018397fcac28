package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/checkpoint"
	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/llm"
	"github.com/ternarybob/jobhunter/internal/notify"
	"github.com/ternarybob/jobhunter/internal/pipeline"
	"github.com/ternarybob/jobhunter/internal/resume"
	"github.com/ternarybob/jobhunter/internal/scorer"
	"github.com/ternarybob/jobhunter/internal/scraper"
	"github.com/ternarybob/jobhunter/internal/storage/sqlite"
)

// configPaths collects repeated -config flags in order
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", []string(*c)) }
func (c *configPaths) Set(v string) error {
	*c = append(*c, v)
	return nil
}

func main() {
	var configs configPaths
	flag.Var(&configs, "config", "Path to a TOML config file (repeatable; later files override earlier)")
	flag.Var(&configs, "c", "Shorthand for -config")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Shorthand for -version")
	schedule := flag.String("schedule", "", "Cron expression; run the pipeline on this schedule instead of once")
	flag.Parse()

	if *showVersion {
		fmt.Printf("jobhunter %s\n", common.GetFullVersion())
		return
	}

	if err := run(configs, *schedule); err != nil {
		fmt.Fprintf(os.Stderr, "jobhunter: %v\n", err)
		os.Exit(1)
	}
}

func run(configs configPaths, schedule string) error {
	cfg, err := common.LoadFromFiles(configs...)
	if err != nil {
		return err
	}

	logger := common.InitLogger(cfg)
	common.PrintBanner(common.GetVersion())

	sites, err := config.LoadSiteConfigs(cfg.Paths.SiteConfigs, logger)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		// Not fatal: the run completes empty with every stage a no-op
		logger.Warn().Str("dir", cfg.Paths.SiteConfigs).Msg("No enabled sites configured, run will complete empty")
	}

	master, err := config.LoadMasterResume(cfg.Paths.MasterResume)
	if err != nil {
		return err
	}

	store, err := sqlite.NewManager(logger, cfg.Paths.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	ckpt, err := checkpoint.Open(cfg.Paths.CheckpointDir, logger)
	if err != nil {
		return err
	}

	modelClient := llm.NewClient(&cfg.LLM, logger)
	scraperSvc := scraper.NewService(&cfg.Scraper, cfg.Paths.RawArchiveDir, logger)
	scorerSvc := scorer.NewService(&cfg.Scoring, modelClient, master.Text(), logger)
	renderer := resume.NewRenderer(cfg.Scraper.RequestTimeout, logger)
	tailorSvc := resume.NewTailor(modelClient, renderer, master, cfg.Paths.OutputDir, logger)

	messenger := notify.NewTelegram(&cfg.Telegram, store.KV(), logger)
	if !messenger.Enabled() {
		logger.Warn().Msg("Telegram credentials not set, instant notifications disabled")
	}
	mailer := notify.NewMailer(&cfg.SMTP, logger)
	notifier := notify.NewService(&cfg.Notifications, messenger, mailer, store.Applications(), store.Notifications(), logger)

	orchestrator := pipeline.NewOrchestrator(cfg, sites, store, ckpt, scraperSvc, scorerSvc, tailorSvc, notifier, messenger, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if schedule == "" {
		return orchestrator.Run(ctx)
	}
	return runScheduled(ctx, orchestrator, schedule, logger)
}

// runScheduled executes the pipeline on a cron schedule until interrupted.
// A tick is skipped when the previous run is still in flight.
func runScheduled(ctx context.Context, orchestrator *pipeline.Orchestrator, schedule string, logger arbor.ILogger) error {
	var busy atomic.Bool

	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		if !busy.CompareAndSwap(false, true) {
			logger.Warn().Msg("Previous run still in flight, skipping scheduled tick")
			return
		}
		defer busy.Store(false)

		if err := orchestrator.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info().Str("schedule", schedule).Msg("Running on schedule, press Ctrl+C to stop")
	scheduler.Start()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("Scheduler stopped")
	return nil
}
