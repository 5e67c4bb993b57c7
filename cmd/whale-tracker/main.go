package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/whale-tracker/cmd/common"
	"github.com/ducminhle1904/whale-tracker/internal/api"
	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/database"
	"github.com/ducminhle1904/whale-tracker/internal/exchange/bybit"
	"github.com/ducminhle1904/whale-tracker/internal/feed"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/notifications"
	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/state"
	"github.com/ducminhle1904/whale-tracker/pkg/data"
	"github.com/ducminhle1904/whale-tracker/pkg/reporting"
)

const shutdownTimeout = 15 * time.Second

type runFlags struct {
	configFile string
	feed       string
	interval   time.Duration
	noAPI      bool
	quiet      bool
	exportCSV  bool
	common     *common.CommonFlags
}

func main() {
	var f runFlags
	flag.StringVar(&f.configFile, "config", "whale_tracker.json", "Configuration file (resolved under configs/ when no directory is given)")
	flag.StringVar(&f.feed, "feed", "", "Snapshot source override (bybit, csv)")
	flag.DurationVar(&f.interval, "interval", 0, "Cycle interval override")
	flag.BoolVar(&f.noAPI, "no-api", false, "Disable the dashboard and control API")
	flag.BoolVar(&f.quiet, "quiet", false, "Do not render the console dashboard after each cycle")
	flag.BoolVar(&f.exportCSV, "csv", false, "Also export the trade history as CSV on shutdown")
	f.common = common.RegisterCommonFlags()
	flag.Parse()

	if *f.common.Version {
		common.PrintVersion("whale-tracker")
		return
	}

	if err := common.NewFlagValidator().
		ValidateOneOf("feed", f.feed, "bybit", "csv").
		ValidateDuration("interval", f.interval).
		Error(); err != nil {
		log.Fatal(err)
	}

	if err := config.LoadEnvFile(*f.common.EnvFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if f.feed != "" {
		cfg.Feed.Source = strings.ToLower(f.feed)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}
	if f.noAPI {
		cfg.API.Enabled = false
	}

	if err := run(cfg, f); err != nil {
		log.Fatalf("whale-tracker: %v", err)
	}
}

func run(cfg *config.Config, f runFlags) error {
	logDir := cfg.Logging.Dir
	if *f.common.ConsoleOnly {
		logDir = ""
	}
	lg, err := logger.NewLogger("whale_tracker", logger.Options{
		Dir:     logDir,
		Level:   f.common.LogLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console || *f.common.ConsoleOnly,
	})
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Status("%s %s starting, %d symbols, feed %s", common.ProjectName, common.GetFullVersion(), len(cfg.Symbols), cfg.Feed.Source)

	opts := orchestrator.Options{Interval: f.interval}

	src, err := buildFeed(cfg, &opts, lg)
	if err != nil {
		return err
	}

	store, closeStore := buildStore(cfg, lg)
	defer closeStore()
	opts.Store = store

	if cfg.Storage.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.Storage.DatabaseURL, lg)
		if err != nil {
			lg.LogWarning("Database", "history disabled: %v", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db.Pool); err != nil {
				return fmt.Errorf("database migrations: %w", err)
			}
			opts.History = database.NewHistoryRepository(db.Pool)
		}
	}

	if n := cfg.Notifications; n != nil && n.Enabled {
		opts.Notifier = notifications.NewTelegramNotifier(n.TelegramToken, n.TelegramChat)
		lg.Info("telegram notifications enabled")
	}

	var fanout publishers
	console := reporting.NewDefaultConsoleReporter(nil)
	if !f.quiet {
		fanout = append(fanout, console)
	}

	var hub *api.WSHub
	if cfg.API.Enabled {
		hub = api.NewWSHub(cfg.API.AllowedOrigins, lg)
		go hub.Run(ctx)
		fanout = append(fanout, hub)
	}
	opts.Publisher = fanout

	engine := orchestrator.NewEngine(cfg, src, opts, lg)
	if err := engine.Restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	console.PrintConfig(configRows(cfg))

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, engine, hub, engine.Health(), engine.Metrics().Handler(), lg)
		go func() {
			if err := server.Start(); err != nil {
				lg.LogError("API Server", err)
				stop()
			}
		}()
	}

	runErr := engine.Run(ctx)
	if runErr != nil {
		lg.LogError("Engine", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.LogError("API Shutdown", err)
		}
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		lg.LogError("Engine Shutdown", err)
	}

	final := engine.Snapshot()
	written, err := reporting.NewReportingManager(reporting.ReportingConfig{
		OutputDirectory: cfg.Storage.ReportDir,
		ExcelEnabled:    true,
		CSVEnabled:      f.exportCSV,
		JSONEnabled:     true,
	}).ReportFinal(final, engine.Tracker().History(), time.Now())
	if err != nil {
		lg.LogError("Reports", err)
	}
	for _, path := range written {
		lg.Info("report written: %s", path)
	}

	lg.Status("stopped after %d cycles, total value %.2f", final.Cycle, final.Portfolio.TotalValue)
	return runErr
}

func buildFeed(cfg *config.Config, opts *orchestrator.Options, lg *logger.Logger) (feed.Feed, error) {
	var src feed.Feed

	switch cfg.Feed.Source {
	case "csv":
		replay := data.NewReplayFeed(cfg.Feed.DataDir, cfg.Runtime.HistoryBars)
		symbols := cfg.Symbols
		opts.ReplayClock = true
		opts.StopWhen = func() bool { return replay.Exhausted(symbols) }
		if opts.Interval == 0 {
			opts.Interval = time.Millisecond
		}
		src = replay
		lg.Info("replaying recorded bars from %s", cfg.Feed.DataDir)
	default:
		client := bybit.NewClient(bybit.Config{
			APIKey:    cfg.Feed.APIKey,
			APISecret: cfg.Feed.APISecret,
			Demo:      cfg.Feed.Demo,
		})
		src = bybit.NewSnapshotFeed(client, cfg.Feed.Category, cfg.Feed.Interval, cfg.Runtime.HistoryBars)
		lg.Info("bybit %s feed (%s), %s klines", client.GetEnvironment(), cfg.Feed.Category, cfg.Feed.Interval)
	}

	if cfg.Feed.FilingsFile != "" {
		overlay, err := feed.NewDisclosureOverlay(src, cfg.Feed.FilingsFile)
		if err != nil {
			return nil, fmt.Errorf("load disclosures: %w", err)
		}
		src = overlay
		lg.Info("institutional disclosures from %s", cfg.Feed.FilingsFile)
	}
	return src, nil
}

func buildStore(cfg *config.Config, lg *logger.Logger) (state.Store, func()) {
	file := state.NewFileStore(cfg.Storage.StateFile, lg)
	if cfg.Storage.RedisAddr == "" {
		return file, func() {}
	}

	redisStore := state.NewRedisStore(state.NewRedisClient(cfg.Storage.RedisAddr), cfg.Storage.RedisKey, lg)
	closeFn := func() {
		if err := redisStore.Close(); err != nil {
			lg.LogWarning("Redis", "close: %v", err)
		}
	}
	return state.NewTieredStore(lg, redisStore, file), closeFn
}

func configRows(cfg *config.Config) [][2]string {
	return [][2]string{
		{"Symbols", strings.Join(cfg.Symbols, ", ")},
		{"Initial Capital", fmt.Sprintf("$%.2f", cfg.InitialCapital)},
		{"Feed", fmt.Sprintf("%s (%s)", cfg.Feed.Source, cfg.Feed.Interval)},
		{"Update Interval", cfg.Runtime.UpdateInterval.Std().String()},
		{"Position Size", fmt.Sprintf("%.1f%% of value", cfg.Risk.MaxPositionFraction*100)},
		{"Stop / Target", fmt.Sprintf("%.1f%% / %.1f%%", cfg.Risk.StopLossPct*100, cfg.Risk.TakeProfitPct*100)},
		{"Max Exposure", fmt.Sprintf("%.1f%%", cfg.Risk.MaxExposure*100)},
		{"Daily Loss Limit", fmt.Sprintf("%.1f%%", cfg.Risk.MaxDailyLoss*100)},
		{"API", apiRow(cfg.API)},
	}
}

func apiRow(c config.APIConfig) string {
	if !c.Enabled {
		return "disabled"
	}
	return c.Addr
}

// publishers fans a snapshot out to every dashboard sink
type publishers []orchestrator.Publisher

func (p publishers) Publish(s orchestrator.Snapshot) {
	for _, pub := range p {
		pub.Publish(s)
	}
}
