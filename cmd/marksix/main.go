package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/backtest"
	"github.com/hklotto/marksix/internal/config"
	"github.com/hklotto/marksix/internal/database"
	"github.com/hklotto/marksix/internal/fetch"
	"github.com/hklotto/marksix/internal/ingest"
	"github.com/hklotto/marksix/internal/miner"
	"github.com/hklotto/marksix/internal/notify"
	"github.com/hklotto/marksix/internal/predict"
	"github.com/hklotto/marksix/models"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: marksix <command> [flags]

Commands:
  bootstrap   load draw history from a local CSV file
  sync        pull the latest draws from the online sources
  predict     generate picks for the upcoming issue
  review      score stored picks against a drawn outcome
  backtest    replay the stored history across all strategies
  mine        refresh the mined weight configuration
  show        print the current picks and strategy performance
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	switch os.Args[1] {
	case "bootstrap":
		runBootstrap(ctx, db, cfg, os.Args[2:])
	case "sync":
		runSync(ctx, db, cfg, os.Args[2:])
	case "predict":
		runPredict(ctx, db, cfg, os.Args[2:])
	case "review":
		runReview(ctx, db, os.Args[2:])
	case "backtest":
		runBacktest(ctx, db, cfg, os.Args[2:])
	case "mine":
		runMine(ctx, db, os.Args[2:])
	case "show":
		runShow(ctx, db, os.Args[2:])
	default:
		usage()
	}
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

func runBootstrap(ctx context.Context, db *database.DB, cfg *models.Config, args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	csvPath := fs.String("csv", cfg.CSVPath, "path to the draw history CSV")
	fs.Parse(args)

	records, err := fetch.ParseCSVFile(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("Failed to parse CSV")
	}
	total, inserted, updated, err := db.SyncDraws(ctx, records, fetch.SourceLocalCSV)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to store draws")
	}
	log.Info().
		Str("path", *csvPath).
		Int("total", total).
		Int("inserted", inserted).
		Int("updated", updated).
		Msg("Bootstrap finished")
}

func runSync(ctx context.Context, db *database.DB, cfg *models.Config, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	maxPages := fs.Int("max-pages", cfg.ThirdPartyMaxPages, "page limit for third-party sources")
	withBacktest := fs.Bool("with-backtest", false, "run an incremental backtest after storing")
	remine := fs.Bool("remine", false, "re-mine the weight configuration even when cached")
	requireContinuity := fs.Bool("require-continuity", true, "fail when issues are missing between the store and the feed")
	window := fs.Int("window", cfg.RecentWindow, "scoring history window for the generated picks")
	fs.Parse(args)

	hasDraws, err := db.HasAnyDraw(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check stored draws")
	}
	if !hasDraws {
		log.Warn().Msg("No draws stored; the official feed only covers recent draws, consider bootstrap first")
	}

	client := fetch.NewClient(fetch.ClientOptions{
		Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})
	fetcher := fetch.NewFetcher(client, *maxPages)

	res, err := ingest.Run(ctx, db, fetcher, ingest.Options{
		OfficialURL:       cfg.OfficialURL,
		ThirdPartyURLs:    fetch.ParseURLList(cfg.ThirdPartyURLs),
		RequireContinuity: *requireContinuity,
		Remine:            *remine,
		WithBacktest:      *withBacktest,
		RecentWindow:      *window,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("synced %d records from %s (%d new, %d updated)\n",
		res.Total, res.Source, res.Inserted, res.Updated)
	if res.Reviewed > 0 {
		fmt.Printf("reviewed %d picks for %s\n", res.Reviewed, res.ReviewedIssue)
	}
	if res.Backtest != nil {
		fmt.Printf("backtest: %d issues evaluated, %d skipped, %d runs in %s\n",
			res.Backtest.Issues, res.Backtest.Skipped, res.Backtest.Runs,
			res.Backtest.Elapsed.Round(time.Millisecond))
	}
	printPicks(ctx, db, res.TargetIssue)
}

func runPredict(ctx context.Context, db *database.DB, cfg *models.Config, args []string) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	issue := fs.String("issue", "", "target issue (default: after the latest draw)")
	window := fs.Int("window", cfg.RecentWindow, "scoring history window")
	sendNotify := fs.Bool("notify", false, "send the picks to the configured Telegram chat")
	fs.Parse(args)

	result, err := predict.Generate(ctx, db, *issue, *window)
	if err != nil {
		log.Fatal().Err(err).Msg("Prediction failed")
	}
	log.Info().
		Str("issue", result.TargetIssue).
		Strs("generated", result.Generated).
		Strs("skipped", result.Skipped).
		Msg("Prediction finished")
	printPicks(ctx, db, result.TargetIssue)

	if *sendNotify {
		notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Telegram not configured")
		}
		sheets, err := buildSheets(ctx, db, result.TargetIssue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load picks for notification")
		}
		if err := notifier.SendRecommendations(result.TargetIssue, sheets); err != nil {
			log.Fatal().Err(err).Msg("Failed to send notification")
		}
	}
}

func buildSheets(ctx context.Context, db *database.DB, issueNo string) ([]notify.StrategySheet, error) {
	runs, err := db.PendingRunsForIssue(ctx, issueNo)
	if err != nil {
		return nil, err
	}
	var sheets []notify.StrategySheet
	for _, run := range runs {
		picks, err := db.PicksForRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		pool20, err := db.PoolForRun(ctx, run.ID, 20)
		if err != nil {
			return nil, err
		}
		sheet := notify.StrategySheet{Strategy: run.Strategy, Pool20: pool20}
		for _, p := range picks {
			if p.PickType == models.PickTypeSpecial {
				sheet.Special = p.Number
			} else {
				sheet.Mains = append(sheet.Mains, p.Number)
			}
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func runReview(ctx context.Context, db *database.DB, args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	issue := fs.String("issue", "", "issue to review (default: the latest stored draw)")
	fs.Parse(args)

	if *issue == "" {
		reviewedIssue, count, err := predict.ReviewLatest(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Review failed")
		}
		log.Info().Str("issue", reviewedIssue).Int("reviewed", count).Msg("Review finished")
		return
	}
	count, err := predict.Review(ctx, db, *issue)
	if err != nil {
		log.Fatal().Err(err).Msg("Review failed")
	}
	log.Info().Str("issue", *issue).Int("reviewed", count).Msg("Review finished")
}

func runBacktest(ctx context.Context, db *database.DB, cfg *models.Config, args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	rebuild := fs.Bool("rebuild", false, "delete stored predictions and replay everything")
	minHistory := fs.Int("min-history", cfg.MinHistory, "leading draws reserved as history")
	progress := fs.Int("progress", 25, "issues between progress log lines")
	fs.Parse(args)

	summary, err := backtest.Run(ctx, db, backtest.Options{
		MinHistory:    *minHistory,
		Rebuild:       *rebuild,
		ProgressEvery: *progress,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Backtest failed")
	}
	fmt.Printf("backtest: %d issues evaluated, %d skipped, %d runs in %s\n",
		summary.Issues, summary.Skipped, summary.Runs, summary.Elapsed.Round(time.Millisecond))
}

func runMine(ctx context.Context, db *database.DB, args []string) {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	force := fs.Bool("force", false, "re-mine even when a cached configuration exists")
	fs.Parse(args)

	draws, err := db.DrawsAsc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load draws")
	}
	cfg, err := miner.Ensure(ctx, db, draws, *force)
	if err != nil {
		log.Fatal().Err(err).Msg("Mining failed")
	}
	fmt.Printf("mined config: window=%d freq=%.2f omit=%.2f mom=%.2f pair=%.2f zone=%.2f\n",
		cfg.Window, cfg.FreqWeight, cfg.OmitWeight, cfg.MomWeight, cfg.PairWeight, cfg.ZoneWeight)
}

func runShow(ctx context.Context, db *database.DB, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	issue := fs.String("issue", "", "issue to show picks for (default: after the latest draw)")
	fs.Parse(args)

	target := *issue
	if target == "" {
		latest, err := db.LatestDraw(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load latest draw")
		}
		if latest == nil {
			fmt.Println("no draws stored")
			return
		}
		fmt.Printf("latest draw %s (%s): %v + %d\n",
			latest.IssueNo, latest.DrawDate, latest.Numbers, latest.SpecialNumber)
		target = models.NextIssue(latest.IssueNo)
	}
	printPicks(ctx, db, target)

	stats, err := db.ReviewStats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load stats")
	}
	if len(stats) > 0 {
		fmt.Println("\nstrategy performance (reviewed runs):")
		for _, s := range stats {
			fmt.Printf("  %-16s n=%-5d hits=%.2f rate=%.1f%% pool20=%.1f%% special=%.1f%%\n",
				models.StrategyLabel(s.Strategy), s.Count, s.AvgHit,
				s.AvgRate*100, s.AvgRate20*100, s.SpecialRate*100)
		}
	}
}

func printPicks(ctx context.Context, db *database.DB, issueNo string) {
	runs, err := db.PendingRunsForIssue(ctx, issueNo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pending runs")
	}
	if len(runs) == 0 {
		fmt.Printf("no pending picks for %s\n", issueNo)
		return
	}
	fmt.Printf("picks for %s:\n", issueNo)
	for _, run := range runs {
		picks, err := db.PicksForRun(ctx, run.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load picks")
		}
		var mains []int
		special := 0
		for _, p := range picks {
			if p.PickType == models.PickTypeSpecial {
				special = p.Number
			} else {
				mains = append(mains, p.Number)
			}
		}
		fmt.Printf("  %-16s %v + %d\n", models.StrategyLabel(run.Strategy), mains, special)
	}
}
