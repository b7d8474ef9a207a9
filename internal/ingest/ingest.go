// Package ingest runs the full sync pipeline: pull draws from the
// online sources, gate on issue continuity, store them, then refresh
// the mined configuration, review the latest outcome and generate the
// next issue's picks.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/backtest"
	"github.com/hklotto/marksix/internal/fetch"
	"github.com/hklotto/marksix/internal/miner"
	"github.com/hklotto/marksix/internal/predict"
	"github.com/hklotto/marksix/models"
)

// Store is the persistence surface the pipeline needs. *database.DB
// satisfies it.
type Store interface {
	predict.Store
	backtest.Store

	SyncDraws(ctx context.Context, records []models.Draw, source string) (total, inserted, updated int, err error)
}

// Source pulls draw records from the configured feeds. *fetch.Fetcher
// satisfies it.
type Source interface {
	FetchWithFallback(ctx context.Context, officialURL string, thirdPartyURLs []string) ([]models.Draw, string, string, error)
}

// Options configures one sync run.
type Options struct {
	OfficialURL    string
	ThirdPartyURLs []string
	// RequireContinuity fails the run when issues are missing between
	// the stored history and the fetched batch, before anything is
	// written.
	RequireContinuity bool
	// Remine forces a mined-config refit even when one is cached.
	Remine bool
	// WithBacktest runs an incremental backtest after storing.
	WithBacktest bool
	// RecentWindow bounds the scoring history for the generated picks.
	RecentWindow int
}

// Result reports what one sync run did.
type Result struct {
	Total    int
	Inserted int
	Updated  int

	Source    string
	SourceURL string

	MinedConfig   models.StrategyConfig
	ReviewedIssue string
	Reviewed      int
	Backtest      *backtest.Summary
	TargetIssue   string
	Generated     []string
	Skipped       []string
}

// Run executes the pipeline. The continuity gate runs against the
// pre-sync store, so a gapped feed fails before any record lands.
func Run(ctx context.Context, store Store, source Source, opts Options) (Result, error) {
	logger := ingestLogger()
	var res Result

	records, sourceLabel, sourceURL, err := source.FetchWithFallback(ctx, opts.OfficialURL, opts.ThirdPartyURLs)
	if err != nil {
		return res, err
	}
	res.Source = sourceLabel
	res.SourceURL = sourceURL
	logger.Info().Str("source", sourceLabel).Str("url", sourceURL).Int("records", len(records)).Msg("Fetched draw records")

	if err := checkContinuity(ctx, store, records, opts.RequireContinuity, logger); err != nil {
		return res, err
	}

	res.Total, res.Inserted, res.Updated, err = store.SyncDraws(ctx, records, sourceLabel)
	if err != nil {
		return res, fmt.Errorf("storing draws: %w", err)
	}

	draws, err := store.DrawsAsc(ctx)
	if err != nil {
		return res, fmt.Errorf("loading draw history: %w", err)
	}
	res.MinedConfig, err = miner.Ensure(ctx, store, draws, opts.Remine)
	if err != nil {
		return res, err
	}

	res.ReviewedIssue, res.Reviewed, err = predict.ReviewLatest(ctx, store)
	if err != nil {
		return res, fmt.Errorf("reviewing latest issue: %w", err)
	}

	if opts.WithBacktest {
		summary, err := backtest.Run(ctx, store, backtest.Options{})
		if err != nil {
			return res, fmt.Errorf("incremental backtest: %w", err)
		}
		res.Backtest = &summary
	}

	generated, err := predict.Generate(ctx, store, "", opts.RecentWindow)
	if err != nil {
		return res, err
	}
	res.TargetIssue = generated.TargetIssue
	res.Generated = generated.Generated
	res.Skipped = generated.Skipped

	logger.Info().
		Int("total", res.Total).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("reviewed", res.Reviewed).
		Str("next_prediction", res.TargetIssue).
		Msg("Sync finished")
	return res, nil
}

// checkContinuity compares the feed against the stored history. With
// the gate enabled a gap is an error; otherwise it is only logged.
func checkContinuity(ctx context.Context, store Store, records []models.Draw, required bool, logger zerolog.Logger) error {
	latest, err := store.LatestDraw(ctx)
	if err != nil {
		return fmt.Errorf("loading latest draw: %w", err)
	}
	if latest == nil {
		return nil
	}

	missing := fetch.MissingIssues(latest.IssueNo, records, func(issueNo string) bool {
		draw, lookupErr := store.GetDraw(ctx, issueNo)
		return lookupErr == nil && draw != nil
	})
	if len(missing) == 0 {
		return nil
	}
	if required {
		sample := missing
		if len(sample) > 10 {
			sample = sample[:10]
		}
		return fmt.Errorf("continuity check failed: %d issues missing, sample %s", len(missing), strings.Join(sample, ","))
	}
	logger.Warn().Strs("issues", missing).Msg("Issues missing between store and feed")
	return nil
}

func ingestLogger() zerolog.Logger {
	return log.With().Str("component", "ingest").Logger()
}
