// Package backtest replays the full draw history, generating and
// reviewing every strategy against each historical issue as if it had
// been predicted at the time.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/miner"
	"github.com/hklotto/marksix/internal/picker"
	"github.com/hklotto/marksix/internal/scoring"
	"github.com/hklotto/marksix/models"
)

// minedBucketSize controls how often the mined configuration is refit
// during a replay: once per bucket of issues, from history only.
const minedBucketSize = 50

// Store is the persistence surface the harness needs. *database.DB
// satisfies it.
type Store interface {
	DrawsAsc(ctx context.Context) ([]models.Draw, error)
	ReviewedRunCount(ctx context.Context, issueNo string) (int, error)
	SaveReviewedRun(ctx context.Context, run models.PredictionRun, picks []models.PredictionPick, pools map[int][]int) error
	DeleteAllPredictions(ctx context.Context) error
}

// Options configures one replay.
type Options struct {
	// MinHistory is the number of leading draws used purely as history.
	// Zero means 20.
	MinHistory int
	// Rebuild deletes all stored predictions first and replays every
	// issue. Without it the replay resumes, skipping issues that are
	// already fully reviewed.
	Rebuild bool
	// ProgressEvery is the issue interval between progress log lines.
	// Zero means 25.
	ProgressEvery int
}

// Summary reports what one replay did.
type Summary struct {
	Issues  int // issues evaluated
	Skipped int // issues already fully reviewed
	Runs    int // reviewed runs written
	Elapsed time.Duration
}

// Run replays the stored history. Each issue is scored using only
// draws strictly before it; the mined configuration is refit once per
// bucket of issues from that same bounded history, so no run ever sees
// its own outcome.
func Run(ctx context.Context, store Store, opts Options) (Summary, error) {
	logger := backtestLogger()
	started := time.Now()

	minHistory := opts.MinHistory
	if minHistory <= 0 {
		minHistory = 20
	}
	progressEvery := opts.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = 25
	}

	draws, err := store.DrawsAsc(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading draw history: %w", err)
	}
	if len(draws) <= minHistory {
		return Summary{}, fmt.Errorf("need more than %d draws to backtest, have %d", minHistory, len(draws))
	}

	if opts.Rebuild {
		if err := store.DeleteAllPredictions(ctx); err != nil {
			return Summary{}, fmt.Errorf("clearing stored predictions: %w", err)
		}
		logger.Info().Msg("Stored predictions cleared for rebuild")
	}

	total := len(draws) - minHistory
	summary := Summary{}
	minedByBucket := make(map[int]models.StrategyConfig)

	for i := minHistory; i < len(draws); i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		target := draws[i]

		if !opts.Rebuild {
			count, err := store.ReviewedRunCount(ctx, target.IssueNo)
			if err != nil {
				return summary, fmt.Errorf("checking issue %s: %w", target.IssueNo, err)
			}
			if count >= len(models.StrategyIDs) {
				summary.Skipped++
				continue
			}
		}

		historyDesc := make([][]int, i)
		for j := 0; j < i; j++ {
			historyDesc[j] = draws[i-1-j].Numbers
		}
		winning := make(map[int]bool, len(target.Numbers))
		for _, n := range target.Numbers {
			winning[n] = true
		}

		for _, strategy := range models.StrategyIDs {
			// Only the mined strategy sees the bucket refit; every
			// other strategy, the ensemble's mined voter included,
			// stays on the default configuration.
			var minedCfg *models.StrategyConfig
			if strategy == models.StrategyMined {
				bucket := i / minedBucketSize
				cfg, ok := minedByBucket[bucket]
				if !ok {
					cfg = miner.Mine(draws[:i])
					minedByBucket[bucket] = cfg
				}
				minedCfg = &cfg
			}
			scored := scoring.Generate(historyDesc, strategy, minedCfg)
			label := models.StrategyLabel(strategy)
			picks := append([]models.PredictionPick(nil), scored.Picks...)
			picks = append(picks, scored.SpecialPick(fmt.Sprintf("%s special score=%.4f", label, scored.SpecialScore)))
			pools := picker.BuildPools(scored.Scores, scored.MainNumbers())

			run := models.PredictionRun{
				IssueNo:  target.IssueNo,
				Strategy: strategy,
			}
			run.HitCount = picker.PoolHitCount(scored.MainNumbers(), winning)
			run.HitRate = hitRate(run.HitCount)
			run.HitCount10 = picker.PoolHitCount(pools[10], winning)
			run.HitRate10 = hitRate(run.HitCount10)
			run.HitCount14 = picker.PoolHitCount(pools[14], winning)
			run.HitRate14 = hitRate(run.HitCount14)
			run.HitCount20 = picker.PoolHitCount(pools[20], winning)
			run.HitRate20 = hitRate(run.HitCount20)
			run.SpecialHit = scored.SpecialNumber == target.SpecialNumber

			if err := store.SaveReviewedRun(ctx, run, picks, pools); err != nil {
				return summary, fmt.Errorf("saving run %s/%s: %w", target.IssueNo, strategy, err)
			}
			summary.Runs++
		}
		summary.Issues++

		done := i - minHistory + 1
		if done%progressEvery == 0 || done == total {
			elapsed := time.Since(started)
			var eta time.Duration
			if summary.Issues > 0 {
				perIssue := elapsed / time.Duration(summary.Issues)
				eta = perIssue * time.Duration(total-done)
			}
			logger.Info().
				Str("issue", target.IssueNo).
				Int("done", done).
				Int("total", total).
				Str("pct", fmt.Sprintf("%.1f%%", float64(done)/float64(total)*100)).
				Dur("elapsed", elapsed).
				Dur("eta", eta).
				Msg("Backtest progress")
		}
	}

	summary.Elapsed = time.Since(started)
	logger.Info().
		Int("issues", summary.Issues).
		Int("skipped", summary.Skipped).
		Int("runs", summary.Runs).
		Dur("elapsed", summary.Elapsed).
		Msg("Backtest finished")
	return summary, nil
}

func hitRate(hits int) float64 {
	return math.Round(float64(hits)/float64(models.MainPicks)*10000) / 10000
}

func backtestLogger() zerolog.Logger {
	return log.With().Str("component", "backtest").Logger()
}
