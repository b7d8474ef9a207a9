// Package predict generates per-strategy predictions for an upcoming
// issue and reviews stored predictions once the outcome is known.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/miner"
	"github.com/hklotto/marksix/internal/picker"
	"github.com/hklotto/marksix/internal/scoring"
	"github.com/hklotto/marksix/models"
)

// ErrInsufficientHistory is returned when fewer draws are stored than
// the scoring floor requires.
var ErrInsufficientHistory = errors.New("insufficient draw history")

const (
	minHistory          = 20
	defaultRecentWindow = 200
)

// Store is the persistence surface the prediction pipeline needs.
// *database.DB satisfies it.
type Store interface {
	miner.ConfigStore

	DrawsAsc(ctx context.Context) ([]models.Draw, error)
	RecentDraws(ctx context.Context, limit int) ([]models.Draw, error)
	LatestDraw(ctx context.Context) (*models.Draw, error)
	GetDraw(ctx context.Context, issueNo string) (*models.Draw, error)

	UpsertPendingRun(ctx context.Context, issueNo, strategy string) (int64, bool, error)
	ReplacePicks(ctx context.Context, runID int64, picks []models.PredictionPick) error
	ReplacePools(ctx context.Context, runID int64, pools map[int][]int) error
	PendingRunsForIssue(ctx context.Context, issueNo string) ([]models.PredictionRun, error)
	PicksForRun(ctx context.Context, runID int64) ([]models.PredictionPick, error)
	PoolsForRun(ctx context.Context, runID int64) (map[int][]int, error)
	MarkRunReviewed(ctx context.Context, runID int64, run models.PredictionRun) error
}

// GenerateResult summarizes one Generate call.
type GenerateResult struct {
	TargetIssue string
	Generated   []string
	Skipped     []string
}

// Generate produces a PENDING run for every strategy targeting
// targetIssue. An empty targetIssue targets the issue after the latest
// stored draw. Strategies whose run for the issue is already REVIEWED
// are skipped, never regenerated. recentWindow bounds the scoring
// history; zero means the default of 200 draws.
func Generate(ctx context.Context, store Store, targetIssue string, recentWindow int) (GenerateResult, error) {
	logger := predictLogger()

	if recentWindow <= 0 {
		recentWindow = defaultRecentWindow
	}

	if targetIssue == "" {
		latest, err := store.LatestDraw(ctx)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("loading latest draw: %w", err)
		}
		if latest == nil {
			return GenerateResult{}, ErrInsufficientHistory
		}
		targetIssue = models.NextIssue(latest.IssueNo)
	}

	recent, err := store.RecentDraws(ctx, recentWindow)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("loading recent draws: %w", err)
	}
	if len(recent) < minHistory {
		return GenerateResult{}, fmt.Errorf("%w: have %d draws, need %d", ErrInsufficientHistory, len(recent), minHistory)
	}

	allDraws, err := store.DrawsAsc(ctx)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("loading draw history: %w", err)
	}
	minedCfg, err := miner.Ensure(ctx, store, allDraws, false)
	if err != nil {
		return GenerateResult{}, err
	}

	mains := make([][]int, len(recent))
	for i, d := range recent {
		mains[i] = d.Numbers
	}

	result := GenerateResult{TargetIssue: targetIssue}
	for _, strategy := range models.StrategyIDs {
		runID, reviewed, err := store.UpsertPendingRun(ctx, targetIssue, strategy)
		if err != nil {
			return result, fmt.Errorf("upserting run %s/%s: %w", targetIssue, strategy, err)
		}
		if reviewed {
			result.Skipped = append(result.Skipped, strategy)
			continue
		}

		scored := scoring.Generate(mains, strategy, &minedCfg)
		label := models.StrategyLabel(strategy)
		picks := append([]models.PredictionPick(nil), scored.Picks...)
		picks = append(picks, scored.SpecialPick(fmt.Sprintf("%s special score=%.4f", label, scored.SpecialScore)))

		if err := store.ReplacePicks(ctx, runID, picks); err != nil {
			return result, fmt.Errorf("storing picks %s/%s: %w", targetIssue, strategy, err)
		}
		pools := picker.BuildPools(scored.Scores, scored.MainNumbers())
		if err := store.ReplacePools(ctx, runID, pools); err != nil {
			return result, fmt.Errorf("storing pools %s/%s: %w", targetIssue, strategy, err)
		}
		result.Generated = append(result.Generated, strategy)
	}

	logger.Info().
		Str("issue", targetIssue).
		Int("generated", len(result.Generated)).
		Int("skipped", len(result.Skipped)).
		Msg("Predictions generated")
	return result, nil
}

// Review scores every PENDING run of issueNo against its stored draw
// and flips the runs to REVIEWED. Returns the number of runs reviewed.
// Reviewing an issue with no pending runs is a no-op.
func Review(ctx context.Context, store Store, issueNo string) (int, error) {
	logger := predictLogger()

	draw, err := store.GetDraw(ctx, issueNo)
	if err != nil {
		return 0, fmt.Errorf("loading draw %s: %w", issueNo, err)
	}
	if draw == nil {
		return 0, fmt.Errorf("no stored draw for issue %s", issueNo)
	}

	pending, err := store.PendingRunsForIssue(ctx, issueNo)
	if err != nil {
		return 0, fmt.Errorf("loading pending runs for %s: %w", issueNo, err)
	}

	winning := make(map[int]bool, len(draw.Numbers))
	for _, n := range draw.Numbers {
		winning[n] = true
	}

	reviewed := 0
	for _, run := range pending {
		outcome, err := scoreRun(ctx, store, run, winning, draw.SpecialNumber)
		if err != nil {
			return reviewed, err
		}
		if err := store.MarkRunReviewed(ctx, run.ID, outcome); err != nil {
			return reviewed, fmt.Errorf("marking run %d reviewed: %w", run.ID, err)
		}
		reviewed++
		logger.Info().
			Str("issue", issueNo).
			Str("strategy", run.Strategy).
			Int("hits", outcome.HitCount).
			Bool("special_hit", outcome.SpecialHit).
			Msg("Prediction reviewed")
	}
	return reviewed, nil
}

// ReviewLatest reviews the pending runs of the latest stored draw.
func ReviewLatest(ctx context.Context, store Store) (string, int, error) {
	latest, err := store.LatestDraw(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("loading latest draw: %w", err)
	}
	if latest == nil {
		return "", 0, errors.New("no draws stored")
	}
	reviewed, err := Review(ctx, store, latest.IssueNo)
	return latest.IssueNo, reviewed, err
}

func scoreRun(ctx context.Context, store Store, run models.PredictionRun, winning map[int]bool, special int) (models.PredictionRun, error) {
	picks, err := store.PicksForRun(ctx, run.ID)
	if err != nil {
		return run, fmt.Errorf("loading picks for run %d: %w", run.ID, err)
	}
	pools, err := store.PoolsForRun(ctx, run.ID)
	if err != nil {
		return run, fmt.Errorf("loading pools for run %d: %w", run.ID, err)
	}

	var mains []int
	specialPick := 0
	for _, p := range picks {
		switch p.PickType {
		case models.PickTypeSpecial:
			specialPick = p.Number
		default:
			mains = append(mains, p.Number)
		}
	}

	run.HitCount = picker.PoolHitCount(mains, winning)
	run.HitRate = hitRate(run.HitCount)
	run.HitCount10 = picker.PoolHitCount(pools[10], winning)
	run.HitRate10 = hitRate(run.HitCount10)
	run.HitCount14 = picker.PoolHitCount(pools[14], winning)
	run.HitRate14 = hitRate(run.HitCount14)
	run.HitCount20 = picker.PoolHitCount(pools[20], winning)
	run.HitRate20 = hitRate(run.HitCount20)
	run.SpecialHit = specialPick != 0 && specialPick == special
	return run, nil
}

// hitRate is the fraction of the six winning mains captured, rounded to
// four decimals.
func hitRate(hits int) float64 {
	return math.Round(float64(hits)/float64(models.MainPicks)*10000) / 10000
}

func predictLogger() zerolog.Logger {
	return log.With().Str("component", "predict").Logger()
}
