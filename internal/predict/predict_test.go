package predict

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hklotto/marksix/models"
)

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	draws  []models.Draw // ascending
	nextID int64
	runs   map[string]*models.PredictionRun // issue/strategy
	picks  map[int64][]models.PredictionPick
	pools  map[int64]map[int][]int
	state  map[string]string
}

func newMemStore(draws []models.Draw) *memStore {
	return &memStore{
		draws: draws,
		runs:  make(map[string]*models.PredictionRun),
		picks: make(map[int64][]models.PredictionPick),
		pools: make(map[int64]map[int][]int),
		state: make(map[string]string),
	}
}

func runKey(issueNo, strategy string) string { return issueNo + "/" + strategy }

func (s *memStore) GetModelState(_ context.Context, key string) (string, bool, error) {
	v, ok := s.state[key]
	return v, ok, nil
}

func (s *memStore) SetModelState(_ context.Context, key, value string) error {
	s.state[key] = value
	return nil
}

func (s *memStore) DrawsAsc(context.Context) ([]models.Draw, error) {
	return append([]models.Draw(nil), s.draws...), nil
}

func (s *memStore) RecentDraws(_ context.Context, limit int) ([]models.Draw, error) {
	var out []models.Draw
	for i := len(s.draws) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.draws[i])
	}
	return out, nil
}

func (s *memStore) LatestDraw(context.Context) (*models.Draw, error) {
	if len(s.draws) == 0 {
		return nil, nil
	}
	d := s.draws[len(s.draws)-1]
	return &d, nil
}

func (s *memStore) GetDraw(_ context.Context, issueNo string) (*models.Draw, error) {
	for _, d := range s.draws {
		if d.IssueNo == issueNo {
			draw := d
			return &draw, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpsertPendingRun(_ context.Context, issueNo, strategy string) (int64, bool, error) {
	if run, ok := s.runs[runKey(issueNo, strategy)]; ok {
		return run.ID, run.Status == models.RunStatusReviewed, nil
	}
	s.nextID++
	run := &models.PredictionRun{ID: s.nextID, IssueNo: issueNo, Strategy: strategy, Status: models.RunStatusPending}
	s.runs[runKey(issueNo, strategy)] = run
	return run.ID, false, nil
}

func (s *memStore) ReplacePicks(_ context.Context, runID int64, picks []models.PredictionPick) error {
	s.picks[runID] = append([]models.PredictionPick(nil), picks...)
	return nil
}

func (s *memStore) ReplacePools(_ context.Context, runID int64, pools map[int][]int) error {
	copied := make(map[int][]int, len(pools))
	for size, numbers := range pools {
		copied[size] = append([]int(nil), numbers...)
	}
	s.pools[runID] = copied
	return nil
}

func (s *memStore) PendingRunsForIssue(_ context.Context, issueNo string) ([]models.PredictionRun, error) {
	var out []models.PredictionRun
	for _, strategy := range models.StrategyIDs {
		if run, ok := s.runs[runKey(issueNo, strategy)]; ok && run.Status == models.RunStatusPending {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (s *memStore) PicksForRun(_ context.Context, runID int64) ([]models.PredictionPick, error) {
	return append([]models.PredictionPick(nil), s.picks[runID]...), nil
}

func (s *memStore) PoolsForRun(_ context.Context, runID int64) (map[int][]int, error) {
	return s.pools[runID], nil
}

func (s *memStore) MarkRunReviewed(_ context.Context, runID int64, outcome models.PredictionRun) error {
	for _, run := range s.runs {
		if run.ID == runID {
			outcome.ID = run.ID
			outcome.IssueNo = run.IssueNo
			outcome.Strategy = run.Strategy
			outcome.Status = models.RunStatusReviewed
			*run = outcome
			return nil
		}
	}
	return fmt.Errorf("run %d not found", runID)
}

// generateDraws builds a deterministic synthetic ascending history.
func generateDraws(n int) []models.Draw {
	draws := make([]models.Draw, n)
	for i := 0; i < n; i++ {
		base := (i * 6) % 49
		numbers := make([]int, 6)
		for j := 0; j < 6; j++ {
			numbers[j] = (base+j*8)%49 + 1
		}
		draws[i] = models.Draw{
			IssueNo:       models.BuildIssue("25", i+1, 3),
			DrawDate:      "2025-01-01",
			Numbers:       numbers,
			SpecialNumber: (i*13)%49 + 1,
		}
	}
	return draws
}

func TestGenerateProducesEveryStrategy(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(generateDraws(130))

	result, err := Generate(ctx, store, "", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(result.Generated) != len(models.StrategyIDs) {
		t.Fatalf("generated %d strategies, want %d", len(result.Generated), len(models.StrategyIDs))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("unexpected skips: %v", result.Skipped)
	}

	wantIssue := models.NextIssue(store.draws[len(store.draws)-1].IssueNo)
	if result.TargetIssue != wantIssue {
		t.Errorf("target issue = %s, want %s", result.TargetIssue, wantIssue)
	}

	for _, strategy := range models.StrategyIDs {
		run := store.runs[runKey(result.TargetIssue, strategy)]
		if run == nil {
			t.Fatalf("no run stored for %s", strategy)
		}
		picks := store.picks[run.ID]
		mains, specials := 0, 0
		mainSet := make(map[int]bool)
		for _, p := range picks {
			switch p.PickType {
			case models.PickTypeMain:
				mains++
				mainSet[p.Number] = true
			case models.PickTypeSpecial:
				specials++
				if mainSet[p.Number] {
					t.Errorf("%s: special %d overlaps mains", strategy, p.Number)
				}
			}
		}
		if mains != models.MainPicks || specials != 1 {
			t.Errorf("%s: %d mains and %d specials", strategy, mains, specials)
		}

		pools := store.pools[run.ID]
		for _, size := range models.PoolSizes {
			if len(pools[size]) != size {
				t.Errorf("%s: pool %d has %d numbers", strategy, size, len(pools[size]))
			}
		}
		// Pools nest: each pool contains the previous one.
		for i := 1; i < len(models.PoolSizes); i++ {
			inner := pools[models.PoolSizes[i-1]]
			outer := make(map[int]bool)
			for _, n := range pools[models.PoolSizes[i]] {
				outer[n] = true
			}
			for _, n := range inner {
				if !outer[n] {
					t.Errorf("%s: pool %d missing %d from pool %d",
						strategy, models.PoolSizes[i], n, models.PoolSizes[i-1])
				}
			}
		}
	}
}

func TestGenerateInsufficientHistory(t *testing.T) {
	store := newMemStore(generateDraws(10))
	_, err := Generate(context.Background(), store, "", 0)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestGenerateSkipsReviewedRuns(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(generateDraws(130))

	first, err := Generate(ctx, store, "26/001", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	run := store.runs[runKey("26/001", models.StrategyHot)]
	run.Status = models.RunStatusReviewed
	frozen := append([]models.PredictionPick(nil), store.picks[run.ID]...)

	second, err := Generate(ctx, store, "26/001", 0)
	if err != nil {
		t.Fatalf("Generate (repeat): %v", err)
	}
	if len(second.Skipped) != 1 || second.Skipped[0] != models.StrategyHot {
		t.Errorf("skipped = %v, want [%s]", second.Skipped, models.StrategyHot)
	}
	if len(second.Generated) != len(first.Generated)-1 {
		t.Errorf("regenerated %d strategies, want %d", len(second.Generated), len(first.Generated)-1)
	}
	after := store.picks[run.ID]
	if len(after) != len(frozen) {
		t.Fatalf("reviewed run picks changed: %d vs %d", len(after), len(frozen))
	}
	for i := range frozen {
		if after[i] != frozen[i] {
			t.Errorf("reviewed run pick %d changed: %+v vs %+v", i, after[i], frozen[i])
		}
	}
}

func TestReviewScoresPendingRuns(t *testing.T) {
	ctx := context.Background()
	draws := generateDraws(131)
	store := newMemStore(draws[:130])

	target := draws[130].IssueNo
	if _, err := Generate(ctx, store, target, 0); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	store.draws = draws // outcome arrives

	reviewed, err := Review(ctx, store, target)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed != len(models.StrategyIDs) {
		t.Fatalf("reviewed %d runs, want %d", reviewed, len(models.StrategyIDs))
	}

	for _, strategy := range models.StrategyIDs {
		run := store.runs[runKey(target, strategy)]
		if run.Status != models.RunStatusReviewed {
			t.Errorf("%s: status = %s", strategy, run.Status)
		}
		if run.HitCount < 0 || run.HitCount > models.MainPicks {
			t.Errorf("%s: hit count %d out of range", strategy, run.HitCount)
		}
		wantRate := float64(run.HitCount) / float64(models.MainPicks)
		if diff := run.HitRate - wantRate; diff > 0.0001 || diff < -0.0001 {
			t.Errorf("%s: hit rate %.4f for %d hits", strategy, run.HitRate, run.HitCount)
		}
		if run.HitCount20 < run.HitCount10 {
			t.Errorf("%s: pool 20 hits %d below pool 10 hits %d", strategy, run.HitCount20, run.HitCount10)
		}
	}

	// Reviewing again is a no-op.
	again, err := Review(ctx, store, target)
	if err != nil {
		t.Fatalf("Review (repeat): %v", err)
	}
	if again != 0 {
		t.Errorf("second review touched %d runs", again)
	}
}

func TestReviewUnknownIssue(t *testing.T) {
	store := newMemStore(generateDraws(30))
	if _, err := Review(context.Background(), store, "99/999"); err == nil {
		t.Error("expected error for unknown issue")
	}
}

func TestReviewLatest(t *testing.T) {
	ctx := context.Background()
	draws := generateDraws(131)
	store := newMemStore(draws[:130])

	target := draws[130].IssueNo
	if _, err := Generate(ctx, store, target, 0); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	store.draws = draws

	issue, reviewed, err := ReviewLatest(ctx, store)
	if err != nil {
		t.Fatalf("ReviewLatest: %v", err)
	}
	if issue != target {
		t.Errorf("reviewed issue %s, want %s", issue, target)
	}
	if reviewed != len(models.StrategyIDs) {
		t.Errorf("reviewed %d runs, want %d", reviewed, len(models.StrategyIDs))
	}
}
