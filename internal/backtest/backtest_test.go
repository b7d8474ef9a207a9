package backtest

import (
	"context"
	"testing"

	"github.com/hklotto/marksix/internal/miner"
	"github.com/hklotto/marksix/internal/scoring"
	"github.com/hklotto/marksix/models"
)

type savedRun struct {
	run   models.PredictionRun
	picks []models.PredictionPick
	pools map[int][]int
}

// memStore is an in-memory Store for harness tests.
type memStore struct {
	draws   []models.Draw // ascending
	runs    map[string][]savedRun
	saves   int
	deletes int
}

func newMemStore(draws []models.Draw) *memStore {
	return &memStore{draws: draws, runs: make(map[string][]savedRun)}
}

func (s *memStore) DrawsAsc(context.Context) ([]models.Draw, error) {
	return append([]models.Draw(nil), s.draws...), nil
}

func (s *memStore) ReviewedRunCount(_ context.Context, issueNo string) (int, error) {
	return len(s.runs[issueNo]), nil
}

func (s *memStore) SaveReviewedRun(_ context.Context, run models.PredictionRun, picks []models.PredictionPick, pools map[int][]int) error {
	s.saves++
	kept := s.runs[run.IssueNo][:0]
	for _, existing := range s.runs[run.IssueNo] {
		if existing.run.Strategy != run.Strategy {
			kept = append(kept, existing)
		}
	}
	s.runs[run.IssueNo] = append(kept, savedRun{run: run, picks: picks, pools: pools})
	return nil
}

func (s *memStore) DeleteAllPredictions(context.Context) error {
	s.deletes++
	s.runs = make(map[string][]savedRun)
	return nil
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

func TestRunCoversEveryIssueAfterWarmup(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(generateDraws(60))

	summary, err := Run(ctx, store, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantIssues := 60 - 20
	if summary.Issues != wantIssues {
		t.Errorf("evaluated %d issues, want %d", summary.Issues, wantIssues)
	}
	if summary.Runs != wantIssues*len(models.StrategyIDs) {
		t.Errorf("wrote %d runs, want %d", summary.Runs, wantIssues*len(models.StrategyIDs))
	}

	// The warmup draws are history only, never evaluated.
	for i := 0; i < 20; i++ {
		if len(store.runs[store.draws[i].IssueNo]) != 0 {
			t.Errorf("warmup issue %s has runs", store.draws[i].IssueNo)
		}
	}
	for i := 20; i < 60; i++ {
		issue := store.draws[i].IssueNo
		runs := store.runs[issue]
		if len(runs) != len(models.StrategyIDs) {
			t.Errorf("issue %s has %d runs, want %d", issue, len(runs), len(models.StrategyIDs))
			continue
		}
		for _, saved := range runs {
			if saved.run.HitCount < 0 || saved.run.HitCount > models.MainPicks {
				t.Errorf("%s/%s: hit count %d", issue, saved.run.Strategy, saved.run.HitCount)
			}
			if len(saved.picks) != models.MainPicks+1 {
				t.Errorf("%s/%s: %d picks", issue, saved.run.Strategy, len(saved.picks))
			}
			for _, size := range models.PoolSizes {
				if len(saved.pools[size]) != size {
					t.Errorf("%s/%s: pool %d has %d numbers", issue, saved.run.Strategy, size, len(saved.pools[size]))
				}
			}
		}
	}
}

func TestRunResumeSkipsReviewedIssues(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(generateDraws(60))

	first, err := Run(ctx, store, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	savesAfterFirst := store.saves

	second, err := Run(ctx, store, Options{})
	if err != nil {
		t.Fatalf("Run (resume): %v", err)
	}
	if second.Issues != 0 {
		t.Errorf("resume re-evaluated %d issues", second.Issues)
	}
	if second.Skipped != first.Issues {
		t.Errorf("resume skipped %d issues, want %d", second.Skipped, first.Issues)
	}
	if store.saves != savesAfterFirst {
		t.Errorf("resume wrote %d extra runs", store.saves-savesAfterFirst)
	}
}

func TestRunResumePicksUpNewDraws(t *testing.T) {
	ctx := context.Background()
	draws := generateDraws(65)
	store := newMemStore(draws[:60])

	if _, err := Run(ctx, store, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	store.draws = draws

	summary, err := Run(ctx, store, Options{})
	if err != nil {
		t.Fatalf("Run (resume): %v", err)
	}
	if summary.Issues != 5 {
		t.Errorf("resume evaluated %d issues, want 5", summary.Issues)
	}
	if summary.Skipped != 40 {
		t.Errorf("resume skipped %d issues, want 40", summary.Skipped)
	}
}

func TestRunRebuildClearsAndReplays(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(generateDraws(60))

	if _, err := Run(ctx, store, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	summary, err := Run(ctx, store, Options{Rebuild: true})
	if err != nil {
		t.Fatalf("Run (rebuild): %v", err)
	}
	if store.deletes != 1 {
		t.Errorf("rebuild deleted %d times, want 1", store.deletes)
	}
	if summary.Issues != 40 || summary.Skipped != 0 {
		t.Errorf("rebuild evaluated %d issues with %d skips", summary.Issues, summary.Skipped)
	}
}

func TestRunRejectsShortHistory(t *testing.T) {
	store := newMemStore(generateDraws(20))
	if _, err := Run(context.Background(), store, Options{}); err == nil {
		t.Error("expected error for history at the warmup floor")
	}
}

func TestRunMinedConfigScopedToMinedStrategy(t *testing.T) {
	ctx := context.Background()
	draws := generateDraws(60)
	store := newMemStore(draws)

	if _, err := Run(ctx, store, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Replay the last issue by hand: the ensemble must score with the
	// default mined configuration, while the mined strategy uses the
	// refit of its bucket (first computed at issue index 50).
	const idx = 59
	historyDesc := make([][]int, idx)
	for j := 0; j < idx; j++ {
		historyDesc[j] = draws[idx-1-j].Numbers
	}
	bucketCfg := miner.Mine(draws[:50])

	wantEnsemble := scoring.Generate(historyDesc, models.StrategyEnsemble, nil).MainNumbers()
	wantMined := scoring.Generate(historyDesc, models.StrategyMined, &bucketCfg).MainNumbers()

	for _, saved := range store.runs[draws[idx].IssueNo] {
		var got []int
		for _, p := range saved.picks {
			if p.PickType == models.PickTypeMain {
				got = append(got, p.Number)
			}
		}
		switch saved.run.Strategy {
		case models.StrategyEnsemble:
			assertSameNumbers(t, "ensemble", got, wantEnsemble)
		case models.StrategyMined:
			assertSameNumbers(t, "mined", got, wantMined)
		}
	}
}

func assertSameNumbers(t *testing.T, label string, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: %d picks, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: pick %d = %d, want %d", label, i, got[i], want[i])
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	ctx := context.Background()
	a := newMemStore(generateDraws(60))
	b := newMemStore(generateDraws(60))

	if _, err := Run(ctx, a, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := Run(ctx, b, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for issue, runsA := range a.runs {
		runsB := b.runs[issue]
		if len(runsA) != len(runsB) {
			t.Fatalf("issue %s: %d vs %d runs", issue, len(runsA), len(runsB))
		}
		for i := range runsA {
			if runsA[i].run != runsB[i].run {
				t.Errorf("issue %s run %d diverged: %+v vs %+v", issue, i, runsA[i].run, runsB[i].run)
			}
		}
	}
}
