package scoring

import (
	"testing"

	"github.com/hklotto/marksix/models"
)

// dominantWindow builds draws where 7 appears every time and no other
// number repeats.
func dominantWindow() [][]int {
	var draws [][]int
	next := 8
	for i := 0; i < 8; i++ {
		draw := []int{7}
		for len(draw) < 6 {
			if next == 7 {
				next++
			}
			draw = append(draw, next)
			next++
		}
		draws = append(draws, draw)
	}
	return draws
}

func TestFrequencyOnlyRanksDominantNumberFirst(t *testing.T) {
	draws := dominantWindow()
	cfg := models.StrategyConfig{Window: 80, FreqWeight: 1.0}

	result := ApplyConfig(draws, cfg, "frequency only")
	if len(result.Picks) != 6 {
		t.Fatalf("got %d picks, want 6", len(result.Picks))
	}
	if result.Picks[0].Number != 7 {
		t.Errorf("top pick = %d, want dominant number 7", result.Picks[0].Number)
	}
	found := false
	for _, p := range result.Picks {
		if p.Number == 7 {
			found = true
		}
	}
	if !found {
		t.Error("dominant number 7 missing from the six")
	}
}

func TestApplyConfigWindowBoundedByHistory(t *testing.T) {
	// Window larger than the history must not panic and still scores.
	draws := [][]int{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
	}
	cfg := models.StrategyConfig{Window: 160, FreqWeight: 0.5, OmitWeight: 0.5}
	result := ApplyConfig(draws, cfg, "bounded")
	if len(result.Picks) != 6 {
		t.Fatalf("got %d picks, want 6", len(result.Picks))
	}
}

func TestSpecialDisjointFromMain(t *testing.T) {
	draws := dominantWindow()
	for _, strategy := range models.StrategyIDs {
		result := Generate(draws, strategy, nil)
		for _, p := range result.Picks {
			if p.Number == result.SpecialNumber {
				t.Errorf("strategy %s: special %d collides with main six", strategy, result.SpecialNumber)
			}
		}
	}
}

func TestRankVote(t *testing.T) {
	// Two identical maps double the votes but normalization keeps the
	// leader at 1.0 and the last-ranked number at 0.0.
	m := make(map[int]float64, 49)
	for n := 1; n <= 49; n++ {
		m[n] = float64(50 - n)
	}
	voted := RankVote([]map[int]float64{m, m})
	if voted[1] != 1.0 {
		t.Errorf("voted[1] = %v, want 1.0", voted[1])
	}
	if voted[49] != 0.0 {
		t.Errorf("voted[49] = %v, want 0.0", voted[49])
	}
	if voted[2] <= voted[3] {
		t.Errorf("vote ordering broken: voted[2]=%v <= voted[3]=%v", voted[2], voted[3])
	}
}

func TestEnsembleDeterministic(t *testing.T) {
	draws := dominantWindow()
	first := Ensemble(draws, nil)
	for i := 0; i < 5; i++ {
		again := Ensemble(draws, nil)
		for j := range first.Picks {
			if first.Picks[j].Number != again.Picks[j].Number {
				t.Fatalf("ensemble diverged at pick %d: %d vs %d",
					j, first.Picks[j].Number, again.Picks[j].Number)
			}
		}
		if first.SpecialNumber != again.SpecialNumber {
			t.Fatalf("ensemble special diverged: %d vs %d", first.SpecialNumber, again.SpecialNumber)
		}
	}
}

func TestGenerateUnknownStrategyFallsBackToBalanced(t *testing.T) {
	draws := dominantWindow()
	unknown := Generate(draws, "no_such_strategy", nil)
	balancedCfg, _ := Preset(models.StrategyBalanced)
	balanced := ApplyConfig(draws, balancedCfg, "no_such_strategy")
	for i := range unknown.Picks {
		if unknown.Picks[i].Number != balanced.Picks[i].Number {
			t.Fatalf("fallback pick %d = %d, want balanced %d",
				i, unknown.Picks[i].Number, balanced.Picks[i].Number)
		}
	}
}
