package picker

import (
	"testing"

	"github.com/hklotto/marksix/internal/features"
	"github.com/hklotto/marksix/models"
)

// baseScores gives every number a small score that ranks ascending
// numbers first, so tests can boost specific numbers above the rest.
func baseScores() map[int]float64 {
	scores := make(map[int]float64, 49)
	for n := 1; n <= 49; n++ {
		scores[n] = float64(50-n) * 0.001
	}
	return scores
}

func pickNumbers(picks []models.PredictionPick) []int {
	out := make([]int, len(picks))
	for i, p := range picks {
		out[i] = p.Number
	}
	return out
}

func TestPickSixParityConstraint(t *testing.T) {
	// Top six raw scores are all even: the output still mixes parity.
	scores := baseScores()
	for i, n := range []int{2, 4, 6, 8, 10, 12} {
		scores[n] = 1.0 - float64(i)*0.01
	}

	picks := PickSix(scores, "test")
	if len(picks) != 6 {
		t.Fatalf("got %d picks, want 6", len(picks))
	}
	odd := 0
	for _, p := range picks {
		if p.Number%2 == 1 {
			odd++
		}
	}
	if odd == 0 {
		t.Errorf("all-even pick set %v, want at least one odd number", pickNumbers(picks))
	}
}

func TestPickSixZoneConstraint(t *testing.T) {
	// Top six raw scores all in zone 1-10: no zone may hold four picks.
	scores := baseScores()
	for i, n := range []int{1, 2, 3, 4, 5, 6} {
		scores[n] = 1.0 - float64(i)*0.01
	}

	picks := PickSix(scores, "test")
	var zoneCounts [models.ZoneCount]int
	for _, p := range picks {
		zoneCounts[features.ZoneOf(p.Number)]++
	}
	for zone, c := range zoneCounts {
		if c >= 4 {
			t.Errorf("zone %d holds %d picks (%v), want < 4", zone, c, pickNumbers(picks))
		}
	}
}

func TestPickSixDeterministicTieBreak(t *testing.T) {
	// A flat score map must rank ascending numbers and produce the same
	// six on every invocation regardless of map iteration order.
	flat := make(map[int]float64, 49)
	for n := 1; n <= 49; n++ {
		flat[n] = 0.0
	}

	first := pickNumbers(PickSix(flat, "flat"))
	for i := 0; i < 20; i++ {
		again := pickNumbers(PickSix(flat, "flat"))
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d diverged: %v vs %v", i, first, again)
			}
		}
	}
}

func TestPickSixRanksAndReasons(t *testing.T) {
	scores := baseScores()
	picks := PickSix(scores, "hot numbers")
	for i, p := range picks {
		if p.Rank != i+1 {
			t.Errorf("pick %d rank = %d, want %d", i, p.Rank, i+1)
		}
		if p.PickType != models.PickTypeMain {
			t.Errorf("pick %d type = %q, want MAIN", i, p.PickType)
		}
		if len(p.Reason) == 0 || p.Reason[:11] != "hot numbers" {
			t.Errorf("pick %d reason = %q, want label prefix", i, p.Reason)
		}
	}
}

func TestRepairSumBringsLowSumIntoRange(t *testing.T) {
	// Sum 89 is just below range and a single swap can fix it, so the
	// repaired sum must land in [95, 205].
	picked := []entry{{10, 0.9}, {20, 0.8}, {30, 0.7}, {15, 0.6}, {8, 0.5}, {6, 0.4}}
	var ranked []entry
	for n := 1; n <= 49; n++ {
		ranked = append(ranked, entry{n, float64(50-n) * 0.01})
	}

	repaired := repairSum(picked, ranked)
	if len(repaired) != 6 {
		t.Fatalf("repaired set size = %d, want 6", len(repaired))
	}
	sum := 0
	for _, e := range repaired {
		sum += e.number
	}
	if sum < sumTargetLow || sum > sumTargetHigh {
		t.Errorf("repaired sum = %d, want within [%d, %d]", sum, sumTargetLow, sumTargetHigh)
	}

	// One substitution at most.
	changed := 0
	for i := range picked {
		if repaired[i].number != picked[i].number {
			changed++
		}
	}
	if changed > 1 {
		t.Errorf("%d positions changed, want at most 1", changed)
	}
}

func TestRepairSumNoValidSwapLeavesSetUnchanged(t *testing.T) {
	// {1,2,3,4,5,6} sums to 21: even swapping 1 for 49 only reaches 69,
	// so no single substitution can repair it and the original set
	// comes back untouched.
	picked := []entry{{1, 0.9}, {2, 0.8}, {3, 0.7}, {4, 0.6}, {5, 0.5}, {6, 0.4}}
	var ranked []entry
	for n := 1; n <= 49; n++ {
		ranked = append(ranked, entry{n, float64(50-n) * 0.01})
	}

	repaired := repairSum(picked, ranked)
	for i := range picked {
		if repaired[i].number != picked[i].number {
			t.Fatalf("position %d changed to %d, want original %d",
				i, repaired[i].number, picked[i].number)
		}
	}
}

func TestRepairSumIsPure(t *testing.T) {
	picked := []entry{{10, 0.9}, {20, 0.8}, {30, 0.7}, {15, 0.6}, {8, 0.5}, {6, 0.4}}
	var ranked []entry
	for n := 1; n <= 49; n++ {
		ranked = append(ranked, entry{n, float64(50-n) * 0.01})
	}
	_ = repairSum(picked, ranked)
	want := []int{10, 20, 30, 15, 8, 6}
	for i, e := range picked {
		if e.number != want[i] {
			t.Fatalf("input mutated at %d: %d, want %d", i, e.number, want[i])
		}
	}
}

func TestPickSpecialAvoidsMainSix(t *testing.T) {
	scores := baseScores()
	main := []int{1, 2, 3, 4, 5, 6}
	special, _ := PickSpecial(scores, main)
	for _, n := range main {
		if special == n {
			t.Fatalf("special %d collides with main six", special)
		}
	}
	if special != 7 {
		t.Errorf("special = %d, want next-ranked 7", special)
	}
}

func TestBuildPoolsNested(t *testing.T) {
	scores := baseScores()
	picks := PickSix(scores, "test")
	main := pickNumbers(picks)
	pools := BuildPools(scores, main)

	if len(pools[6]) != 6 || len(pools[10]) != 10 || len(pools[14]) != 14 || len(pools[20]) != 20 {
		t.Fatalf("pool sizes = %d/%d/%d/%d, want 6/10/14/20",
			len(pools[6]), len(pools[10]), len(pools[14]), len(pools[20]))
	}

	// pool(6) is the main six exactly, in order.
	for i, n := range main {
		if pools[6][i] != n {
			t.Errorf("pool6[%d] = %d, want main %d", i, pools[6][i], n)
		}
	}

	// Each pool is a prefix-superset of the smaller one.
	sizes := []int{6, 10, 14, 20}
	for k := 1; k < len(sizes); k++ {
		smaller, larger := pools[sizes[k-1]], pools[sizes[k]]
		member := make(map[int]bool, len(larger))
		for _, n := range larger {
			member[n] = true
		}
		for _, n := range smaller {
			if !member[n] {
				t.Errorf("pool %d misses %d from pool %d", sizes[k], n, sizes[k-1])
			}
		}
	}
}

func TestPoolHitCount(t *testing.T) {
	winning := map[int]bool{3: true, 7: true, 20: true}
	if got := PoolHitCount([]int{1, 3, 7, 9}, winning); got != 2 {
		t.Errorf("PoolHitCount = %d, want 2", got)
	}
}
