// Package picker selects the six main numbers, the special number and
// the nested candidate pools from a per-number score map.
package picker

import (
	"fmt"
	"sort"

	"github.com/hklotto/marksix/internal/features"
	"github.com/hklotto/marksix/models"
)

// Sum of the six picks is steered into this range, which brackets the
// typical historical draw sum.
const (
	sumTargetLow  = 95
	sumTargetHigh = 205
)

type entry struct {
	number int
	score  float64
}

// rankEntries orders numbers by descending score, ties broken by
// ascending number, so ranking never depends on map iteration order.
func rankEntries(scores map[int]float64) []entry {
	ranked := make([]entry, 0, len(scores))
	for n, s := range scores {
		ranked = append(ranked, entry{number: n, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].number < ranked[j].number
	})
	return ranked
}

// RankedNumbers returns all numbers ordered by descending score with
// the same deterministic tie-break as the picker itself.
func RankedNumbers(scores map[int]float64) []int {
	ranked := rankEntries(scores)
	out := make([]int, len(ranked))
	for i, e := range ranked {
		out[i] = e.number
	}
	return out
}

// PickSix selects six numbers from the score map. Parity and zone
// constraints are applied greedily, missing slots are filled without
// constraints, and the sum-range repair runs last. The reason text of
// each pick is "<label> score=<score>".
func PickSix(scores map[int]float64, label string) []models.PredictionPick {
	ranked := rankEntries(scores)

	var picked []entry
	for _, e := range ranked {
		if len(picked) == models.MainPicks {
			break
		}
		if violatesConstraints(picked, e.number) {
			continue
		}
		picked = append(picked, e)
	}

	// Constraints are soft: always deliver exactly six numbers.
	for len(picked) < models.MainPicks {
		for _, e := range ranked {
			if !containsNumber(picked, e.number) {
				picked = append(picked, e)
				break
			}
		}
	}

	picked = repairSum(picked, ranked)

	picks := make([]models.PredictionPick, len(picked))
	for i, e := range picked {
		picks[i] = models.PredictionPick{
			Number:   e.number,
			Rank:     i + 1,
			Score:    e.score,
			Reason:   fmt.Sprintf("%s score=%.4f", label, e.score),
			PickType: models.PickTypeMain,
		}
	}
	return picks
}

// violatesConstraints reports whether adding candidate to the picked
// set would leave it single-parity at size >= 4, or put four or more
// numbers into one zone.
func violatesConstraints(picked []entry, candidate int) bool {
	size := len(picked) + 1
	odd := 0
	var zoneCounts [models.ZoneCount]int
	for _, e := range picked {
		if e.number%2 == 1 {
			odd++
		}
		zoneCounts[features.ZoneOf(e.number)]++
	}
	if candidate%2 == 1 {
		odd++
	}
	zoneCounts[features.ZoneOf(candidate)]++

	if size >= 4 && (odd == 0 || odd == size) {
		return true
	}
	for _, c := range zoneCounts {
		if c >= 4 {
			return true
		}
	}
	return false
}

// repairSum returns a copy of picked with at most one position swapped
// for a higher-ranked unused candidate so that the sum lands in
// [95, 205]. Positions are tried from last to first and the first
// working substitution wins. If no single swap helps, the input order
// is returned unchanged.
func repairSum(picked, ranked []entry) []entry {
	out := append([]entry(nil), picked...)
	total := 0
	for _, e := range out {
		total += e.number
	}
	if total >= sumTargetLow && total <= sumTargetHigh {
		return out
	}

	for i := len(out) - 1; i >= 0; i-- {
		for _, alt := range ranked {
			if containsNumber(out, alt.number) {
				continue
			}
			candidateSum := total - out[i].number + alt.number
			if candidateSum >= sumTargetLow && candidateSum <= sumTargetHigh {
				out[i] = alt
				return out
			}
		}
	}
	return out
}

// PickSpecial chooses the highest-scoring number outside the main six.
// If every number were taken (impossible with 49 numbers and 6 picks)
// it falls back to the overall top-scoring number.
func PickSpecial(scores map[int]float64, main []int) (int, float64) {
	mainSet := make(map[int]bool, len(main))
	for _, n := range main {
		mainSet[n] = true
	}
	ranked := rankEntries(scores)
	for _, e := range ranked {
		if !mainSet[e.number] {
			return e.number, e.score
		}
	}
	return ranked[0].number, ranked[0].score
}

// BuildPools expands the main six into nested pools of 6/10/14/20:
// each larger pool adds the next highest-ranked numbers not already in
// the six. pool(6) is the main six exactly.
func BuildPools(scores map[int]float64, main []int) map[int][]int {
	ranked := RankedNumbers(scores)

	mainUnique := make([]int, 0, len(main))
	seen := make(map[int]bool, len(main))
	for _, n := range main {
		if !seen[n] {
			mainUnique = append(mainUnique, n)
			seen[n] = true
		}
	}

	rest := make([]int, 0, len(ranked))
	for _, n := range ranked {
		if !seen[n] {
			rest = append(rest, n)
		}
	}

	pools := make(map[int][]int, len(models.PoolSizes))
	for _, size := range models.PoolSizes {
		pool := append([]int(nil), mainUnique...)
		for _, n := range rest {
			if len(pool) >= size {
				break
			}
			pool = append(pool, n)
		}
		if len(pool) > size {
			pool = pool[:size]
		}
		pools[size] = pool
	}
	return pools
}

// PoolHitCount counts how many pool numbers appear in the winning set.
func PoolHitCount(pool []int, winning map[int]bool) int {
	hits := 0
	for _, n := range pool {
		if winning[n] {
			hits++
		}
	}
	return hits
}

func containsNumber(entries []entry, n int) bool {
	for _, e := range entries {
		if e.number == n {
			return true
		}
	}
	return false
}
