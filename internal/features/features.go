// Package features turns a most-recent-first window of draws into
// per-number feature maps over 1..49.
package features

import (
	"sort"
)

// ZoneOf maps a number to its zone index 0..4. Zones cover ten numbers
// each; the last zone holds 41..49.
func ZoneOf(n int) int {
	z := (n - 1) / 10
	if z > 4 {
		z = 4
	}
	return z
}

func emptyMap() map[int]float64 {
	m := make(map[int]float64, 49)
	for n := 1; n <= 49; n++ {
		m[n] = 0
	}
	return m
}

// Frequency counts how often each number occurs in the window.
func Frequency(draws [][]int) map[int]float64 {
	freq := emptyMap()
	for _, draw := range draws {
		for _, n := range draw {
			freq[n]++
		}
	}
	return freq
}

// Omission is the 1-based position (from most recent) of each number's
// most recent occurrence. Numbers never seen in the window get the
// sentinel len(draws)+1, the maximal coldness. Larger means longer
// since last seen.
func Omission(draws [][]int) map[int]float64 {
	omission := make(map[int]float64, 49)
	sentinel := float64(len(draws) + 1)
	for n := 1; n <= 49; n++ {
		omission[n] = sentinel
	}
	for i, draw := range draws {
		pos := float64(i + 1)
		for _, n := range draw {
			if pos < omission[n] {
				omission[n] = pos
			}
		}
	}
	return omission
}

// Momentum is recency-decayed frequency: a draw at position i (0 = most
// recent) contributes 1/(1+i) for each number it contains.
func Momentum(draws [][]int) map[int]float64 {
	m := emptyMap()
	for i, draw := range draws {
		w := 1.0 / (1.0 + float64(i))
		for _, n := range draw {
			m[n] += w
		}
	}
	return m
}

// PairAffinity sums, for each number, the co-occurrence counts of every
// pair it participates in within the leading window draws.
func PairAffinity(draws [][]int, window int) map[int]float64 {
	if window > len(draws) {
		window = len(draws)
	}
	pairCount := make(map[[2]int]int)
	for _, draw := range draws[:window] {
		s := append([]int(nil), draw...)
		sort.Ints(s)
		for i := 0; i < len(s); i++ {
			for j := i + 1; j < len(s); j++ {
				pairCount[[2]int{s[i], s[j]}]++
			}
		}
	}
	affinity := emptyMap()
	for pair, c := range pairCount {
		affinity[pair[0]] += float64(c)
		affinity[pair[1]] += float64(c)
	}
	return affinity
}

// ZoneHeat assigns every number its zone's deficit within the leading
// window draws: expected count per zone minus actual, with expected =
// 6 * windowSize / 5. Positive values mark underdrawn zones, a
// mean-reversion signal shared by all numbers in the zone.
func ZoneHeat(draws [][]int, window int) map[int]float64 {
	if window > len(draws) {
		window = len(draws)
	}
	w := draws[:window]
	if len(w) == 0 {
		return emptyMap()
	}
	var zoneCounts [5]float64
	for _, draw := range w {
		for _, n := range draw {
			zoneCounts[ZoneOf(n)]++
		}
	}
	expected := 6.0 * float64(len(w)) / 5.0
	heat := make(map[int]float64, 49)
	for n := 1; n <= 49; n++ {
		heat[n] = expected - zoneCounts[ZoneOf(n)]
	}
	return heat
}

// Normalize min-max scales a feature map to [0,1]. When every value is
// equal the result is all zeros, not 0.5, so a flat channel contributes
// nothing instead of a uniform mid-value.
func Normalize(m map[int]float64) map[int]float64 {
	mn, mx := 0.0, 0.0
	first := true
	for _, v := range m {
		if first {
			mn, mx = v, v
			first = false
			continue
		}
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	out := make(map[int]float64, len(m))
	if mx == mn {
		for k := range m {
			out[k] = 0.0
		}
		return out
	}
	span := mx - mn
	for k, v := range m {
		out[k] = (v - mn) / span
	}
	return out
}
