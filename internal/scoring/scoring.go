// Package scoring combines normalized feature channels into per-number
// scores and runs the named strategies, including the ensemble voter.
package scoring

import (
	"github.com/hklotto/marksix/internal/features"
	"github.com/hklotto/marksix/internal/picker"
	"github.com/hklotto/marksix/models"
)

// Result is one strategy's full output for a window of draws.
type Result struct {
	Picks         []models.PredictionPick
	SpecialNumber int
	SpecialScore  float64
	Scores        map[int]float64
}

// MainNumbers returns the six picked numbers in rank order.
func (r Result) MainNumbers() []int {
	out := make([]int, len(r.Picks))
	for i, p := range r.Picks {
		out[i] = p.Number
	}
	return out
}

// SpecialPick returns the special number as a pick record.
func (r Result) SpecialPick(reason string) models.PredictionPick {
	return models.PredictionPick{
		Number:   r.SpecialNumber,
		Rank:     1,
		Score:    r.SpecialScore,
		Reason:   reason,
		PickType: models.PickTypeSpecial,
	}
}

// presets are the fixed built-in weight vectors per strategy.
var presets = map[string]models.StrategyConfig{
	models.StrategyBalanced: {
		Window: 80, FreqWeight: 0.40, OmitWeight: 0.30, MomWeight: 0.20,
		PairWeight: 0.05, ZoneWeight: 0.05, SpecialBonus: 0.10,
	},
	models.StrategyHot: {
		Window: 80, FreqWeight: 0.80, MomWeight: 0.20, SpecialBonus: 0.10,
	},
	models.StrategyColdRebound: {
		Window: 80, OmitWeight: 0.70, MomWeight: 0.30, SpecialBonus: 0.10,
	},
	models.StrategyMomentum: {
		Window: 80, FreqWeight: 0.10, MomWeight: 0.90, SpecialBonus: 0.10,
	},
	models.StrategyZoneBalance: {
		Window: 80, FreqWeight: 0.20, OmitWeight: 0.10, MomWeight: 0.10,
		PairWeight: 0.25, ZoneWeight: 0.35, SpecialBonus: 0.10,
	},
}

// Preset returns the built-in weight vector for a strategy id.
func Preset(strategy string) (models.StrategyConfig, bool) {
	cfg, ok := presets[strategy]
	return cfg, ok
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ApplyConfig scores every number over the leading window of draws
// (most-recent-first) with the given weight vector, then picks the six
// mains, the special and the ranked score map. The effective window is
// at least 20 draws, capped at the available history.
func ApplyConfig(draws [][]int, cfg models.StrategyConfig, label string) Result {
	windowSize := cfg.Window
	if windowSize <= 0 {
		windowSize = 80
	}
	if windowSize < 20 {
		windowSize = 20
	}
	if windowSize > len(draws) {
		windowSize = len(draws)
	}
	window := draws[:windowSize]

	freq := features.Normalize(features.Frequency(window))
	omission := features.Normalize(features.Omission(window))
	momentum := features.Normalize(features.Momentum(window))
	pair := features.Normalize(features.PairAffinity(window, minInt(200, len(window))))
	zone := features.Normalize(features.ZoneHeat(window, minInt(80, len(window))))

	scores := make(map[int]float64, models.NumberMax)
	for n := 1; n <= models.NumberMax; n++ {
		scores[n] = freq[n]*cfg.FreqWeight +
			omission[n]*cfg.OmitWeight +
			momentum[n]*cfg.MomWeight +
			pair[n]*cfg.PairWeight +
			zone[n]*cfg.ZoneWeight
	}

	return pickFromScores(scores, label)
}

func pickFromScores(scores map[int]float64, label string) Result {
	picks := picker.PickSix(scores, label)
	main := make([]int, len(picks))
	for i, p := range picks {
		main[i] = p.Number
	}
	special, specialScore := picker.PickSpecial(scores, main)
	return Result{
		Picks:         picks,
		SpecialNumber: special,
		SpecialScore:  specialScore,
		Scores:        scores,
	}
}

// RankVote converts each score map into ranked votes (the number at
// descending rank r gets 49-r votes), sums the votes across maps and
// min-max normalizes the total.
func RankVote(scoreMaps []map[int]float64) map[int]float64 {
	votes := make(map[int]float64, models.NumberMax)
	for n := 1; n <= models.NumberMax; n++ {
		votes[n] = 0
	}
	for _, m := range scoreMaps {
		for rank, n := range picker.RankedNumbers(m) {
			votes[n] += float64(models.NumberMax - rank)
		}
	}
	return features.Normalize(votes)
}

// Ensemble runs the five voting sub-strategies, rank-votes their score
// maps and feeds the combined map through the standard pick path.
func Ensemble(draws [][]int, mined *models.StrategyConfig) Result {
	minedCfg := models.DefaultMinedConfig()
	if mined != nil {
		minedCfg = *mined
	}

	sub := []Result{
		ApplyConfig(draws, presets[models.StrategyHot], models.StrategyLabel(models.StrategyHot)),
		ApplyConfig(draws, presets[models.StrategyColdRebound], models.StrategyLabel(models.StrategyColdRebound)),
		ApplyConfig(draws, presets[models.StrategyMomentum], models.StrategyLabel(models.StrategyMomentum)),
		ApplyConfig(draws, presets[models.StrategyBalanced], models.StrategyLabel(models.StrategyBalanced)),
		ApplyConfig(draws, minedCfg, models.StrategyLabel(models.StrategyMined)),
	}
	maps := make([]map[int]float64, len(sub))
	for i, r := range sub {
		maps[i] = r.Scores
	}

	voted := RankVote(maps)
	return pickFromScores(voted, models.StrategyLabel(models.StrategyEnsemble))
}

// Generate runs one named strategy over the draws window. The mined
// configuration is only consulted by the mined and ensemble strategies;
// nil falls back to the default mined configuration. Unknown strategy
// ids run the balanced preset.
func Generate(draws [][]int, strategy string, mined *models.StrategyConfig) Result {
	switch strategy {
	case models.StrategyEnsemble:
		return Ensemble(draws, mined)
	case models.StrategyMined:
		cfg := models.DefaultMinedConfig()
		if mined != nil {
			cfg = *mined
		}
		return ApplyConfig(draws, cfg, models.StrategyLabel(models.StrategyMined))
	default:
		cfg, ok := presets[strategy]
		if !ok {
			cfg = presets[models.StrategyBalanced]
		}
		return ApplyConfig(draws, cfg, models.StrategyLabel(strategy))
	}
}
