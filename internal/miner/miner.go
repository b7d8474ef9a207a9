// Package miner grid-searches scoring-weight configurations against
// historical hit rate, without looking ahead of any evaluated issue.
package miner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/scoring"
	"github.com/hklotto/marksix/models"
)

// ConfigKey names the cached mined configuration in model state.
const ConfigKey = "mined_strategy_config_v1"

const (
	// minMiningHistory is the issue count below which mining is skipped
	// and the default configuration returned.
	minMiningHistory = 120
	// minHistory is the smallest usable scoring window per issue.
	minHistory = 20
	// maxEvalSpan bounds the trailing evaluation span.
	maxEvalSpan = 500
)

// ConfigStore persists the single mined configuration blob.
type ConfigStore interface {
	GetModelState(ctx context.Context, key string) (string, bool, error)
	SetModelState(ctx context.Context, key, value string) error
}

// CandidateConfigs enumerates the fixed candidate grid: window lengths
// crossed with frequency/omission/momentum triplets and pair/zone weight
// pairs. Enumeration order is the tie-break for mining, so it is fixed.
func CandidateConfigs() []models.StrategyConfig {
	windows := []int{40, 60, 80, 120, 160}
	weightTriplets := [][3]float64{
		{0.50, 0.30, 0.20},
		{0.45, 0.35, 0.20},
		{0.40, 0.40, 0.20},
		{0.35, 0.45, 0.20},
		{0.30, 0.50, 0.20},
		{0.60, 0.20, 0.20},
		{0.20, 0.60, 0.20},
		{0.40, 0.30, 0.30},
		{0.30, 0.40, 0.30},
	}
	pairZoneSets := [][2]float64{
		{0.00, 0.00},
		{0.05, 0.05},
		{0.10, 0.00},
		{0.00, 0.10},
	}

	out := make([]models.StrategyConfig, 0, len(windows)*len(weightTriplets)*len(pairZoneSets))
	for _, w := range windows {
		for _, t := range weightTriplets {
			for _, pz := range pairZoneSets {
				out = append(out, models.StrategyConfig{
					Window:       w,
					FreqWeight:   t[0],
					OmitWeight:   t[1],
					MomWeight:    t[2],
					PairWeight:   pz[0],
					ZoneWeight:   pz[1],
					SpecialBonus: 0.10,
				})
			}
		}
	}
	return out
}

// Mine evaluates every candidate over a bounded trailing span of the
// ascending draw history and returns the best-scoring configuration.
// Each issue is scored using only draws strictly before it. Candidates
// with no evaluable issue are skipped rather than scored zero; ties
// keep the earlier candidate, so the result is deterministic.
func Mine(draws []models.Draw) models.StrategyConfig {
	if len(draws) < minMiningHistory {
		return models.DefaultMinedConfig()
	}

	mains := make([][]int, len(draws))
	specials := make([]int, len(draws))
	for i, d := range draws {
		mains[i] = d.Numbers
		specials[i] = d.SpecialNumber
	}

	evalSpan := len(draws) - minHistory
	if evalSpan > maxEvalSpan {
		evalSpan = maxEvalSpan
	}
	start := len(draws) - evalSpan
	if start < minHistory {
		start = minHistory
	}

	best := models.DefaultMinedConfig()
	bestScore := -1.0
	label := models.StrategyLabel(models.StrategyMined)

	for _, cfg := range CandidateConfigs() {
		scoreSum := 0.0
		count := 0
		for i := start; i < len(draws); i++ {
			histStart := i - cfg.Window
			if histStart < 0 {
				histStart = 0
			}
			historyDesc := make([][]int, 0, i-histStart)
			for j := i - 1; j >= histStart; j-- {
				historyDesc = append(historyDesc, mains[j])
			}
			if len(historyDesc) < minHistory {
				continue
			}

			result := scoring.ApplyConfig(historyDesc, cfg, label)
			winning := make(map[int]bool, len(mains[i]))
			for _, n := range mains[i] {
				winning[n] = true
			}
			hits := 0
			for _, n := range result.MainNumbers() {
				if winning[n] {
					hits++
				}
			}
			scoreSum += float64(hits) / 6.0
			if result.SpecialNumber == specials[i] {
				scoreSum += cfg.SpecialBonus
			}
			count++
		}

		if count == 0 {
			continue
		}
		if score := scoreSum / float64(count); score > bestScore {
			bestScore = score
			best = cfg
		}
	}
	return best
}

// Ensure returns the cached mined configuration, mining and caching a
// fresh one when none is stored or force is set.
func Ensure(ctx context.Context, store ConfigStore, draws []models.Draw, force bool) (models.StrategyConfig, error) {
	logger := minerLogger()

	if !force {
		raw, ok, err := store.GetModelState(ctx, ConfigKey)
		if err != nil {
			return models.StrategyConfig{}, fmt.Errorf("loading mined config: %w", err)
		}
		if ok {
			cfg, err := decodeStoredConfig(raw)
			if err == nil {
				return cfg, nil
			}
			logger.Warn().Str("raw", raw).Msg("Stored mined config unreadable, re-mining")
		}
	}

	cfg := Mine(draws)
	blob, err := json.Marshal(cfg)
	if err != nil {
		return models.StrategyConfig{}, fmt.Errorf("encoding mined config: %w", err)
	}
	if err := store.SetModelState(ctx, ConfigKey, string(blob)); err != nil {
		return models.StrategyConfig{}, fmt.Errorf("caching mined config: %w", err)
	}
	logger.Info().Int("window", cfg.Window).Int("history", len(draws)).Msg("Mined configuration refreshed")
	return cfg, nil
}

// decodeStoredConfig decodes a cached configuration blob. Keys absent
// from the blob keep the historical fallback weights instead of
// collapsing to zero.
func decodeStoredConfig(raw string) (models.StrategyConfig, error) {
	cfg := models.StrategyConfig{
		Window:       80,
		FreqWeight:   0.45,
		OmitWeight:   0.35,
		MomWeight:    0.20,
		SpecialBonus: 0.10,
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return models.StrategyConfig{}, err
	}
	if cfg.Window <= 0 {
		return models.StrategyConfig{}, fmt.Errorf("invalid window %d", cfg.Window)
	}
	return cfg, nil
}

func minerLogger() zerolog.Logger {
	return log.With().Str("component", "miner").Logger()
}
