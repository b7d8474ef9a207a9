package models

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	DBHost             string `env:"DB_HOST" envDefault:"localhost"`
	DBPort             string `env:"DB_PORT" envDefault:"5432"`
	DBUser             string `env:"DB_USER" envDefault:"marksix"`
	DBPassword         string `env:"DB_PASSWORD" envDefault:"-"`
	DBName             string `env:"DB_NAME" envDefault:"marksix"`
	DBSSLMode          string `env:"DB_SSLMODE" envDefault:"disable"`
	OfficialURL        string `env:"OFFICIAL_URL"`
	ThirdPartyURLs     string `env:"THIRD_PARTY_URLS"` // comma-separated
	ThirdPartyMaxPages int    `env:"THIRD_PARTY_MAX_PAGES" envDefault:"60"`
	CSVPath            string `env:"CSV_PATH" envDefault:"Mark_Six.csv"`
	MinHistory         int    `env:"MIN_HISTORY" envDefault:"20"`
	RecentWindow       int    `env:"RECENT_WINDOW" envDefault:"200"`
	RequestTimeout     int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	ListenAddr         string `env:"LISTEN_ADDR" envDefault:":8080"`
	TelegramToken      string `env:"TELEGRAM_TOKEN"`
	TelegramChatID     int64  `env:"TELEGRAM_CHAT_ID"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

// Numbers are drawn from 1..49 and partitioned into five zones of ten
// (the last zone holds 41..49).
const (
	NumberMax = 49
	ZoneCount = 5
	MainPicks = 6
)

// PoolSizes are the fixed candidate pool sizes captured for every run.
var PoolSizes = []int{6, 10, 14, 20}

// Draw is one recorded drawing outcome. Numbers holds the six main
// numbers; SpecialNumber is the extra number drawn alongside them.
type Draw struct {
	IssueNo       string    `json:"issue_no"`
	DrawDate      string    `json:"draw_date"` // YYYY-MM-DD
	Numbers       []int     `json:"numbers"`
	SpecialNumber int       `json:"special_number"`
	Source        string    `json:"source,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// StrategyConfig is one weight vector over the five scoring channels.
// JSON keys match the persisted mined-config blob.
type StrategyConfig struct {
	Window       int     `json:"window"`
	FreqWeight   float64 `json:"w_freq"`
	OmitWeight   float64 `json:"w_omit"`
	MomWeight    float64 `json:"w_mom"`
	PairWeight   float64 `json:"w_pair"`
	ZoneWeight   float64 `json:"w_zone"`
	SpecialBonus float64 `json:"special_bonus"`
}

// DefaultMinedConfig is the configuration used when mining has not run
// yet or the history is too short to mine.
func DefaultMinedConfig() StrategyConfig {
	return StrategyConfig{
		Window:       80,
		FreqWeight:   0.40,
		OmitWeight:   0.30,
		MomWeight:    0.20,
		PairWeight:   0.05,
		ZoneWeight:   0.05,
		SpecialBonus: 0.10,
	}
}

// Run states. A run is PENDING until its issue's outcome is reviewed;
// REVIEWED is terminal.
const (
	RunStatusPending  = "PENDING"
	RunStatusReviewed = "REVIEWED"
)

// Pick types.
const (
	PickTypeMain    = "MAIN"
	PickTypeSpecial = "SPECIAL"
)

// PredictionRun is one (issue, strategy) prediction with its review
// outcome. Hit fields are only populated once the run is REVIEWED.
type PredictionRun struct {
	ID         int64     `json:"id"`
	IssueNo    string    `json:"issue_no"`
	Strategy   string    `json:"strategy"`
	Status     string    `json:"status"`
	HitCount   int       `json:"hit_count"`
	HitRate    float64   `json:"hit_rate"`
	HitCount10 int       `json:"hit_count_10"`
	HitRate10  float64   `json:"hit_rate_10"`
	HitCount14 int       `json:"hit_count_14"`
	HitRate14  float64   `json:"hit_rate_14"`
	HitCount20 int       `json:"hit_count_20"`
	HitRate20  float64   `json:"hit_rate_20"`
	SpecialHit bool      `json:"special_hit"`
	CreatedAt  time.Time `json:"created_at"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`
}

// PredictionPick is one main-number or special-number entry of a run.
type PredictionPick struct {
	Number   int     `json:"number"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
	PickType string  `json:"pick_type"`
}

// ReviewStats aggregates reviewed runs per strategy.
type ReviewStats struct {
	Strategy    string  `json:"strategy"`
	Count       int     `json:"count"`
	AvgHit      float64 `json:"avg_hit"`
	AvgRate     float64 `json:"avg_rate"`
	AvgRate10   float64 `json:"avg_rate_10"`
	AvgRate14   float64 `json:"avg_rate_14"`
	AvgRate20   float64 `json:"avg_rate_20"`
	SpecialRate float64 `json:"special_rate"`
	Hit1Rate    float64 `json:"hit1_rate"`
	Hit2Rate    float64 `json:"hit2_rate"`
}

// Strategy identifiers. Order matters: the backtest harness and the
// prediction generator iterate strategies in this order.
const (
	StrategyBalanced    = "balanced_v1"
	StrategyHot         = "hot_v1"
	StrategyColdRebound = "cold_rebound_v1"
	StrategyMomentum    = "momentum_v1"
	StrategyZoneBalance = "zone_balance_v1"
	StrategyEnsemble    = "ensemble_v2"
	StrategyMined       = "pattern_mined_v1"
)

// StrategyIDs lists every strategy the pipeline runs.
var StrategyIDs = []string{
	StrategyBalanced,
	StrategyHot,
	StrategyColdRebound,
	StrategyMomentum,
	StrategyZoneBalance,
	StrategyEnsemble,
	StrategyMined,
}

// StrategyLabels maps strategy ids to display/reason labels.
var StrategyLabels = map[string]string{
	StrategyBalanced:    "balanced mix",
	StrategyHot:         "hot numbers",
	StrategyColdRebound: "cold rebound",
	StrategyMomentum:    "recent momentum",
	StrategyZoneBalance: "zone balance",
	StrategyEnsemble:    "ensemble vote",
	StrategyMined:       "mined pattern",
}

// StrategyLabel returns the display label for a strategy id, falling
// back to the id itself for unknown strategies.
func StrategyLabel(id string) string {
	if label, ok := StrategyLabels[id]; ok {
		return label
	}
	return id
}
