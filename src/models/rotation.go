package models

import "time"

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

// Category classifies a rotation item for diversity and day-part weighting.
type Category string

const (
	CategoryCurrency  Category = "currency"
	CategoryCrypto    Category = "crypto"
	CategoryCommodity Category = "commodity"
	CategoryIndex     Category = "index"
)

// -----------------------------------------------------------------------------
// Rotation pool
// -----------------------------------------------------------------------------

// MRotationItem is one candidate for a display slot.
type MRotationItem struct {
	ID           string    `json:"id" yaml:"id"`
	Symbol       string    `json:"symbol" yaml:"symbol"`
	Category     Category  `json:"category" yaml:"category"`
	BaseWeight   float64   `json:"base_weight" yaml:"base_weight"`
	Pinned       bool      `json:"pinned" yaml:"pinned"`
	SignalActive bool      `json:"signal_active" yaml:"-"`
	LastShown    time.Time `json:"last_shown" yaml:"-"`
	ShowCount    int       `json:"show_count" yaml:"-"`
}

// -----------------------------------------------------------------------------
// Scheduler configuration
// -----------------------------------------------------------------------------

// MDayPartConfig modulates category and symbol priority inside one wall-clock
// window. StartHour > EndHour spans midnight.
type MDayPartConfig struct {
	Name            string               `json:"name" yaml:"name"`
	StartHour       int                  `json:"start_hour" yaml:"start_hour"`
	EndHour         int                  `json:"end_hour" yaml:"end_hour"`
	Weights         map[Category]float64 `json:"weights" yaml:"weights"`
	PrioritySymbols []string             `json:"priority_symbols" yaml:"priority_symbols"`
}

// MSchedulerConfig is the full per-group scheduler configuration.
type MSchedulerConfig struct {
	FixedSlots              int              `json:"fixed_slots" yaml:"fixed_slots"`
	SpotlightSlots          int              `json:"spotlight_slots" yaml:"spotlight_slots"`
	RotationIntervalSeconds int              `json:"rotation_interval_seconds" yaml:"rotation_interval_seconds"`
	FairnessWindow          int              `json:"fairness_window" yaml:"fairness_window"`
	SectorDiversity         bool             `json:"sector_diversity" yaml:"sector_diversity"`
	MarketHoursWeighting    bool             `json:"market_hours_weighting" yaml:"market_hours_weighting"`
	DayParts                []MDayPartConfig `json:"day_parts" yaml:"day_parts"`
}

// MSchedulerConfigUpdate is a partial merge update; nil fields keep the
// current value.
type MSchedulerConfigUpdate struct {
	FixedSlots              *int              `json:"fixed_slots,omitempty"`
	SpotlightSlots          *int              `json:"spotlight_slots,omitempty"`
	RotationIntervalSeconds *int              `json:"rotation_interval_seconds,omitempty"`
	FairnessWindow          *int              `json:"fairness_window,omitempty"`
	SectorDiversity         *bool             `json:"sector_diversity,omitempty"`
	MarketHoursWeighting    *bool             `json:"market_hours_weighting,omitempty"`
	DayParts                *[]MDayPartConfig `json:"day_parts,omitempty"`
}

// -----------------------------------------------------------------------------
// Signals and stats
// -----------------------------------------------------------------------------

// MMarketSignal is an externally detected, symbol-scoped urgency event.
// Only its effect is retained, never the signal itself.
type MMarketSignal struct {
	Symbol     string `json:"symbol"`
	Priority   int    `json:"priority"` // 0..10
	DurationMs int64  `json:"duration_ms"`
}

// MRotationStats is the observable state of one scheduler.
type MRotationStats struct {
	PoolSize          int            `json:"pool_size"`
	RotationCount     int            `json:"rotation_count"`
	FairnessOverrides int            `json:"fairness_overrides"`
	ActiveSignals     []string       `json:"active_signals"`
	SpotlightItem     string         `json:"spotlight_item"`
	CurrentDayPart    string         `json:"current_day_part"`
	ShowCounts        map[string]int `json:"show_counts"`
	LastSelection     []string       `json:"last_selection"`
}

// MRotationUpdate is one rotation cycle as delivered to display clients.
type MRotationUpdate struct {
	Type      string   `json:"type"` // "ROTATION"
	Group     string   `json:"group"`
	Items     []string `json:"items"`
	Timestamp int64    `json:"timestamp"`
}

// MSubscribeCommand is the websocket client request to follow display groups.
type MSubscribeCommand struct {
	Command string   `json:"command"`
	Groups  []string `json:"groups"`
}
