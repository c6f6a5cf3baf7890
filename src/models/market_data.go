package models

// -----------------------------------------------------------------------------
// Timeframes
// -----------------------------------------------------------------------------

// Timeframe tags the granularity of one OHLCV bucket.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// AllTimeframes lists every granularity maintained for each symbol.
var AllTimeframes = []Timeframe{
	Timeframe1m, Timeframe5m, Timeframe15m,
	Timeframe1h, Timeframe4h, Timeframe1d,
}

// TimeframeMillis maps a timeframe to its bucket width in milliseconds.
var TimeframeMillis = map[Timeframe]int64{
	Timeframe1m:  60 * 1000,
	Timeframe5m:  5 * 60 * 1000,
	Timeframe15m: 15 * 60 * 1000,
	Timeframe1h:  60 * 60 * 1000,
	Timeframe4h:  4 * 60 * 60 * 1000,
	Timeframe1d:  24 * 60 * 60 * 1000,
}

// -----------------------------------------------------------------------------
// Market data records
// -----------------------------------------------------------------------------

// MPriceUpdate is the latest ticker snapshot for one symbol.
// Superseded in place: one per symbol, no history beyond the price series.
type MPriceUpdate struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	Open24h          float64 `json:"open_24h"`
	High24h          float64 `json:"high_24h"`
	Low24h           float64 `json:"low_24h"`
	Change24h        float64 `json:"change_24h"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	Volume24h        float64 `json:"volume_24h"`
	Timestamp        int64   `json:"timestamp"` // unix millis
}

// MTradeExecution is a single trade print. Ephemeral: folded into OHLCV
// buckets on arrival and not retained.
type MTradeExecution struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// MOHLCVBar is one candle. Identity is (symbol, timeframe, bucket start).
type MOHLCVBar struct {
	Timeframe Timeframe `json:"timeframe"`
	Timestamp int64     `json:"timestamp"` // bucket start, unix millis
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}
