package feed

import (
	"sort"

	"market-rotator/src/models"
)

// maxBarsPerTimeframe caps each (symbol, timeframe) bar list. Oldest bars are
// dropped on overflow; a bar is never explicitly finalized.
const maxBarsPerTimeframe = 1000

// -----------------------------------------------------------------------------
// ohlcvStore owns every OHLCV bar list. Bars per (symbol, timeframe) stay
// sorted by bucket start. Not goroutine safe: callers hold the client lock.
// -----------------------------------------------------------------------------

type ohlcvStore struct {
	bars map[string]map[models.Timeframe][]models.MOHLCVBar
}

// -----------------------------------------------------------------------------

func newOHLCVStore() *ohlcvStore {
	return &ohlcvStore{
		bars: make(map[string]map[models.Timeframe][]models.MOHLCVBar),
	}
}

// -----------------------------------------------------------------------------

// ApplyTrade folds one trade into every timeframe's bucket and returns the
// affected bar per timeframe.
func (s *ohlcvStore) ApplyTrade(trade models.MTradeExecution) []models.MOHLCVBar {
	byTf := s.bars[trade.Symbol]
	if byTf == nil {
		byTf = make(map[models.Timeframe][]models.MOHLCVBar)
		s.bars[trade.Symbol] = byTf
	}

	affected := make([]models.MOHLCVBar, 0, len(models.AllTimeframes))
	for _, tf := range models.AllTimeframes {
		width := models.TimeframeMillis[tf]
		bucket := (trade.Timestamp / width) * width
		byTf[tf] = applyToBars(byTf[tf], tf, bucket, trade)

		if bar, ok := findBar(byTf[tf], bucket); ok {
			affected = append(affected, bar)
		}
	}
	return affected
}

// -----------------------------------------------------------------------------

func applyToBars(bars []models.MOHLCVBar, tf models.Timeframe, bucket int64, trade models.MTradeExecution) []models.MOHLCVBar {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp >= bucket })

	if i < len(bars) && bars[i].Timestamp == bucket {
		bar := &bars[i]
		if trade.Price > bar.High {
			bar.High = trade.Price
		}
		if trade.Price < bar.Low {
			bar.Low = trade.Price
		}
		bar.Close = trade.Price
		bar.Volume += trade.Size
		return bars
	}

	// First trade of this bucket seeds the bar.
	fresh := models.MOHLCVBar{
		Timeframe: tf,
		Timestamp: bucket,
		Open:      trade.Price,
		High:      trade.Price,
		Low:       trade.Price,
		Close:     trade.Price,
		Volume:    trade.Size,
	}

	bars = append(bars, models.MOHLCVBar{})
	copy(bars[i+1:], bars[i:])
	bars[i] = fresh

	if len(bars) > maxBarsPerTimeframe {
		bars = bars[len(bars)-maxBarsPerTimeframe:]
	}
	return bars
}

// -----------------------------------------------------------------------------

func findBar(bars []models.MOHLCVBar, bucket int64) (models.MOHLCVBar, bool) {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp >= bucket })
	if i < len(bars) && bars[i].Timestamp == bucket {
		return bars[i], true
	}
	return models.MOHLCVBar{}, false
}

// -----------------------------------------------------------------------------

// History returns up to limit most recent bars, oldest first. limit <= 0
// returns everything retained.
func (s *ohlcvStore) History(symbol string, tf models.Timeframe, limit int) []models.MOHLCVBar {
	bars := s.bars[symbol][tf]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	out := make([]models.MOHLCVBar, len(bars))
	copy(out, bars)
	return out
}

// -----------------------------------------------------------------------------

// Latest returns the newest bar for a symbol and timeframe.
func (s *ohlcvStore) Latest(symbol string, tf models.Timeframe) (models.MOHLCVBar, bool) {
	bars := s.bars[symbol][tf]
	if len(bars) == 0 {
		return models.MOHLCVBar{}, false
	}
	return bars[len(bars)-1], true
}

// -----------------------------------------------------------------------------

// Drop removes every bar list for one symbol.
func (s *ohlcvStore) Drop(symbol string) {
	delete(s.bars, symbol)
}

// -----------------------------------------------------------------------------

// Clear wipes the store.
func (s *ohlcvStore) Clear() {
	s.bars = make(map[string]map[models.Timeframe][]models.MOHLCVBar)
}
