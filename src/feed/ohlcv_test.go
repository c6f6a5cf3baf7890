package feed

import (
	"testing"

	"market-rotator/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(symbol string, price, size float64, ts int64) models.MTradeExecution {
	return models.MTradeExecution{Symbol: symbol, Price: price, Size: size, Timestamp: ts}
}

// -----------------------------------------------------------------------------

func TestApplyTradeSeedsEveryTimeframe(t *testing.T) {
	s := newOHLCVStore()

	affected := s.ApplyTrade(trade("BTC-USD", 100, 2, 90_000)) // 00:01:30
	require.Len(t, affected, len(models.AllTimeframes))

	for _, tf := range models.AllTimeframes {
		bar, ok := s.Latest("BTC-USD", tf)
		require.True(t, ok, "timeframe %s missing", tf)
		assert.Equal(t, tf, bar.Timeframe)
		assert.InDelta(t, 100.0, bar.Open, 1e-9)
		assert.InDelta(t, 100.0, bar.High, 1e-9)
		assert.InDelta(t, 100.0, bar.Low, 1e-9)
		assert.InDelta(t, 100.0, bar.Close, 1e-9)
		assert.InDelta(t, 2.0, bar.Volume, 1e-9)
	}

	// The 1m bucket starts at the floor of the trade's timestamp.
	bar, _ := s.Latest("BTC-USD", models.Timeframe1m)
	assert.Equal(t, int64(60_000), bar.Timestamp)
}

func TestApplyTradeUpdatesOpenHighLowCloseVolume(t *testing.T) {
	s := newOHLCVStore()
	s.ApplyTrade(trade("BTC-USD", 100, 1, 60_000))
	s.ApplyTrade(trade("BTC-USD", 120, 2, 61_000))
	s.ApplyTrade(trade("BTC-USD", 90, 3, 62_000))
	s.ApplyTrade(trade("BTC-USD", 110, 4, 63_000))

	bar, ok := s.Latest("BTC-USD", models.Timeframe1m)
	require.True(t, ok)
	assert.InDelta(t, 100.0, bar.Open, 1e-9, "open never changes after the first trade")
	assert.InDelta(t, 120.0, bar.High, 1e-9)
	assert.InDelta(t, 90.0, bar.Low, 1e-9)
	assert.InDelta(t, 110.0, bar.Close, 1e-9)
	assert.InDelta(t, 10.0, bar.Volume, 1e-9)

	assert.GreaterOrEqual(t, bar.High, bar.Open)
	assert.GreaterOrEqual(t, bar.High, bar.Close)
	assert.LessOrEqual(t, bar.Low, bar.Open)
	assert.LessOrEqual(t, bar.Low, bar.Close)
}

func TestBucketBoundaryOpensNewBar(t *testing.T) {
	s := newOHLCVStore()
	s.ApplyTrade(trade("BTC-USD", 100, 1, 60_000))
	s.ApplyTrade(trade("BTC-USD", 200, 1, 119_999)) // last ms of the bucket
	s.ApplyTrade(trade("BTC-USD", 300, 1, 120_000)) // first ms of the next

	bars := s.History("BTC-USD", models.Timeframe1m, 0)
	require.Len(t, bars, 2)

	// The prior bar is untouched by the new bucket's trades.
	assert.Equal(t, int64(60_000), bars[0].Timestamp)
	assert.InDelta(t, 200.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 2.0, bars[0].Volume, 1e-9)

	assert.Equal(t, int64(120_000), bars[1].Timestamp)
	assert.InDelta(t, 300.0, bars[1].Open, 1e-9)
}

func TestIdenticalTimestampsShareADeterministicBucket(t *testing.T) {
	a := newOHLCVStore()
	b := newOHLCVStore()
	for _, st := range []*ohlcvStore{a, b} {
		st.ApplyTrade(trade("BTC-USD", 100, 1, 90_500))
		st.ApplyTrade(trade("BTC-USD", 105, 1, 90_500))
	}

	barA, _ := a.Latest("BTC-USD", models.Timeframe1m)
	barB, _ := b.Latest("BTC-USD", models.Timeframe1m)
	assert.Equal(t, barA, barB)
	assert.InDelta(t, 2.0, barA.Volume, 1e-9)
}

func TestOutOfOrderTradeKeepsBarsSorted(t *testing.T) {
	s := newOHLCVStore()
	s.ApplyTrade(trade("BTC-USD", 100, 1, 180_000))
	s.ApplyTrade(trade("BTC-USD", 90, 1, 60_000)) // late arrival, earlier bucket

	bars := s.History("BTC-USD", models.Timeframe1m, 0)
	require.Len(t, bars, 2)
	assert.Less(t, bars[0].Timestamp, bars[1].Timestamp)
	assert.Equal(t, int64(60_000), bars[0].Timestamp)
}

func TestRetentionCapDropsOldestBars(t *testing.T) {
	s := newOHLCVStore()
	width := models.TimeframeMillis[models.Timeframe1m]
	for i := int64(0); i < maxBarsPerTimeframe+10; i++ {
		s.ApplyTrade(trade("BTC-USD", 100, 1, i*width))
	}

	bars := s.History("BTC-USD", models.Timeframe1m, 0)
	require.Len(t, bars, maxBarsPerTimeframe)
	// The 10 oldest buckets were evicted.
	assert.Equal(t, 10*width, bars[0].Timestamp)
}

func TestHistoryLimit(t *testing.T) {
	s := newOHLCVStore()
	width := models.TimeframeMillis[models.Timeframe1m]
	for i := int64(0); i < 5; i++ {
		s.ApplyTrade(trade("BTC-USD", 100+float64(i), 1, i*width))
	}

	bars := s.History("BTC-USD", models.Timeframe1m, 2)
	require.Len(t, bars, 2)
	assert.Equal(t, 3*width, bars[0].Timestamp)
	assert.Equal(t, 4*width, bars[1].Timestamp)

	assert.Empty(t, s.History("ETH-USD", models.Timeframe1m, 10))
}

func TestDropAndClear(t *testing.T) {
	s := newOHLCVStore()
	s.ApplyTrade(trade("BTC-USD", 100, 1, 60_000))
	s.ApplyTrade(trade("ETH-USD", 50, 1, 60_000))

	s.Drop("BTC-USD")
	_, ok := s.Latest("BTC-USD", models.Timeframe1m)
	assert.False(t, ok)
	_, ok = s.Latest("ETH-USD", models.Timeframe1m)
	assert.True(t, ok)

	s.Clear()
	_, ok = s.Latest("ETH-USD", models.Timeframe1m)
	assert.False(t, ok)
}
