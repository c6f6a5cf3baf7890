package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

// -----------------------------------------------------------------------------
// Subscribe envelope
// -----------------------------------------------------------------------------

func TestNewSubscribeRequest(t *testing.T) {
	req := newSubscribeRequest(true, []string{"BTC-USD", "ETH-USD"})
	assert.Equal(t, "subscribe", req.Type)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, req.ProductIDs)
	assert.Equal(t, []string{"ticker", "matches"}, req.Channels)

	req = newSubscribeRequest(false, []string{"BTC-USD"})
	assert.Equal(t, "unsubscribe", req.Type)
}

// -----------------------------------------------------------------------------
// Timestamps
// -----------------------------------------------------------------------------

func TestParseWireTime(t *testing.T) {
	now := fixedClock(1700000000000)

	ts := parseWireTime("2023-11-14T22:13:20.5Z", now)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 500000000, time.UTC).UnixMilli(), ts)

	// Raw unix millis are accepted as-is.
	assert.Equal(t, int64(1690000000000), parseWireTime("1690000000000", now))

	// Absent or garbage fields fall back to the local clock.
	assert.Equal(t, int64(1700000000000), parseWireTime("", now))
	assert.Equal(t, int64(1700000000000), parseWireTime("not-a-time", now))
}

// -----------------------------------------------------------------------------
// Ticker conversion
// -----------------------------------------------------------------------------

func TestToPriceUpdate(t *testing.T) {
	f := wireFrame{
		Type:      frameTicker,
		ProductID: "BTC-USD",
		Price:     "43000.50",
		Open24h:   "40000.00",
		High24h:   "43500.00",
		Low24h:    "39800.00",
		Volume24h: "1234.5678",
		Time:      "2023-11-14T22:13:20Z",
	}

	upd, err := f.toPriceUpdate(fixedClock(0))
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", upd.Symbol)
	assert.InDelta(t, 43000.50, upd.Price, 1e-9)
	assert.InDelta(t, 3000.50, upd.Change24h, 1e-9)
	assert.InDelta(t, 3000.50/40000.00, upd.ChangePercent24h, 1e-12)
	assert.InDelta(t, 1234.5678, upd.Volume24h, 1e-9)
}

func TestToPriceUpdateZeroOpen(t *testing.T) {
	f := wireFrame{
		ProductID: "NEW-USD",
		Price:     "10",
		Open24h:   "0",
		High24h:   "10",
		Low24h:    "10",
		Volume24h: "1",
	}

	upd, err := f.toPriceUpdate(fixedClock(0))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, upd.Change24h, 1e-9)
	assert.Zero(t, upd.ChangePercent24h, "percent change is defined as 0 when the open is 0")
}

func TestToPriceUpdateMalformedDecimal(t *testing.T) {
	f := wireFrame{
		ProductID: "BTC-USD",
		Price:     "forty-three",
		Open24h:   "40000",
		High24h:   "43500",
		Low24h:    "39800",
		Volume24h: "1",
	}
	_, err := f.toPriceUpdate(fixedClock(0))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------
// Match conversion
// -----------------------------------------------------------------------------

func TestToTrade(t *testing.T) {
	f := wireFrame{
		Type:      frameMatch,
		ProductID: "ETH-USD",
		Price:     "2250.25",
		Size:      "0.5",
		Time:      "1690000000000",
	}

	trade, err := f.toTrade(fixedClock(0))
	require.NoError(t, err)
	assert.Equal(t, "ETH-USD", trade.Symbol)
	assert.InDelta(t, 2250.25, trade.Price, 1e-9)
	assert.InDelta(t, 0.5, trade.Size, 1e-9)
	assert.Equal(t, int64(1690000000000), trade.Timestamp)
}

func TestToTradeMalformedSize(t *testing.T) {
	f := wireFrame{ProductID: "ETH-USD", Price: "2250.25", Size: ""}
	_, err := f.toTrade(fixedClock(0))
	assert.Error(t, err)
}
