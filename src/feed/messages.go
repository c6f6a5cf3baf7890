package feed

import (
	"strconv"
	"time"

	"market-rotator/src/models"
)

// -----------------------------------------------------------------------------
// Wire protocol
//
// Inbound frames are JSON objects discriminated by "type". Numeric fields
// arrive as decimal strings and are parsed before use. Unknown types are
// ignored without interrupting the stream.
// -----------------------------------------------------------------------------

const (
	frameTicker        = "ticker"
	frameMatch         = "match"
	frameHeartbeat     = "heartbeat"
	frameSubscriptions = "subscriptions"
	frameL2Update      = "l2update"

	channelTicker  = "ticker"
	channelMatches = "matches"
)

// -----------------------------------------------------------------------------

// wireFrame is the superset of fields across every inbound frame type.
type wireFrame struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Open24h   string `json:"open_24h"`
	High24h   string `json:"high_24h"`
	Low24h    string `json:"low_24h"`
	Volume24h string `json:"volume_24h"`
	Size      string `json:"size"`
	Time      string `json:"time"`
}

// -----------------------------------------------------------------------------

// subscribeRequest is the outbound (un)subscribe envelope.
type subscribeRequest struct {
	Type       string   `json:"type"` // "subscribe" or "unsubscribe"
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// -----------------------------------------------------------------------------

func newSubscribeRequest(subscribe bool, products []string) subscribeRequest {
	typ := "subscribe"
	if !subscribe {
		typ = "unsubscribe"
	}
	return subscribeRequest{
		Type:       typ,
		ProductIDs: products,
		Channels:   []string{channelTicker, channelMatches},
	}
}

// -----------------------------------------------------------------------------
// Field parsing
// -----------------------------------------------------------------------------

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// -----------------------------------------------------------------------------

// parseWireTime converts the frame's timestamp into unix millis, falling back
// to the provided clock when the field is absent or unparseable.
func parseWireTime(s string, now func() time.Time) int64 {
	if s == "" {
		return now().UnixMilli()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms
	}
	return now().UnixMilli()
}

// -----------------------------------------------------------------------------

// toPriceUpdate converts a ticker frame. change = price - open_24h;
// changePercent = change / open_24h when the open is nonzero, else 0.
func (f *wireFrame) toPriceUpdate(now func() time.Time) (models.MPriceUpdate, error) {
	price, err := parseDecimal(f.Price)
	if err != nil {
		return models.MPriceUpdate{}, err
	}
	open, err := parseDecimal(f.Open24h)
	if err != nil {
		return models.MPriceUpdate{}, err
	}
	high, err := parseDecimal(f.High24h)
	if err != nil {
		return models.MPriceUpdate{}, err
	}
	low, err := parseDecimal(f.Low24h)
	if err != nil {
		return models.MPriceUpdate{}, err
	}
	volume, err := parseDecimal(f.Volume24h)
	if err != nil {
		return models.MPriceUpdate{}, err
	}

	change := price - open
	changePct := 0.0
	if open != 0 {
		changePct = change / open
	}

	return models.MPriceUpdate{
		Symbol:           f.ProductID,
		Price:            price,
		Open24h:          open,
		High24h:          high,
		Low24h:           low,
		Change24h:        change,
		ChangePercent24h: changePct,
		Volume24h:        volume,
		Timestamp:        parseWireTime(f.Time, now),
	}, nil
}

// -----------------------------------------------------------------------------

// toTrade converts a match frame.
func (f *wireFrame) toTrade(now func() time.Time) (models.MTradeExecution, error) {
	price, err := parseDecimal(f.Price)
	if err != nil {
		return models.MTradeExecution{}, err
	}
	size, err := parseDecimal(f.Size)
	if err != nil {
		return models.MTradeExecution{}, err
	}

	return models.MTradeExecution{
		Symbol:    f.ProductID,
		Price:     price,
		Size:      size,
		Timestamp: parseWireTime(f.Time, now),
	}, nil
}
