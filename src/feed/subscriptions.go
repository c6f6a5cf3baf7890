package feed

import (
	"sync"

	"market-rotator/src/models"
)

// -----------------------------------------------------------------------------
// Subscriber registry
//
// Subscriptions are keyed by symbol (price) or (symbol, timeframe) (OHLCV).
// Multiple subscriptions per key are independent; each subscribe returns a
// revocation func that is safe to call at any time, including from inside a
// notification callback.
// -----------------------------------------------------------------------------

// PriceCallback receives latest-price snapshots.
type PriceCallback func(models.MPriceUpdate)

// OHLCVCallback receives the affected bar after each trade.
type OHLCVCallback func(models.MOHLCVBar)

type ohlcvKey struct {
	symbol    string
	timeframe models.Timeframe
}

// -----------------------------------------------------------------------------

type subscriberSet struct {
	mu     sync.Mutex
	nextID int64
	price  map[string]map[int64]PriceCallback
	ohlcv  map[ohlcvKey]map[int64]OHLCVCallback
}

// -----------------------------------------------------------------------------

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{
		price: make(map[string]map[int64]PriceCallback),
		ohlcv: make(map[ohlcvKey]map[int64]OHLCVCallback),
	}
}

// -----------------------------------------------------------------------------

// AddPrice registers a price subscriber and returns its revocation func.
func (s *subscriberSet) AddPrice(symbol string, cb PriceCallback) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.price[symbol] == nil {
		s.price[symbol] = make(map[int64]PriceCallback)
	}
	s.price[symbol][id] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.price[symbol]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.price, symbol)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// AddOHLCV registers an OHLCV subscriber and returns its revocation func.
func (s *subscriberSet) AddOHLCV(symbol string, tf models.Timeframe, cb OHLCVCallback) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	key := ohlcvKey{symbol: symbol, timeframe: tf}
	if s.ohlcv[key] == nil {
		s.ohlcv[key] = make(map[int64]OHLCVCallback)
	}
	s.ohlcv[key][id] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.ohlcv[key]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.ohlcv, key)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// NotifyPrice delivers an update to every subscriber of the symbol. The
// callback list is snapshotted first, so revocations during delivery only
// affect later notifications.
func (s *subscriberSet) NotifyPrice(update models.MPriceUpdate) {
	s.mu.Lock()
	cbs := make([]PriceCallback, 0, len(s.price[update.Symbol]))
	for _, cb := range s.price[update.Symbol] {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(update)
	}
}

// -----------------------------------------------------------------------------

// NotifyOHLCV delivers an affected bar to every subscriber of its key.
func (s *subscriberSet) NotifyOHLCV(symbol string, bar models.MOHLCVBar) {
	key := ohlcvKey{symbol: symbol, timeframe: bar.Timeframe}

	s.mu.Lock()
	cbs := make([]OHLCVCallback, 0, len(s.ohlcv[key]))
	for _, cb := range s.ohlcv[key] {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(bar)
	}
}

// -----------------------------------------------------------------------------

// Counts returns the number of live price and OHLCV subscriptions.
func (s *subscriberSet) Counts() (price int, ohlcv int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subs := range s.price {
		price += len(subs)
	}
	for _, subs := range s.ohlcv {
		ohlcv += len(subs)
	}
	return price, ohlcv
}

// -----------------------------------------------------------------------------

// Clear drops every subscription.
func (s *subscriberSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = make(map[string]map[int64]PriceCallback)
	s.ohlcv = make(map[ohlcvKey]map[int64]OHLCVCallback)
}
