package feed

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"market-rotator/src/helpers"
	"market-rotator/src/logger"
	"market-rotator/src/models"
	"market-rotator/src/utils"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	defaultConnectTimeout = 10 * time.Second
	heartbeatInterval     = 30 * time.Second
	heartbeatWriteWait    = 5 * time.Second
	maxReconnectAttempts  = 5
	priceHistoryCap       = 100
)

// ErrNotConnected is returned by writes attempted without a live socket.
var ErrNotConnected = errors.New("feed: not connected")

// -----------------------------------------------------------------------------

// backoffDelay is the wait before reconnect attempt n: min(1000*2^n, 30000) ms.
func backoffDelay(attempt int) time.Duration {
	ms := int64(1000) << uint(attempt)
	if ms > 30000 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

// -----------------------------------------------------------------------------
// Client
//
// Client owns one persistent connection to the upstream venue and converts it
// into queryable state: latest price per symbol, capped price-history series,
// and OHLCV bars per symbol and timeframe. Connection churn (reconnect,
// backoff, heartbeat) stays behind this type; getters and subscriptions never
// surface transport errors.
// -----------------------------------------------------------------------------

type Client struct {
	Logger *logger.Logger

	cfg    models.MFeedConfig
	dialer *websocket.Dialer
	now    func() time.Time

	mu             sync.Mutex
	conn           *websocket.Conn
	state          models.ConnectionState
	gen            int // connection generation, bumps on dial and teardown
	attempts       int
	products       []string
	reconnectTimer *time.Timer
	hbStop         chan struct{}

	latest  map[string]models.MPriceUpdate
	history map[string]*utils.SeriesBuffer
	store   *ohlcvStore
	subs    *subscriberSet

	messagesReceived int64
	framesDropped    int64
	lastMessageAt    int64
}

// -----------------------------------------------------------------------------

// NewClient creates a feed client. It owns no socket until Connect.
func NewClient(cfg models.MFeedConfig, log *logger.Logger) *Client {
	timeout := defaultConnectTimeout
	if cfg.ConnectTimeoutMs > 0 {
		timeout = time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
	}

	return &Client{
		Logger:   log,
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		now:      time.Now,
		state:    models.StateDisconnected,
		products: append([]string(nil), cfg.Products...),
		latest:   make(map[string]models.MPriceUpdate),
		history:  make(map[string]*utils.SeriesBuffer),
		store:    newOHLCVStore(),
		subs:     newSubscriberSet(),
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Connect opens the socket. Idempotent: a second call while connected or
// already connecting is a no-op. A failed dial leaves the client Disconnected;
// the reconnect machinery only engages after an established connection drops.
func (c *Client) Connect() error {
	c.mu.Lock()
	switch c.state {
	case models.StateConnected, models.StateConnecting, models.StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = models.StateConnecting
	c.mu.Unlock()

	return c.dial(false)
}

// -----------------------------------------------------------------------------

// dial performs the handshake outside the client lock and finalizes the
// state transition. retry marks dials driven by the reconnect timer.
func (c *Client) dial(retry bool) error {
	conn, _, err := c.dialer.Dial(c.cfg.URL, nil)

	c.mu.Lock()
	if c.state != models.StateConnecting {
		// Disconnect raced the handshake; discard the socket.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}

	if err != nil {
		if retry {
			c.state = models.StateReconnecting
			c.scheduleReconnectLocked()
			c.mu.Unlock()
			return err
		}
		c.state = models.StateDisconnected
		c.mu.Unlock()
		return helpers.WrapFeedError(err, "dial %s failed", c.cfg.URL)
	}

	c.conn = conn
	c.state = models.StateConnected
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.hbStop = make(chan struct{})
	hbStop := c.hbStop
	products := append([]string(nil), c.products...)
	c.mu.Unlock()

	c.Logger.Info("Connected to %s (%d products)", c.cfg.URL, len(products))

	go c.readLoop(gen, conn)
	go c.heartbeatLoop(conn, hbStop)

	if len(products) > 0 {
		if err := c.send(newSubscribeRequest(true, products)); err != nil {
			c.Logger.Warning("Subscribe request failed: %v", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Disconnect closes the socket and wipes subscriptions, buffers and timers.
// Forces Disconnected from any state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			c.now().Add(heartbeatWriteWait))
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.state = models.StateDisconnected
	c.attempts = 0
	c.latest = make(map[string]models.MPriceUpdate)
	c.history = make(map[string]*utils.SeriesBuffer)
	c.store.Clear()
	c.mu.Unlock()

	c.subs.Clear()
	c.Logger.Info("Disconnected")
}

// -----------------------------------------------------------------------------
// Reconnection
// -----------------------------------------------------------------------------

// handleConnectionLoss reacts to an unexpected close on the given generation.
func (c *Client) handleConnectionLoss(gen int, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != models.StateConnected {
		// Stale read loop or deliberate teardown.
		return
	}

	c.Logger.Warning("Connection lost: %v", cause)
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.state = models.StateReconnecting
	c.scheduleReconnectLocked()
}

// -----------------------------------------------------------------------------

// scheduleReconnectLocked arms the next retry timer, or surfaces Failed once
// the attempt budget is spent. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts > maxReconnectAttempts {
		c.state = models.StateFailed
		c.Logger.Error("Giving up after %d reconnect attempts; manual reconnect required", maxReconnectAttempts)
		return
	}

	delay := backoffDelay(c.attempts)
	c.Logger.Info("Reconnecting in %v (attempt %d/%d)", delay, c.attempts, maxReconnectAttempts)
	c.reconnectTimer = time.AfterFunc(delay, c.retryConnect)
}

// -----------------------------------------------------------------------------

func (c *Client) retryConnect() {
	c.mu.Lock()
	if c.state != models.StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.state = models.StateConnecting
	c.mu.Unlock()

	c.dial(true)
}

// -----------------------------------------------------------------------------
// Socket loops
// -----------------------------------------------------------------------------

func (c *Client) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleConnectionLoss(gen, err)
			return
		}
		c.handleFrame(data)
	}
}

// -----------------------------------------------------------------------------

// heartbeatLoop verifies socket readiness every 30s while connected. The
// protocol requires no outbound ping; a failed control write is how a dead
// socket is detected between frames.
func (c *Client) heartbeatLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := c.now().Add(heartbeatWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.Logger.Warning("Heartbeat write failed: %v", err)
				conn.Close() // read loop surfaces the loss
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// send writes one JSON frame under the client lock.
func (c *Client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(v)
}

// -----------------------------------------------------------------------------
// Frame dispatch
// -----------------------------------------------------------------------------

func (c *Client) handleFrame(data []byte) {
	var f wireFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.noteDropped("unparseable frame: %v", err)
		return
	}

	c.mu.Lock()
	c.messagesReceived++
	c.lastMessageAt = c.now().UnixMilli()
	c.mu.Unlock()

	switch f.Type {
	case frameTicker:
		c.handleTicker(&f)
	case frameMatch:
		c.handleTrade(&f)
	case frameHeartbeat, frameSubscriptions, frameL2Update:
		// liveness and echo frames carry no state we track
	default:
		c.Logger.Debug("Ignoring frame type %q", f.Type)
	}
}

// -----------------------------------------------------------------------------

func (c *Client) noteDropped(format string, args ...interface{}) {
	c.mu.Lock()
	c.framesDropped++
	c.mu.Unlock()
	c.Logger.Warning(format, args...)
}

// -----------------------------------------------------------------------------

func (c *Client) handleTicker(f *wireFrame) {
	update, err := f.toPriceUpdate(c.now)
	if err != nil {
		c.noteDropped("malformed ticker for %s: %v", f.ProductID, err)
		return
	}

	c.mu.Lock()
	c.latest[update.Symbol] = update
	hb := c.history[update.Symbol]
	if hb == nil {
		hb = utils.NewSeriesBuffer(priceHistoryCap)
		c.history[update.Symbol] = hb
	}
	hb.Append(update.Price)
	c.mu.Unlock()

	c.subs.NotifyPrice(update)
}

// -----------------------------------------------------------------------------

func (c *Client) handleTrade(f *wireFrame) {
	trade, err := f.toTrade(c.now)
	if err != nil {
		c.noteDropped("malformed match for %s: %v", f.ProductID, err)
		return
	}

	c.mu.Lock()
	affected := c.store.ApplyTrade(trade)
	c.mu.Unlock()

	for _, bar := range affected {
		c.subs.NotifyOHLCV(trade.Symbol, bar)
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// SubscribePriceUpdates registers a price callback and returns its revocation
// func. If a latest price is already known it is delivered synchronously, so
// the subscriber never starts blind.
func (c *Client) SubscribePriceUpdates(symbol string, cb PriceCallback) func() {
	revoke := c.subs.AddPrice(symbol, cb)

	c.mu.Lock()
	update, ok := c.latest[symbol]
	c.mu.Unlock()
	if ok {
		cb(update)
	}
	return revoke
}

// -----------------------------------------------------------------------------

// SubscribeOHLCVUpdates registers an OHLCV callback for one (symbol,
// timeframe) and returns its revocation func. The newest known bar, if any,
// is delivered synchronously.
func (c *Client) SubscribeOHLCVUpdates(symbol string, tf models.Timeframe, cb OHLCVCallback) func() {
	revoke := c.subs.AddOHLCV(symbol, tf, cb)

	c.mu.Lock()
	bar, ok := c.store.Latest(symbol, tf)
	c.mu.Unlock()
	if ok {
		cb(bar)
	}
	return revoke
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// LatestPrice returns the last ticker snapshot for a symbol, if any.
func (c *Client) LatestPrice(symbol string) (models.MPriceUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update, ok := c.latest[symbol]
	return update, ok
}

// -----------------------------------------------------------------------------

// HistoricalOHLCV returns up to limit most recent bars, oldest first.
func (c *Client) HistoricalOHLCV(symbol string, tf models.Timeframe, limit int) []models.MOHLCVBar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.History(symbol, tf, limit)
}

// -----------------------------------------------------------------------------

// PriceHistory returns the capped smoothing series for a symbol, oldest
// first, together with its running min and max.
func (c *Client) PriceHistory(symbol string) (samples []float64, min, max float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hb := c.history[symbol]
	if hb == nil {
		return []float64{}, 0, 0
	}
	return hb.GetAll(), hb.Min(), hb.Max()
}

// -----------------------------------------------------------------------------
// Dynamic subscription set
// -----------------------------------------------------------------------------

// AddSymbol starts tracking a product, subscribing on the wire when connected.
func (c *Client) AddSymbol(symbol string) error {
	c.mu.Lock()
	for _, p := range c.products {
		if p == symbol {
			c.mu.Unlock()
			return nil
		}
	}
	c.products = append(c.products, symbol)
	connected := c.state == models.StateConnected
	c.mu.Unlock()

	if connected {
		return c.send(newSubscribeRequest(true, []string{symbol}))
	}
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSymbol stops tracking a product and drops its buffers.
func (c *Client) RemoveSymbol(symbol string) error {
	c.mu.Lock()
	found := false
	for i, p := range c.products {
		if p == symbol {
			c.products = append(c.products[:i], c.products[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		return nil
	}
	delete(c.latest, symbol)
	delete(c.history, symbol)
	c.store.Drop(symbol)
	connected := c.state == models.StateConnected
	c.mu.Unlock()

	if connected {
		return c.send(newSubscribeRequest(false, []string{symbol}))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status returns the observable connection snapshot.
func (c *Client) Status() models.MFeedStatus {
	price, ohlcv := c.subs.Counts()

	c.mu.Lock()
	defer c.mu.Unlock()

	products := append([]string(nil), c.products...)
	sort.Strings(products)

	return models.MFeedStatus{
		State:             c.state,
		Products:          products,
		ReconnectAttempts: c.attempts,
		PriceSubscribers:  price,
		OHLCVSubscribers:  ohlcv,
		LastMessageAt:     c.lastMessageAt,
		MessagesReceived:  c.messagesReceived,
		FramesDropped:     c.framesDropped,
	}
}

// -----------------------------------------------------------------------------

// State returns the current connection state.
func (c *Client) State() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
