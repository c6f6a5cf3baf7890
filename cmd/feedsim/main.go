package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-rotator/src/logger"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// feedsim serves a simulated upstream venue: a websocket endpoint that honors
// subscribe/unsubscribe requests and emits plausible ticker and match frames
// for the requested products. It lets the whole stack run without a live feed.
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

type simRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type simSession struct {
	conn   *websocket.Conn
	log    *logger.Logger
	tick   time.Duration
	rng    *rand.Rand
	writeM sync.Mutex

	mu       sync.Mutex
	products map[string]float64 // symbol -> drifting price
}

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:8765", "listen address")
	tickMs := flag.Int("tick", 250, "milliseconds between emitted frames")
	flag.Parse()

	log := logger.NewLogger("INFO", "FeedSim")

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warning("Upgrade failed: %v", err)
			return
		}

		s := &simSession{
			conn:     conn,
			log:      log,
			tick:     time.Duration(*tickMs) * time.Millisecond,
			rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
			products: make(map[string]float64),
		}
		go s.emitLoop()
		s.readLoop()
	})

	log.Info("Simulated venue listening on ws://%s/", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Critical("Listen failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (s *simSession) readLoop() {
	defer s.conn.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("Session closed: %v", err)
			return
		}

		var req simRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.log.Warning("Bad request frame: %v", err)
			continue
		}

		s.mu.Lock()
		switch req.Type {
		case "subscribe":
			for _, p := range req.ProductIDs {
				if _, ok := s.products[p]; !ok {
					s.products[p] = s.seedPrice(p)
				}
			}
		case "unsubscribe":
			for _, p := range req.ProductIDs {
				delete(s.products, p)
			}
		}
		count := len(s.products)
		s.mu.Unlock()

		s.log.Info("%s: now tracking %d products", req.Type, count)
		s.writeJSON(map[string]interface{}{
			"type":     "subscriptions",
			"channels": req.Channels,
		})
	}
}

// -----------------------------------------------------------------------------

// seedPrice derives a stable-ish starting price from the symbol name so runs
// look consistent.
func (s *simSession) seedPrice(symbol string) float64 {
	base := 100.0
	if strings.Contains(symbol, "BTC") {
		base = 60000
	} else if strings.Contains(symbol, "ETH") {
		base = 3000
	}
	return base * (0.9 + 0.2*s.rng.Float64())
}

// -----------------------------------------------------------------------------

func (s *simSession) emitLoop() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		symbols := make([]string, 0, len(s.products))
		for sym := range s.products {
			symbols = append(symbols, sym)
		}
		s.mu.Unlock()

		if len(symbols) == 0 {
			continue
		}

		sym := symbols[s.rng.Intn(len(symbols))]

		s.mu.Lock()
		price := s.products[sym]
		price *= 1 + (s.rng.Float64()-0.5)*0.002
		s.products[sym] = price
		s.mu.Unlock()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		dec := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

		var frame map[string]interface{}
		if s.rng.Intn(2) == 0 {
			frame = map[string]interface{}{
				"type":       "ticker",
				"product_id": sym,
				"price":      dec(price),
				"open_24h":   dec(price * 0.99),
				"high_24h":   dec(price * 1.02),
				"low_24h":    dec(price * 0.97),
				"volume_24h": dec(1000 + s.rng.Float64()*9000),
				"time":       now,
			}
		} else {
			frame = map[string]interface{}{
				"type":       "match",
				"product_id": sym,
				"price":      dec(price),
				"size":       dec(0.01 + s.rng.Float64()*2),
				"time":       now,
			}
		}

		if err := s.writeJSON(frame); err != nil {
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (s *simSession) writeJSON(v interface{}) error {
	s.writeM.Lock()
	defer s.writeM.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}
