package server

import (
	"fmt"
	"strings"
	"sync"

	"market-rotator/src/interfaces"
	"market-rotator/src/logger"
	"market-rotator/src/models"
	"market-rotator/src/rotation"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
//
// The produced interface toward the rendering collaborator: REST endpoints
// for feed/scheduler observability plus a websocket hub pushing each rotation
// cycle to connected dashboard clients.
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	feed interfaces.IMarketFeed
	orch *rotation.Orchestrator

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MRotationUpdate
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Last rotation per group
	latest     map[string]models.MRotationUpdate
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, feed interfaces.IMarketFeed, orch *rotation.Orchestrator, log *logger.Logger) *DashboardServer {
	// Set Gin mode
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		feed:    feed,
		orch:    orch,
		clients: make(map[*Client]struct{}),
		// Buffered channel so rotation timers never block on slow clients
		broadcast:  make(chan models.MRotationUpdate, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latest:     make(map[string]models.MRotationUpdate),
	}

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/status", s.getStatus)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/rotation/:group", s.getRotation)
	s.engine.GET("/api/price/:symbol", s.getPrice)
	s.engine.GET("/api/ohlcv/:symbol", s.getOHLCV)

	// Signal input from the external detection collaborator
	s.engine.POST("/api/signal", s.postSignal)
	s.engine.DELETE("/api/signal/:symbol", s.deleteSignal)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting dashboard server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop shuts the hub down. Idempotent.
func (s *DashboardServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": connections,
		"groups":      s.orch.GroupIDs(),
		"feed_state":  s.feed.Status().State.String(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStatus(c *gin.Context) {
	c.JSON(200, s.feed.Status())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStats(c *gin.Context) {
	c.JSON(200, s.orch.Stats())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getRotation(c *gin.Context) {
	group := c.Param("group")

	s.stateMutex.RLock()
	update, ok := s.latest[group]
	s.stateMutex.RUnlock()

	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("no rotation recorded for group '%s'", group)})
		return
	}
	c.JSON(200, update)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getPrice(c *gin.Context) {
	symbol := c.Param("symbol")

	update, ok := s.feed.LatestPrice(symbol)
	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("no price for symbol '%s'", symbol)})
		return
	}
	c.JSON(200, update)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getOHLCV(c *gin.Context) {
	symbol := c.Param("symbol")
	tf := models.Timeframe(c.DefaultQuery("timeframe", string(models.Timeframe1m)))

	if _, ok := models.TimeframeMillis[tf]; !ok {
		c.JSON(400, gin.H{"error": fmt.Sprintf("unknown timeframe '%s'", tf)})
		return
	}

	limit := 0
	if _, err := fmt.Sscanf(c.DefaultQuery("limit", "0"), "%d", &limit); err != nil {
		limit = 0
	}

	c.JSON(200, s.feed.HistoricalOHLCV(symbol, tf, limit))
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postSignal(c *gin.Context) {
	var sig models.MMarketSignal
	if err := c.ShouldBindJSON(&sig); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if sig.Symbol == "" || sig.Priority < 0 || sig.Priority > 10 || sig.DurationMs <= 0 {
		c.JSON(400, gin.H{"error": "signal requires symbol, priority 0..10 and a positive duration"})
		return
	}

	s.orch.BroadcastSignal(sig)
	c.JSON(202, gin.H{"status": "accepted"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) deleteSignal(c *gin.Context) {
	symbol := c.Param("symbol")
	for _, groupID := range s.orch.GroupIDs() {
		if sched, ok := s.orch.Scheduler(groupID); ok {
			sched.ClearSignal(symbol)
		}
	}
	c.JSON(200, gin.H{"status": "cleared"})
}
