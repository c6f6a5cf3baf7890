package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"market-rotator/src/config"
	"market-rotator/src/feed"
	"market-rotator/src/interfaces"
	"market-rotator/src/logger"
	"market-rotator/src/models"
	"market-rotator/src/rotation"
	"market-rotator/src/server"
	"market-rotator/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Streaming feed client
	client := feed.NewClient(cfg.Feed, appLogger.Named("Feed"))
	if err := client.Connect(); err != nil {
		// Not fatal: the dashboard still rotates on whatever state exists,
		// and the Failed/Disconnected state is observable via /api/status.
		appLogger.Warning("Initial feed connect failed: %v", err)
	}

	// 3. Rotation orchestrator with session-aware weighting
	sessions := utils.NewSessionTracker(appLogger.Named("Sessions"))
	orch := rotation.NewOrchestrator(sessions, appLogger.Named("Orchestrator"))

	// 4. Dashboard push server
	var feedSurface interfaces.IMarketFeed = client
	srv := server.NewDashboardServer(cfg.MConfig, feedSurface, orch, appLogger.Named("Server"))
	var sink interfaces.IRotationSink = srv

	// 5. Build one scheduler per configured display group
	for _, group := range cfg.Groups {
		sched := orch.CreateScheduler(group.ID, group.Scheduler, func(groupID string, items []string) {
			sink.BroadcastRotation(models.MRotationUpdate{
				Group: groupID,
				Items: items,
			})
		})
		for _, item := range group.Items {
			sched.AddItem(item)
		}
	}

	// 6. Start server
	go func() {
		if err := sink.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 7. Start rotations
	for _, group := range cfg.Groups {
		orch.StartRotation(group.ID, 0)
	}

	appLogger.Info("market-rotator running: %d groups, feed %s", len(cfg.Groups), cfg.Feed.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	orch.Dispose()
	client.Disconnect()
	sink.Stop()
}
