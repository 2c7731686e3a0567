package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/gmail-spam-detector/internal/conversation"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/di"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	service ports.Service,
	aiClient *conversation.Client,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	// Start the watcher
	if err := service.Start(); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := service.Stop(); err != nil {
		logger.Error("Failed to stop watcher", zap.Error(err))
	}

	// Close any resources that need closing
	if err := aiClient.Close(); err != nil {
		logger.Error("Failed to close AI client", zap.Error(err))
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
