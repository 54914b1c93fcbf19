package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnrirwin/fieldreport/internal/app"
	"github.com/johnrirwin/fieldreport/internal/config"
	"github.com/johnrirwin/fieldreport/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		logging.New(logging.LevelError).Error("Failed to initialize application", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	logger := application.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	runErr := application.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	_ = application.Shutdown(shutdownCtx)

	if runErr != nil && runErr != context.Canceled {
		logger.Error("HTTP server error", logging.WithField("error", runErr.Error()))
		os.Exit(1)
	}
}
