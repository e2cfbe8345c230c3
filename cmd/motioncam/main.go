package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"motioncam/internal/app"
	"motioncam/internal/config"
	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/orchestrator"
)

// exitRestart tells the supervisor to restart the device.
const exitRestart = 3

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	application := app.NewApp(cfg, log, app.DeviceHardware())
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Received shutdown signal: %s", sig)
		cancel()
	}()

	if err := application.Boot(ctx); err != nil {
		log.Error("Boot failed: %v", err)
		if model.IsFatal(err) {
			return exitRestart
		}
		return 1
	}

	err := application.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("Shutdown complete")
		return 0
	case errors.Is(err, orchestrator.ErrRestart):
		log.Error("Restart required: %v", err)
		return exitRestart
	default:
		log.Error("Main loop stopped: %v", err)
		return 1
	}
}
