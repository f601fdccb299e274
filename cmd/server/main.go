package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"istr/internal/app"
	"istr/internal/platform/config"
	"istr/internal/platform/logger"
)

// main loads configuration, wires the service and serves until SIGINT or
// SIGTERM. The optional ISTR_CONFIG names a YAML or TOML file.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "istr-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("ISTR_CONFIG"))
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	return a.Serve(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}
