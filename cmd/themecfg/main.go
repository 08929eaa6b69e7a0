package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/openfroyo/themecfg/cmd/themecfg/commands"
	"github.com/openfroyo/themecfg/pkg/telemetry"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	// Create context that cancels on interrupt signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		cancel()
		os.Exit(1)
	}
}

// setupLogging configures the global zerolog logger. LOG_LEVEL selects the
// level and LOG_FORMAT=json switches off the console writer.
func setupLogging() {
	cfg := telemetry.DefaultConfig().Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.Format = "json"
	}

	logger, err := telemetry.NewLogger(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to default logger")
		return
	}
	log.Logger = logger
}
