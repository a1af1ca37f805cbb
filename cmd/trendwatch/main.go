package main

import (
	"context"
	"os"

	"trendwatch/internal/app"
	"trendwatch/internal/config"
	"trendwatch/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info")
		fallback.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped")
		os.Exit(1)
	}
}
