package main

import (
	"context"
	"flag"
	"log"

	"CandleNet/internal/di"
	"CandleNet/pkg/config"
	applogger "CandleNet/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	l.Info("starting server",
		applogger.String("env", cfg.Environment),
		applogger.String("models", cfg.Models.Root),
		applogger.Int("port", cfg.Server.Port))

	app, cleanup, err := di.InitializeApp(context.Background(), cfg, l)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if err := app.Run(context.Background()); err != nil {
		cleanup()
		log.Fatalf("app error: %v", err)
	}
}
