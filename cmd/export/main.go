package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CandleNet/internal/di"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/usecase"
	"CandleNet/pkg/config"
)

const usage = "usage: export [-config path] <symbol> [strat1|interval] [timeframe]"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatalf(usage)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, cleanup, err := di.InitializeExporter(ctx, cfg, l)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer cleanup()

	var res *usecase.ExportResult
	if flag.Arg(1) == usecase.StrategyInterval {
		res, err = exporter.ExportInterval(ctx, flag.Arg(0), domrepo.Timeframe(flag.Arg(2)))
	} else {
		res, err = exporter.Export(ctx, flag.Arg(0), flag.Arg(1))
	}
	if err != nil {
		cleanup()
		log.Fatalf("export %s failed: %v", flag.Arg(0), err)
	}
	log.Printf("export %s: train=%d test=%d skipped=%d", flag.Arg(0), res.Train, res.Test, res.Skipped)
}
