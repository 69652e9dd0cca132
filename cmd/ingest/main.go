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
	"CandleNet/pkg/config"
)

const usage = "usage: ingest [-config path] <symbol> <timeframe>"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()
	if flag.NArg() < 2 {
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

	ingester, cleanup, err := di.InitializeIngester(ctx, cfg, l)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer cleanup()

	res, err := ingester.Ingest(ctx, flag.Arg(0), domrepo.Timeframe(flag.Arg(1)))
	if err != nil {
		cleanup()
		log.Fatalf("ingest %s failed: %v", flag.Arg(0), err)
	}
	log.Printf("ingest %s: fetched=%d inserted=%d from=%s to=%s",
		flag.Arg(0), res.Fetched, res.Inserted, res.From.Format("2006-01-02 15:04"), res.To.Format("2006-01-02 15:04"))
}
