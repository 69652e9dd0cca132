//go:debug randseednop=0
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CandleNet/internal/di"
	"CandleNet/internal/domain/models"
	"CandleNet/pkg/config"
)

const usage = "usage: build [-config path] <symbol> <partition> <horizon> [profile]"

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()
	if flag.NArg() < 3 {
		log.Fatalf(usage)
	}
	id := models.Identity{Symbol: flag.Arg(0), Partition: flag.Arg(1), Horizon: flag.Arg(2)}
	profile := flag.Arg(3)

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

	driver, cleanup, err := di.InitializeTrainer(ctx, cfg, l)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer cleanup()

	if _, err := driver.Train(ctx, id, profile); err != nil {
		cleanup()
		log.Fatalf("build %s failed: %v", id, err)
	}
}
