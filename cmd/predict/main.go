package main

import (
	"context"
	"flag"
	"log"
	"time"

	"CandleNet/internal/di"
	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/pkg/config"
)

const usage = `usage: predict [-config path] <symbol> <partition> <horizon> <sample.csv>
       predict [-config path] -now [-ago span] <symbol> <timeframe>`

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	now := flag.Bool("now", false, "build the current interval frame and predict from it")
	ago := flag.String("ago", "", "with -now, use the frame this span before now, e.g. 4h")
	flag.Parse()
	if (*now && flag.NArg() < 2) || (!*now && flag.NArg() < 4) {
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
	ctx := context.Background()

	if *now {
		var offset time.Duration
		if *ago != "" {
			if offset, err = domrepo.ParseSpan(*ago); err != nil {
				log.Fatalf("bad -ago: %v", err)
			}
		}
		live, cleanup, err := di.InitializeLivePredictor(ctx, cfg, l)
		if err != nil {
			log.Fatalf("init failed: %v", err)
		}
		defer cleanup()
		res, err := live.PredictAgo(ctx, flag.Arg(0), domrepo.Timeframe(flag.Arg(1)), offset)
		if err != nil {
			cleanup()
			log.Fatalf("predict %s %s failed: %v", flag.Arg(0), flag.Arg(1), err)
		}
		log.Printf("at %s the price will be %g", res.TargetAt.Format(time.RFC3339), res.Price)
		return
	}

	id := models.Identity{Symbol: flag.Arg(0), Partition: flag.Arg(1), Horizon: flag.Arg(2)}
	predictor, cleanup, err := di.InitializePredictor(ctx, cfg, l)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer cleanup()

	if _, err := predictor.Predict(ctx, id, flag.Arg(3)); err != nil {
		cleanup()
		log.Fatalf("predict %s failed: %v", id, err)
	}
}
