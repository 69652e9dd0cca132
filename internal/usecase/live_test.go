package usecase

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/network"
	"CandleNet/pkg/logger"
	"CandleNet/pkg/metrics"
)

func TestPredictNowWritesSampleAndRunsModel(t *testing.T) {
	root := t.TempDir()
	e := newTestExporter(root, synthCandles{})
	net := &constNet{shape: []int{4 * 5}, out: 0.5}
	pub := &recordingPublisher{}
	p := NewPredictor(fixedModels{net: net, meta: &network.Meta{Flatten: true}}, pub,
		metrics.Nop{}, logger.Nop(), filepath.Join(root, "prediction"), nil)

	live := NewLivePredictor(e, p, logger.Nop())
	live.now = func() time.Time { return time.Date(2024, 3, 20, 10, 20, 0, 0, time.UTC) }

	got, err := live.PredictNow(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	if !got.FrameAt.Equal(at) || !got.TargetAt.Equal(at.Add(2*time.Hour)) {
		t.Fatalf("unexpected times: frame %v target %v", got.FrameAt, got.TargetAt)
	}
	f, err := e.frame(context.Background(), "BTCUSDT", domrepo.TF1h, at, 5)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if want := f.close + 0.5*f.peak; math.Abs(got.Price-want) > 1e-9 {
		t.Fatalf("price: got %v want %v", got.Price, want)
	}

	if got.Sample != filepath.Join(root, "csv", "predict", "predict.csv") {
		t.Fatalf("unexpected sample path %s", got.Sample)
	}
	body, err := os.ReadFile(got.Sample)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(body)), "\n"); len(lines) != 4 {
		t.Fatalf("expected 4 feature rows without a label, got %d", len(lines))
	}
	if len(net.seen) != 20 {
		t.Fatalf("model saw %d values", len(net.seen))
	}
	if len(pub.got) != 1 || pub.got[0].Identity.Key() != "BTCUSDT/1h/2" {
		t.Fatalf("expected one prediction for BTCUSDT/1h/2, got %+v", pub.got)
	}
}

func TestPredictAgoRejectsFutureOffset(t *testing.T) {
	e := newTestExporter(t.TempDir(), synthCandles{})
	p := NewPredictor(fixedModels{}, nil, metrics.Nop{}, logger.Nop(), "", nil)
	live := NewLivePredictor(e, p, logger.Nop())
	if _, err := live.PredictAgo(context.Background(), "BTCUSDT", domrepo.TF1h, -time.Hour); err == nil {
		t.Fatal("expected error for negative offset")
	}
}
