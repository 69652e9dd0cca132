package network

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"CandleNet/internal/domain/models"
)

func TestStoreRoundTripRecurrent(t *testing.T) {
	p := smallProfile(VariantBiLSTM, []LayerSpec{
		{Units: 3, Recurrent: true, Bidirectional: true, Dropout: 0.2},
		{Units: 1},
	})
	net, err := NewFactory().New(p, []int{2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := net.Fit(context.Background(), [][]float64{{1, 2, 3, 4, 5, 6}}, []float64{0.5}); err != nil {
		t.Fatalf("fit: %v", err)
	}

	store := NewStore(t.TempDir())
	id := models.Identity{Symbol: "ETHUSDT", Partition: "strat1", Horizon: "8"}
	dir, err := store.Save(id, net, p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(dir) != "model" {
		t.Fatalf("unexpected model dir %s", dir)
	}

	loaded, meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Variant != VariantBiLSTM || meta.InputShape[0] != 2 || meta.InputShape[1] != 3 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	in := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	want, _ := net.Predict(in)
	got, err := loaded.Predict(in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got != want {
		t.Fatalf("expected %v after reload, got %v", want, got)
	}
}

func TestStoreRoundTripDense(t *testing.T) {
	p := Profile{
		Name:        "dense",
		Variant:     VariantDense,
		Layers:      []LayerSpec{{Units: 4, Activation: "relu"}, {Units: 1, Activation: "linear"}},
		Loss:        LossMSE,
		Optimizer:   OptimizerSpec{Name: "sgd", LearningRate: 0.01},
		Epochs:      3,
		Seed:        5,
		Flatten:     true,
		LabelPolicy: "filename",
	}
	net, err := NewFactory().New(p, []int{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x := [][]float64{{1, 2, 3, 4, 5}, {5, 4, 3, 2, 1}}
	if _, err := net.Fit(context.Background(), x, []float64{0.1, -0.1}); err != nil {
		t.Fatalf("fit: %v", err)
	}

	store := NewStore(t.TempDir())
	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m", Horizon: "8"}
	if _, err := store.Save(id, net, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !meta.Flatten {
		t.Fatalf("expected flatten recorded in meta")
	}
	want, _ := net.Predict(x[0])
	got, _ := loaded.Predict(x[0])
	if got != want {
		t.Fatalf("expected %v after reload, got %v", want, got)
	}
}

func TestStoreSaveReplacesOldModel(t *testing.T) {
	store := NewStore(t.TempDir())
	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m", Horizon: "4"}
	stale := filepath.Join(store.Dir(id), "stale.bin")
	if err := os.MkdirAll(store.Dir(id), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := smallProfile(VariantLSTM, []LayerSpec{{Units: 2, Recurrent: true}, {Units: 1}})
	net, err := NewRecurrent(p, []int{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(id, net, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected old model contents removed, stat err %v", err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, _, err := store.Load(models.Identity{Symbol: "X", Partition: "1h", Horizon: "1"})
	if !errors.Is(err, models.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}
