package network

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"
)

func smallProfile(variant string, layers []LayerSpec) Profile {
	return Profile{
		Name:        variant,
		Variant:     variant,
		Layers:      layers,
		Loss:        LossMSE,
		Optimizer:   OptimizerSpec{Name: "adam", LearningRate: 0.01},
		Epochs:      1,
		BatchSize:   4,
		Seed:        7,
		LabelPolicy: "last_row",
	}
}

func sampleSteps(rng *rand.Rand, T, W int) [][]float64 {
	xs := make([][]float64, T)
	for t := range xs {
		xs[t] = make([]float64, W)
		for j := range xs[t] {
			xs[t][j] = rng.Float64()*2 - 1
		}
	}
	return xs
}

func TestRecurrentFitReducesLoss(t *testing.T) {
	p := smallProfile(VariantLSTM, []LayerSpec{
		{Units: 8, Recurrent: true},
		{Units: 1},
	})
	p.Epochs = 60
	p.Loss = LossMAE

	var first, last float64
	r, err := NewRecurrent(p, []int{3, 2}, WithEpochHook(func(epoch int, loss float64) {
		if epoch == 1 {
			first = loss
		}
		last = loss
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(11))
	x := make([][]float64, 32)
	y := make([]float64, 32)
	for i := range x {
		x[i] = make([]float64, 6)
		sum := 0.0
		for j := range x[i] {
			x[i][j] = rng.Float64()
			sum += x[i][j]
		}
		y[i] = sum / 6
	}

	final, err := r.Fit(context.Background(), x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final != last {
		t.Fatalf("Fit returned %v, last epoch reported %v", final, last)
	}
	if !(last < first) {
		t.Fatalf("expected loss to drop, first %v last %v", first, last)
	}
}

func TestRecurrentPredictRejectsWrongSize(t *testing.T) {
	r, err := NewRecurrent(smallProfile(VariantLSTM, []LayerSpec{{Units: 2, Recurrent: true}, {Units: 1}}), []int{3, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Predict(make([]float64, 5)); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestRecurrentFitHonoursContext(t *testing.T) {
	r, err := NewRecurrent(smallProfile(VariantLSTM, []LayerSpec{{Units: 2, Recurrent: true}, {Units: 1}}), []int{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Fit(ctx, [][]float64{{1}}, []float64{1}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRecurrentBidirectionalFitAndPredict(t *testing.T) {
	p := smallProfile(VariantBiLSTM, []LayerSpec{
		{Units: 3, Recurrent: true, Bidirectional: true, Dropout: 0.2},
		{Units: 2, Activation: "tanh"},
		{Units: 1},
	})
	p.Epochs = 3
	r, err := NewRecurrent(p, []int{4, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(3))
	x := make([][]float64, 8)
	y := make([]float64, 8)
	for i := range x {
		for _, step := range sampleSteps(rng, 4, 2) {
			x[i] = append(x[i], step...)
		}
		y[i] = x[i][0]
	}
	if _, err := r.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	first, err := r.Predict(x[0])
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	second, _ := r.Predict(x[0])
	if math.IsNaN(first) || first != second {
		t.Fatalf("expected a stable prediction with dropout off, got %v then %v", first, second)
	}
}

func TestUnmarshalRecurrentRejectsTruncatedParams(t *testing.T) {
	r, err := NewRecurrent(smallProfile(VariantLSTM, []LayerSpec{{Units: 2, Recurrent: true}, {Units: 1}}), []int{3, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap recurrentSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap.Params[0] = snap.Params[0][1:]
	broken, _ := json.Marshal(snap)
	if _, err := UnmarshalRecurrent(broken); err == nil {
		t.Fatalf("expected parameter size error")
	}
	snap.Params = snap.Params[1:]
	broken, _ = json.Marshal(snap)
	if _, err := UnmarshalRecurrent(broken); err == nil {
		t.Fatalf("expected parameter count error")
	}
}
