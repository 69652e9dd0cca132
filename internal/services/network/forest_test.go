package network

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"CandleNet/internal/domain/models"
)

func forestProfile(trees, depth int) Profile {
	return Profile{
		Name:        VariantForest,
		Variant:     VariantForest,
		Trees:       trees,
		MaxDepth:    depth,
		Seed:        5,
		Flatten:     true,
		LabelPolicy: "filename",
	}
}

// separable returns samples whose label sign follows the first feature.
func separable(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = []float64{rng.Float64()*2 - 1, rng.Float64(), rng.Float64()}
		y[i] = x[i][0] * 0.05
	}
	return x, y
}

func TestDecisionTreeTrainPredict(t *testing.T) {
	x := [][]float64{{0.1, 0.2}, {0.2, 0.1}, {0.9, 0.8}, {0.8, 0.9}}
	y := []float64{-0.02, -0.04, 0.03, 0.05}

	f, err := NewForest(forestProfile(1, 2), []int{2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	class, share, err := f.PredictClass([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if class != ClassDown || share != 1 {
		t.Fatalf("expected down with full vote, got %d %.2f", class, share)
	}
	v, _ := f.Predict([]float64{0.85, 0.85})
	if math.Abs(v-0.04) > 1e-12 {
		t.Fatalf("expected mean leaf value 0.04, got %v", v)
	}
}

func TestForestDirectionalAccuracy(t *testing.T) {
	x, y := separable(200, 3)
	f, err := NewForest(forestProfile(25, 6), []int{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	tx, ty := separable(100, 4)
	ev, err := Evaluate(f, tx, ty)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Samples != 100 || ev.Accuracy < 0.75 {
		t.Fatalf("expected accuracy above 0.75, got %+v", ev)
	}
}

func TestForestRejectsWrongSize(t *testing.T) {
	f, _ := NewForest(forestProfile(2, 2), []int{3})
	if _, err := f.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error before training")
	}
	if _, err := f.Fit(context.Background(), [][]float64{{1, 2}}, []float64{0.1}); err == nil {
		t.Fatal("expected size error")
	}
}

func TestStoreRoundTripForest(t *testing.T) {
	p := forestProfile(3, 3)
	net, err := NewFactory().New(p, []int{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x, y := separable(40, 9)
	if _, err := net.Fit(context.Background(), x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	store := NewStore(t.TempDir())
	id := models.Identity{Symbol: "BTCUSDT", Partition: "strat1", Horizon: "8"}
	if _, err := store.Save(id, net, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Variant != VariantForest {
		t.Fatalf("unexpected variant %s", meta.Variant)
	}
	for _, row := range x[:5] {
		want, _ := net.Predict(row)
		got, err := loaded.Predict(row)
		if err != nil || got != want {
			t.Fatalf("expected %v, got %v (%v)", want, got, err)
		}
	}
}

func TestUnmarshalForestRejectsEmpty(t *testing.T) {
	if _, err := UnmarshalForest([]byte(`{"input_shape":[3],"trees":[]}`)); err == nil {
		t.Fatal("expected error for forest without trees")
	}
}

func TestEvaluateCountsDirection(t *testing.T) {
	f := &Forest{inputs: 1, trees: [][]TreeNode{{{FeatureIdx: -1, IsLeaf: true, Value: 0.5, ClassLabel: ClassUp}}}}
	ev, err := Evaluate(f, [][]float64{{0}, {1}, {2}, {3}}, []float64{1, 0.2, -0.1, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Accuracy != 0.75 || math.Abs(ev.MSE-0.175) > 1e-12 {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
}
