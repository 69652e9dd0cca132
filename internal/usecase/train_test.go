package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/dataset"
	"CandleNet/internal/services/network"
	"CandleNet/pkg/logger"
	"CandleNet/pkg/metrics"
)

func denseProfile() network.Profile {
	return network.Profile{
		Name:        "dense",
		Variant:     network.VariantDense,
		Layers:      []network.LayerSpec{{Units: 4, Activation: "relu"}, {Units: 1, Activation: "linear"}},
		Loss:        network.LossMSE,
		Optimizer:   network.OptimizerSpec{Name: "sgd", LearningRate: 0.01},
		Epochs:      2,
		BatchSize:   2,
		Seed:        7,
		Flatten:     true,
		LabelPolicy: dataset.PolicyFilename,
	}
}

func staticProfiles(p network.Profile) ProfileResolver {
	return func(name string) (network.Profile, error) {
		if name != "" && name != p.Name {
			return network.Profile{}, models.ErrUnknownProfile
		}
		return p, nil
	}
}

type recordingRuns struct {
	saved []*models.TrainingRun
}

func (r *recordingRuns) Init(context.Context) error { return nil }
func (r *recordingRuns) Save(_ context.Context, run *models.TrainingRun) error {
	r.saved = append(r.saved, run)
	return nil
}
func (r *recordingRuns) List(context.Context, string, int) ([]*models.TrainingRun, error) {
	return r.saved, nil
}
func (r *recordingRuns) Close() error { return nil }

func newDriver(t *testing.T, root string, runs *recordingRuns) (*TrainingDriver, *network.Store) {
	t.Helper()
	loader := dataset.NewLoader(root, "csv/{symbol}/{partition}/{split}", "train")
	store := network.NewStore(filepath.Join(root, "models"))
	var rs domrepo.RunStore
	if runs != nil {
		rs = runs
	}
	d := NewTrainingDriver(loader, network.NewFactory(), store, rs, metrics.Nop{}, staticProfiles(denseProfile()), logger.Nop())
	return d, store
}

func writeSample(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTrainEmptyDataset(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "csv", "BTCUSDT", "15m", "train"), 0o755); err != nil {
		t.Fatal(err)
	}
	d, store := newDriver(t, root, nil)

	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m"}
	_, err := d.Train(context.Background(), id, "")
	if !errors.Is(err, models.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	if _, err := os.Stat(store.Dir(id)); !os.IsNotExist(err) {
		t.Fatalf("no model should be written, stat err=%v", err)
	}
}

func TestTrainUnknownProfile(t *testing.T) {
	d, _ := newDriver(t, t.TempDir(), nil)
	_, err := d.Train(context.Background(), models.Identity{Symbol: "BTCUSDT", Partition: "15m"}, "nope")
	if !errors.Is(err, models.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestTrainSavesModelAndRun(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "csv", "BTCUSDT", "15m", "train")
	writeSample(t, dir, "1,0.25.csv", "1,2,3\n4,5\n")
	writeSample(t, dir, "2,0.75.csv", "2,3,4\n5,6\n")
	writeSample(t, dir, "3,-0.5.csv", "0,1,0\n1,0\n")

	runs := &recordingRuns{}
	d, store := newDriver(t, root, runs)
	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m"}

	run, err := d.Train(context.Background(), id, "dense")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Samples != 3 || run.Variant != network.VariantDense {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.ModelPath != store.Dir(id) {
		t.Fatalf("model path: got %q want %q", run.ModelPath, store.Dir(id))
	}
	if len(runs.saved) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs.saved))
	}

	net, meta, err := store.Load(id)
	if err != nil {
		t.Fatalf("load saved model: %v", err)
	}
	if got := net.InputShape(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("input shape: got %v", got)
	}
	if !meta.Flatten || meta.Profile != "dense" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestTrainForestScoresEvaluationSplit(t *testing.T) {
	root := t.TempDir()
	train := filepath.Join(root, "csv", "BTCUSDT", "strat1", "train")
	writeSample(t, train, "1,0.5.csv", "9,1\n")
	writeSample(t, train, "2,0.25.csv", "8,2\n")
	writeSample(t, train, "3,-0.5.csv", "1,1\n")
	writeSample(t, train, "4,-0.25.csv", "2,2\n")
	test := filepath.Join(root, "csv", "BTCUSDT", "strat1", "test")
	writeSample(t, test, "5,0.1.csv", "7,1\n")
	writeSample(t, test, "6,-0.1.csv", "3,2\n")

	p := network.Profile{
		Name:        "forest",
		Variant:     network.VariantForest,
		Trees:       1,
		MaxDepth:    3,
		Seed:        3,
		Flatten:     true,
		LabelPolicy: dataset.PolicyFilename,
	}
	loader := dataset.NewLoader(root, "csv/{symbol}/{partition}/{split}", "train")
	eval := dataset.NewLoader(root, "csv/{symbol}/{partition}/{split}", "test")
	runs := &recordingRuns{}
	store := network.NewStore(filepath.Join(root, "models"))
	d := NewTrainingDriver(loader, network.NewFactory(), store, runs, metrics.Nop{}, staticProfiles(p), logger.Nop()).
		WithEvaluation(eval)

	run, err := d.Train(context.Background(), models.Identity{Symbol: "BTCUSDT", Partition: "strat1"}, "forest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Variant != network.VariantForest || run.TestSamples != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Accuracy != 1 {
		t.Fatalf("expected both directions right, got %v", run.Accuracy)
	}
	if len(runs.saved) != 1 || runs.saved[0].Accuracy != 1 {
		t.Fatalf("evaluation not recorded: %+v", runs.saved)
	}
}

func TestTrainSkipsMissingEvaluationSplit(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "csv", "BTCUSDT", "15m", "train")
	writeSample(t, dir, "1,0.25.csv", "1,2,3\n4,5\n")
	writeSample(t, dir, "2,-0.5.csv", "0,1,0\n1,0\n")

	d, _ := newDriver(t, root, nil)
	d.WithEvaluation(dataset.NewLoader(root, "csv/{symbol}/{partition}/{split}", "test"))
	run, err := d.Train(context.Background(), models.Identity{Symbol: "BTCUSDT", Partition: "15m"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.TestSamples != 0 {
		t.Fatalf("expected no evaluation, got %+v", run)
	}
}
