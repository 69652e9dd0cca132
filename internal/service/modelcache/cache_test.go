package modelcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"CandleNet/internal/domain/models"
	"CandleNet/internal/domain/service"
	"CandleNet/internal/services/network"
)

type stubNet struct{}

func (stubNet) Fit(context.Context, [][]float64, []float64) (float64, error) { return 0, nil }
func (stubNet) Predict([]float64) (float64, error)                           { return 1, nil }
func (stubNet) InputShape() []int                                            { return []int{1} }
func (stubNet) Variant() string                                              { return network.VariantDense }
func (stubNet) MarshalJSON() ([]byte, error)                                 { return []byte("{}"), nil }

type countingSource struct {
	root  string
	mu    sync.Mutex
	loads map[models.Identity]int
}

func (s *countingSource) Load(id models.Identity) (service.Network, *network.Meta, error) {
	s.mu.Lock()
	s.loads[id]++
	s.mu.Unlock()
	dir := filepath.Join(s.root, id.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	return stubNet{}, &network.Meta{Identity: id, Dir: dir}, nil
}

func (s *countingSource) count(id models.Identity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[id]
}

func newSource(t *testing.T) *countingSource {
	return &countingSource{root: t.TempDir(), loads: make(map[models.Identity]int)}
}

func TestCacheHit(t *testing.T) {
	src := newSource(t)
	c, err := New(src, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m", Horizon: "4"}
	for i := 0; i < 3; i++ {
		net, _, err := c.Load(id)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if v, _ := net.Predict([]float64{0}); v != 1 {
			t.Fatalf("unexpected prediction %v", v)
		}
	}
	if n := src.count(id); n != 1 {
		t.Fatalf("expected one source load, got %d", n)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	src := newSource(t)
	c, err := New(src, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	a := models.Identity{Symbol: "A", Partition: "1h"}
	b := models.Identity{Symbol: "B", Partition: "1h"}
	for _, id := range []models.Identity{a, b, a} {
		if _, _, err := c.Load(id); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached model, got %d", c.Len())
	}
	if n := src.count(a); n != 2 {
		t.Fatalf("expected a to be reloaded after eviction, loads=%d", n)
	}
}

func TestCacheEvictsOnFileChange(t *testing.T) {
	src := newSource(t)
	c, err := New(src, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	id := models.Identity{Symbol: "BTCUSDT", Partition: "15m"}
	_, meta, err := c.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := os.WriteFile(filepath.Join(meta.Dir, "network.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("model was not evicted after its file changed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, _, err := c.Load(id); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := src.count(id); n != 2 {
		t.Fatalf("expected a reload from source, loads=%d", n)
	}
}
