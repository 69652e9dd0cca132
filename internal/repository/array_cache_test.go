package repository

import (
	"context"
	"testing"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	pkgcache "CandleNet/pkg/cache"
)

func sampleArrays() *domrepo.CachedArrays {
	return &domrepo.CachedArrays{
		Dataset: &models.Dataset{
			Identity: models.Identity{Symbol: "BTCUSDT", Partition: "strat1", Horizon: "8"},
			Labels:   []float32{0.013, -0.2},
			Features: [][]float32{{1, 2, 3, 4, 5, 6}, {0.5, 0.25, 0.125, 1e-6, -3, 7}},
			Shape:    []int{2, 3},
		},
		Fingerprint: "abc",
	}
}

func assertSameArrays(t *testing.T, want, got *domrepo.CachedArrays) {
	t.Helper()
	if got.Fingerprint != want.Fingerprint {
		t.Fatalf("fingerprint: expected %q, got %q", want.Fingerprint, got.Fingerprint)
	}
	w, g := want.Dataset, got.Dataset
	if g.Identity != w.Identity {
		t.Fatalf("identity: expected %v, got %v", w.Identity, g.Identity)
	}
	if len(g.Shape) != 2 || g.Shape[0] != 2 || g.Shape[1] != 3 {
		t.Fatalf("unexpected shape %v", g.Shape)
	}
	if g.Len() != w.Len() {
		t.Fatalf("expected %d samples, got %d", w.Len(), g.Len())
	}
	for i := range w.Labels {
		if g.Labels[i] != w.Labels[i] {
			t.Fatalf("label %d: expected %v, got %v", i, w.Labels[i], g.Labels[i])
		}
		for j := range w.Features[i] {
			if g.Features[i][j] != w.Features[i][j] {
				t.Fatalf("feature %d/%d: expected %v, got %v", i, j, w.Features[i][j], g.Features[i][j])
			}
		}
	}
}

func TestFileArrayCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFileArrayCache(t.TempDir())
	in := sampleArrays()

	if _, ok, err := c.Load(ctx, in.Dataset.Identity); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Store(ctx, in); err != nil {
		t.Fatalf("store: %v", err)
	}
	out, ok, err := c.Load(ctx, in.Dataset.Identity)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	assertSameArrays(t, in, out)

	other := in.Dataset.Identity
	other.Horizon = "4"
	if _, ok, _ := c.Load(ctx, other); ok {
		t.Fatalf("expected a different identity to miss")
	}

	if err := c.Invalidate(ctx, in.Dataset.Identity); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Load(ctx, in.Dataset.Identity); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestKVArrayCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewKVArrayCache(pkgcache.NewMemoryCache(), 0)
	in := sampleArrays()

	if err := c.Store(ctx, in); err != nil {
		t.Fatalf("store: %v", err)
	}
	out, ok, err := c.Load(ctx, in.Dataset.Identity)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	assertSameArrays(t, in, out)

	if err := c.Invalidate(ctx, in.Dataset.Identity); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Load(ctx, in.Dataset.Identity); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
