package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordFileLoaded("15m")
	r.RecordFileLoaded("15m")
	r.RecordEpoch("dense", 0.25)
	r.RecordCache("hit")

	if got := testutil.ToFloat64(r.filesLoaded.WithLabelValues("15m")); got != 2 {
		t.Fatalf("expected 2 files loaded, got %v", got)
	}
	if got := testutil.ToFloat64(r.epochLoss.WithLabelValues("dense")); got != 0.25 {
		t.Fatalf("expected loss 0.25, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheResults.WithLabelValues("hit")); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
}
