package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/pkg/logger"
	"CandleNet/pkg/metrics"
)

type rangeSource struct {
	from, to time.Time
	calls    int
}

func (r *rangeSource) FetchCandles(_ context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time) ([]models.Candle, error) {
	r.calls++
	r.from, r.to = from, to
	var out []models.Candle
	for t := from; t.Before(to); t = t.Add(tf.Step()) {
		c := synth(t)
		c.Symbol = symbol
		out = append(out, c)
	}
	return out, nil
}

type memSink struct {
	batches [][]models.Candle
	last    time.Time
	failOn  int
}

func (m *memSink) InsertCandles(_ context.Context, _ string, _ domrepo.Timeframe, cs []models.Candle) error {
	if m.failOn > 0 && len(m.batches)+1 == m.failOn {
		return errors.New("insert failed")
	}
	m.batches = append(m.batches, cs)
	return nil
}

func (m *memSink) LastBucket(context.Context, string, domrepo.Timeframe) (time.Time, bool, error) {
	return m.last, !m.last.IsZero(), nil
}

var ingestNow = time.Date(2024, 3, 20, 10, 20, 0, 0, time.UTC)

func newTestIngester(src domrepo.CandleSource, sink domrepo.CandleSink) *Ingester {
	in := NewIngester(src, sink, 24*time.Hour, 10, metrics.Nop{}, logger.Nop())
	in.now = func() time.Time { return ingestNow }
	return in
}

func TestIngestFillsHistoryInBatches(t *testing.T) {
	src, sink := &rangeSource{}, &memSink{}
	res, err := newTestIngester(src, sink).Ingest(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFrom := time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 3, 20, 11, 0, 0, 0, time.UTC)
	if !src.from.Equal(wantFrom) || !src.to.Equal(wantTo) {
		t.Fatalf("unexpected range %v..%v", src.from, src.to)
	}
	if res.Fetched != 25 || res.Inserted != 25 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sink.batches) != 3 || len(sink.batches[2]) != 5 {
		t.Fatalf("expected batches of 10, 10, 5, got %d", len(sink.batches))
	}
}

func TestIngestResumesFromLastBucket(t *testing.T) {
	last := time.Date(2024, 3, 20, 7, 0, 0, 0, time.UTC)
	src, sink := &rangeSource{}, &memSink{last: last}
	res, err := newTestIngester(src, sink).Ingest(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.from.Equal(last) || res.Inserted != 4 {
		t.Fatalf("expected refetch from %v with 4 candles, got %v and %+v", last, src.from, res)
	}
}

func TestIngestUpToDate(t *testing.T) {
	src := &rangeSource{}
	sink := &memSink{last: time.Date(2024, 3, 20, 11, 0, 0, 0, time.UTC)}
	res, err := newTestIngester(src, sink).Ingest(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 0 || res.Inserted != 0 {
		t.Fatalf("expected no fetch, got %d calls and %+v", src.calls, res)
	}
}

func TestIngestStopsOnInsertError(t *testing.T) {
	sink := &memSink{failOn: 2}
	res, err := newTestIngester(&rangeSource{}, sink).Ingest(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err == nil {
		t.Fatal("expected insert error")
	}
	if res.Inserted != 10 {
		t.Fatalf("expected the first batch counted, got %+v", res)
	}
}

func TestIngestRejectsTimeframe(t *testing.T) {
	if _, err := newTestIngester(&rangeSource{}, &memSink{}).Ingest(context.Background(), "BTCUSDT", "2h"); err == nil {
		t.Fatal("expected error for unsupported timeframe")
	}
}
