package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	domrepo "CandleNet/internal/domain/repository"
	xhttp "CandleNet/pkg/http"
	"CandleNet/pkg/logger"
)

// klineServer answers with one hourly kline per hour in [startTime, endTime].
func klineServer(t *testing.T, starts *[]int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		*starts = append(*starts, start)
		hour := time.Hour.Milliseconds()
		fmt.Fprint(w, "[")
		for ms := start; ms <= end; ms += hour {
			if ms != start {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `[%d,"100.5","110","90","%d.25","12.5",%d,"0",1,"0","0","0"]`, ms, ms/hour%1000, ms+hour-1)
		}
		fmt.Fprint(w, "]")
	}))
}

func TestBinanceCandleSourcePages(t *testing.T) {
	var starts []int64
	srv := klineServer(t, &starts)
	defer srv.Close()

	src := NewBinanceCandleSource(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)), 2, logger.Nop())
	from := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	to := from.Add(5 * time.Hour)
	got, err := src.FetchCandles(context.Background(), "BTCUSDT", domrepo.TF1h, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(starts) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(starts))
	}
	if starts[1] != from.Add(2*time.Hour).UnixMilli() {
		t.Fatalf("unexpected second page start %d", starts[1])
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 candles, got %d", len(got))
	}
	last := got[4]
	if !last.Bucket.Equal(from.Add(4*time.Hour)) || last.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected last candle %+v", last)
	}
	if last.Open != 100.5 || last.High != 110 || last.Low != 90 || last.Volume != 12.5 {
		t.Fatalf("unexpected prices %+v", last)
	}
}

func TestBinanceCandleSourceRejectsMalformedKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[[1710892800000,"1","2"]]`)
	}))
	defer srv.Close()

	src := NewBinanceCandleSource(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)), 0, logger.Nop())
	from := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	if _, err := src.FetchCandles(context.Background(), "BTCUSDT", domrepo.TF1h, from, from.Add(time.Hour)); err == nil {
		t.Fatal("expected error for short kline")
	}
}

func TestBinanceCandleSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	src := NewBinanceCandleSource(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)), 0, logger.Nop())
	from := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	if _, err := src.FetchCandles(context.Background(), "BTCUSDT", domrepo.TF1h, from, from.Add(time.Hour)); err == nil {
		t.Fatal("expected status error")
	}
}
