package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	xhttp "CandleNet/pkg/http"
	applogger "CandleNet/pkg/logger"
)

const (
	klinesPath        = "/api/v3/klines"
	defaultKlineLimit = 500
)

// BinanceCandleSource pages through the public klines endpoint.
type BinanceCandleSource struct {
	client *xhttp.Client
	limit  int
	l      *applogger.Logger
}

func NewBinanceCandleSource(client *xhttp.Client, limit int, l *applogger.Logger) *BinanceCandleSource {
	if limit <= 0 || limit > 1000 {
		limit = defaultKlineLimit
	}
	return &BinanceCandleSource{client: client, limit: limit, l: l}
}

// FetchCandles requests at most limit candles per call until to is reached.
func (b *BinanceCandleSource) FetchCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time) ([]models.Candle, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	step := tf.Step()
	page := time.Duration(b.limit) * step
	var out []models.Candle
	for start := from; start.Before(to); start = start.Add(page) {
		end := start.Add(page)
		if end.After(to) {
			end = to
		}
		q := url.Values{
			"symbol":    {symbol},
			"interval":  {string(tf)},
			"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
			// endTime is inclusive upstream.
			"endTime": {strconv.FormatInt(end.UnixMilli()-1, 10)},
			"limit":   {strconv.Itoa(b.limit)},
		}
		var raw [][]json.RawMessage
		if err := b.client.GetJSON(ctx, klinesPath, q, &raw); err != nil {
			return nil, fmt.Errorf("fetch %s %s klines: %w", symbol, tf, err)
		}
		for _, k := range raw {
			c, err := parseKline(symbol, k)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		b.l.Debug("klines page",
			applogger.String("symbol", symbol),
			applogger.String("start", start.Format(time.RFC3339)),
			applogger.Int("candles", len(raw)))
	}
	return out, nil
}

// parseKline reads [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(symbol string, k []json.RawMessage) (models.Candle, error) {
	if len(k) < 6 {
		return models.Candle{}, fmt.Errorf("kline has %d fields", len(k))
	}
	var openMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("kline open time: %w", err)
	}
	c := models.Candle{Bucket: time.UnixMilli(openMs).UTC(), Symbol: symbol}
	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		*dst = v
	}
	return c, nil
}
