package repository

import (
	"context"
	"time"

	"CandleNet/internal/domain/models"
)

// CandleStore provides read-only access to candles for feature export.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	PriceAt(ctx context.Context, symbol string, at time.Time, tf Timeframe) (float64, error)
}

// CandleSource fetches candles with open times in [from, to) from an exchange.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]models.Candle, error)
}

// CandleSink persists fetched candles.
type CandleSink interface {
	InsertCandles(ctx context.Context, symbol string, tf Timeframe, candles []models.Candle) error
	// LastBucket is the newest stored open time; ok is false when none is stored.
	LastBucket(ctx context.Context, symbol string, tf Timeframe) (last time.Time, ok bool, err error)
}
