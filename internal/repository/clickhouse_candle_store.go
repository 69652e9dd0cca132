package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	pkgch "CandleNet/pkg/clickhouse"
	applogger "CandleNet/pkg/logger"
)

// CHCandleStore implements CandleStore backed by one ClickHouse table keyed by
// (symbol, interval, bucket).
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the DDL for the candle table.
func (s *CHCandleStore) Schema() string {
	return fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol   LowCardinality(String),
            interval LowCardinality(String),
            bucket   DateTime64(3, 'UTC'),
            open     Float64,
            high     Float64,
            low      Float64,
            close    Float64,
            volume   Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, interval, bucket)
    `, s.table)
}

// Init creates the candle table when missing.
func (s *CHCandleStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.Schema()); err != nil {
		return fmt.Errorf("init candle schema: %w", err)
	}
	return nil
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND interval = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(tf), from, to)
	if err != nil {
		s.l.Error("clickhouse get_candles query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// PriceAt returns the open of the first candle at or after at.
func (s *CHCandleStore) PriceAt(ctx context.Context, symbol string, at time.Time, tf domrepo.Timeframe) (float64, error) {
	const qtpl = `
        SELECT open
        FROM %s FINAL
        WHERE symbol = ? AND interval = ? AND bucket >= ?
        ORDER BY bucket ASC
        LIMIT 1
    `
	var price float64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(tf), at).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("no %s candle for %s at %s", tf, symbol, at.Format(time.RFC3339))
		}
		return 0, fmt.Errorf("price at: %w", err)
	}
	return price, nil
}

// InsertCandles writes candles in one batch. ReplacingMergeTree keeps the
// latest row per bucket, so re-inserting a range is safe.
func (s *CHCandleStore) InsertCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candle batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, interval, bucket, open, high, low, close, volume)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare candle batch: %w", err)
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, string(tf), c.Bucket.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append candle: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse insert_candles failed",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("send candle batch: %w", err)
	}
	s.l.Debug("clickhouse insert_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(candles)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// LastBucket returns the newest stored open time of symbol at tf.
func (s *CHCandleStore) LastBucket(ctx context.Context, symbol string, tf domrepo.Timeframe) (time.Time, bool, error) {
	const qtpl = `
        SELECT count(), max(bucket)
        FROM %s
        WHERE symbol = ? AND interval = ?
    `
	var (
		n    uint64
		last time.Time
	)
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(tf)).Scan(&n, &last); err != nil {
		return time.Time{}, false, fmt.Errorf("last bucket: %w", err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return last.UTC(), true, nil
}
