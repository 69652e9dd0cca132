package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"CandleNet/internal/domain/models"
)

// SQLiteRunStore keeps training history in a local SQLite file.
type SQLiteRunStore struct {
	db *sql.DB
}

// NewSQLiteRunStore opens (creating if needed) the database at path.
func NewSQLiteRunStore(path string) (*SQLiteRunStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteRunStore{db: db}, nil
}

func (s *SQLiteRunStore) Init(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS training_runs (
            id          TEXT PRIMARY KEY,
            symbol      TEXT NOT NULL,
            partition   TEXT NOT NULL,
            horizon     TEXT NOT NULL,
            profile     TEXT NOT NULL,
            variant     TEXT NOT NULL,
            samples     INTEGER NOT NULL,
            epochs      INTEGER NOT NULL,
            final_loss  REAL NOT NULL,
            test_samples INTEGER NOT NULL DEFAULT 0,
            test_loss   REAL NOT NULL DEFAULT 0,
            accuracy    REAL NOT NULL DEFAULT 0,
            duration_ms INTEGER NOT NULL,
            model_path  TEXT NOT NULL,
            created_at  INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_training_runs_symbol ON training_runs(symbol, created_at);
    `
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	return nil
}

// Save inserts run, assigning an ID and timestamp when missing.
func (s *SQLiteRunStore) Save(ctx context.Context, run *models.TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_runs
            (id, symbol, partition, horizon, profile, variant, samples, epochs, final_loss,
             test_samples, test_loss, accuracy, duration_ms, model_path, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Identity.Symbol,
		run.Identity.Partition,
		run.Identity.Horizon,
		run.Profile,
		run.Variant,
		run.Samples,
		run.Epochs,
		run.FinalLoss,
		run.TestSamples,
		run.TestLoss,
		run.Accuracy,
		run.Duration.Milliseconds(),
		run.ModelPath,
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// List returns the newest runs first; an empty symbol lists every symbol.
func (s *SQLiteRunStore) List(ctx context.Context, symbol string, limit int) ([]*models.TrainingRun, error) {
	q := `
        SELECT id, symbol, partition, horizon, profile, variant, samples, epochs, final_loss,
               test_samples, test_loss, accuracy, duration_ms, model_path, created_at
        FROM training_runs`
	args := []interface{}{}
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.TrainingRun
	for rows.Next() {
		var (
			r          models.TrainingRun
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&r.ID, &r.Identity.Symbol, &r.Identity.Partition, &r.Identity.Horizon,
			&r.Profile, &r.Variant, &r.Samples, &r.Epochs, &r.FinalLoss,
			&r.TestSamples, &r.TestLoss, &r.Accuracy, &durationMS, &r.ModelPath, &createdMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteRunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
