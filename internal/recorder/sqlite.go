package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SMCSentinel/internal/model"
)

// SQLiteRecorder persists bias history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets the history command read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bias_history (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at      INTEGER NOT NULL,
			run_id           TEXT,
			date             INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			direction        TEXT,
			confidence       REAL,
			confidence_level TEXT,
			bullish_score    REAL,
			bearish_score    REAL,
			signal_count     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bias_symbol_date ON bias_history(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS timeframe_failures (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			run_id      TEXT,
			date        INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			timeframe   TEXT,
			kind        TEXT,
			message     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_symbol_date ON timeframe_failures(symbol, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordBias(ctx context.Context, rec model.BiasRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO bias_history
		(recorded_at, run_id, date, symbol, direction, confidence, confidence_level,
		 bullish_score, bearish_score, signal_count)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.RunID, rec.Date.Unix(), rec.Symbol,
		string(rec.Direction), rec.Confidence, string(rec.ConfidenceLevel),
		rec.BullishScore, rec.BearishScore, rec.SignalCount,
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(ctx context.Context, evt FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO timeframe_failures
		(recorded_at, run_id, date, symbol, timeframe, kind, message)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RunID, evt.At.Unix(), evt.Symbol,
		string(evt.Failure.Timeframe), evt.Failure.Kind, evt.Failure.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecentBias(ctx context.Context, symbol string, limit int) ([]model.BiasRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, date, symbol, direction, confidence,
		confidence_level, bullish_score, bearish_score, signal_count
		FROM bias_history WHERE symbol = ? ORDER BY date DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query bias history: %w", err)
	}
	defer rows.Close()

	var out []model.BiasRecord
	for rows.Next() {
		var (
			rec       model.BiasRecord
			date      int64
			direction string
			level     string
		)
		if err := rows.Scan(&rec.RunID, &date, &rec.Symbol, &direction, &rec.Confidence,
			&level, &rec.BullishScore, &rec.BearishScore, &rec.SignalCount); err != nil {
			return nil, fmt.Errorf("scan bias history: %w", err)
		}
		rec.Date = time.Unix(date, 0).UTC()
		rec.Direction = model.Direction(direction)
		rec.ConfidenceLevel = model.ConfidenceLevel(level)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FailureCount returns the number of stored failures for symbol.
func (r *SQLiteRecorder) FailureCount(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM timeframe_failures WHERE symbol = ?`, symbol).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
