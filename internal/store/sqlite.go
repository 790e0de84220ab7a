package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"BreakoutScanner/internal/model"
)

// SQLiteStore keeps bars and per-ticker refresh dates in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			ticker TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume REAL,
			PRIMARY KEY (ticker, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_dates (
			ticker       TEXT    PRIMARY KEY,
			refreshed_on TEXT    NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReadSeries(ctx context.Context, ticker string) (*model.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume FROM daily_bars WHERE ticker = ? ORDER BY ts`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = time.Unix(ts, 0)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

// ReplaceAll writes the bars and their refresh dates in one transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, series map[string]*model.PriceSeries, refreshed time.Time) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_bars (ticker, ts, open, high, low, close, volume) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	day := refreshed.Format(DateLayout)
	now := time.Now().Unix()
	for ticker, ps := range series {
		if _, err = tx.ExecContext(ctx, `DELETE FROM daily_bars WHERE ticker = ?`, ticker); err != nil {
			return fmt.Errorf("clear %s: %w", ticker, err)
		}
		for _, b := range ps.Bars() {
			if _, err = ins.ExecContext(ctx, ticker, b.Time.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("insert %s: %w", ticker, err)
			}
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO refresh_dates (ticker, refreshed_on, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(ticker) DO UPDATE SET refreshed_on = excluded.refreshed_on, updated_at = excluded.updated_at`,
			ticker, day, now); err != nil {
			return fmt.Errorf("stamp %s: %w", ticker, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RefreshDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT refreshed_on FROM refresh_dates WHERE ticker = ?`, ticker).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read refresh date of %s: %w", ticker, err)
	}
	d, err := parseDate(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse refresh date %q: %w", raw, err)
	}
	return d, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
