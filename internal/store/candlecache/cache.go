// Package candlecache 将已固定区间的历史 K 线落到本地 SQLite，重复回放时不再访问交易所。
package candlecache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"tradepilot/internal/market"
)

// Manifest 记录某个 symbol@interval 的缓存概况。
type Manifest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	MinTime  int64  `json:"min_time"`
	MaxTime  int64  `json:"max_time"`
	Rows     int64  `json:"rows"`
	Ranges   int64  `json:"ranges"`
}

type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("candle cache 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化 candle cache 失败: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			trades     INTEGER DEFAULT 0,
			PRIMARY KEY (symbol, interval, open_time)
		);`,
		`CREATE TABLE IF NOT EXISTS fetched_ranges (
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time   INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000),
			PRIMARY KEY (symbol, interval, start_time, end_time)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert 批量写入 K 线（重复 open_time 将被覆盖），并登记已完整拉取的区间。
func (s *Store) Insert(ctx context.Context, symbol, interval string, start, end int64, candles []market.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
		    close_time=excluded.close_time,
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume,
		    trades=excluded.trades`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, interval, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetched_ranges (symbol, interval, start_time, end_time) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`, symbol, interval, start, end); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Covered 判断 [start,end] 是否被某次已登记的拉取完整覆盖。
func (s *Store) Covered(ctx context.Context, symbol, interval string, start, end int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM fetched_ranges
		WHERE symbol = ? AND interval = ? AND start_time <= ? AND end_time >= ?`,
		symbol, interval, start, end).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Range 返回 open_time 位于 [start,end) 的 K 线，按 open_time 升序。
func (s *Store) Range(ctx context.Context, symbol, interval string, start, end int64) ([]market.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles
		WHERE symbol = ? AND interval = ? AND open_time >= ? AND open_time < ?
		ORDER BY open_time ASC`, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *Store) Manifest(ctx context.Context, symbol, interval string) (Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Manifest{Symbol: symbol, Interval: interval}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(open_time), 0), COALESCE(MAX(open_time), 0), COUNT(1)
		FROM candles WHERE symbol = ? AND interval = ?`, symbol, interval).Scan(&m.MinTime, &m.MaxTime, &m.Rows)
	if err != nil {
		return Manifest{}, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM fetched_ranges WHERE symbol = ? AND interval = ?`, symbol, interval).Scan(&m.Ranges)
	if err != nil {
		return Manifest{}, err
	}
	return m, nil
}
