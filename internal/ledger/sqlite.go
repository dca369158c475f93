package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating its directory, and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL,
			title TEXT NOT NULL,
			record_ids TEXT NOT NULL,
			count INTEGER NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			sent_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_sent ON deliveries(sent_at DESC);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record saves a delivery. A zero SentAt is set to the current time.
func (s *SQLiteStore) Record(ctx context.Context, d Delivery) error {
	ids, err := encodeIDs(d.RecordIDs)
	if err != nil {
		return err
	}
	if d.SentAt.IsZero() {
		d.SentAt = time.Now()
	}

	query := `INSERT INTO deliveries (channel, title, record_ids, count, dry_run, sent_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, d.Channel, d.Title, ids, d.Count, d.DryRun, d.SentAt.UTC())
	return err
}

// Recent retrieves the most recent deliveries
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	query := `SELECT id, channel, title, record_ids, count, dry_run, sent_at FROM deliveries ORDER BY sent_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

// RecentForChannel retrieves the most recent deliveries of one channel
func (s *SQLiteStore) RecentForChannel(ctx context.Context, channel string, limit int) ([]Delivery, error) {
	query := `SELECT id, channel, title, record_ids, count, dry_run, sent_at FROM deliveries WHERE channel = ? ORDER BY sent_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}
