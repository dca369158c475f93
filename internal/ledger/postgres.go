package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id SERIAL PRIMARY KEY,
			channel TEXT NOT NULL,
			title TEXT NOT NULL,
			record_ids TEXT NOT NULL,
			count INTEGER NOT NULL,
			dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Record saves a delivery. A zero SentAt is set to the current time.
func (s *PostgresStore) Record(ctx context.Context, d Delivery) error {
	ids, err := encodeIDs(d.RecordIDs)
	if err != nil {
		return err
	}
	if d.SentAt.IsZero() {
		d.SentAt = time.Now()
	}

	query := `INSERT INTO deliveries (channel, title, record_ids, count, dry_run, sent_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.db.ExecContext(ctx, query, d.Channel, d.Title, ids, d.Count, d.DryRun, d.SentAt.UTC())
	return err
}

// Recent retrieves the most recent deliveries
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	query := `SELECT id, channel, title, record_ids, count, dry_run, sent_at FROM deliveries ORDER BY sent_at DESC, id DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

// RecentForChannel retrieves the most recent deliveries of one channel
func (s *PostgresStore) RecentForChannel(ctx context.Context, channel string, limit int) ([]Delivery, error) {
	query := `SELECT id, channel, title, record_ids, count, dry_run, sent_at FROM deliveries WHERE channel = $1 ORDER BY sent_at DESC, id DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}
