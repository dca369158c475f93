package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by New when no DSN is configured.
var ErrDisabled = errors.New("delivery ledger is disabled")

// Delivery is one message handed to the notification providers.
type Delivery struct {
	ID        int64     `json:"id"`
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	RecordIDs []string  `json:"record_ids"`
	Count     int       `json:"count"`
	DryRun    bool      `json:"dry_run"`
	SentAt    time.Time `json:"sent_at"`
}

// Store persists the delivery history.
type Store interface {
	Close() error
	Record(ctx context.Context, d Delivery) error
	// Recent returns the latest deliveries, newest first.
	Recent(ctx context.Context, limit int) ([]Delivery, error)
	// RecentForChannel is Recent restricted to one channel.
	RecentForChannel(ctx context.Context, channel string, limit int) ([]Delivery, error)
}
