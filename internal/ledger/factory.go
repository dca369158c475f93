package ledger

import (
	"fmt"
	"strings"

	"euvdalert/internal/config"
)

// New creates a Store for cfg. It returns ErrDisabled when cfg.DSN is empty.
func New(cfg config.LedgerConfig) (Store, error) {
	if cfg.DSN == "" {
		return nil, ErrDisabled
	}
	switch strings.ToLower(cfg.Type) {
	case "postgres", "postgresql":
		return NewPostgresStore(cfg.DSN)
	case "sqlite", "sqlite3", "":
		return NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", cfg.Type)
	}
}
