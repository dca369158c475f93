package record

import (
	"errors"
	"log/slog"
	"os"
	"sort"

	"euvdalert/internal/utils"
)

// Store maps record id to record. At most one record per id is kept.
type Store map[string]Record

// NewStore builds a store from a record list. When an id repeats, the later entry wins.
func NewStore(records []Record) Store {
	s := make(Store, len(records))
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}

// Clone returns a shallow copy that can be changed without touching s.
func (s Store) Clone() Store {
	c := make(Store, len(s))
	for id, r := range s {
		c[id] = r
	}
	return c
}

// IDs returns the record ids in ascending order.
func (s Store) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Records returns the records ordered by id.
func (s Store) Records() []Record {
	records := make([]Record, 0, len(s))
	for _, id := range s.IDs() {
		records = append(records, s[id])
	}
	return records
}

// ReadStore reads a store file (a JSON array of records).
func ReadStore(path string) (Store, error) {
	var records []Record
	if err := utils.ReadJSON(path, &records); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return NewStore(records), nil
}

// LoadStore reads the store at path. A missing file starts an empty store; a
// corrupt or unreadable one is logged and replaced by an empty store.
func LoadStore(path string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := ReadStore(path)
	if err == nil {
		logger.Info("Loaded record store", "path", path, "records", len(s))
		return s
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("No record store found, starting fresh", "path", path)
	} else {
		logger.Warn("Failed to read record store, starting empty", "path", path, "error", err)
	}
	return Store{}
}

// SaveStore writes the store as a JSON array ordered by id, replacing the file atomically.
func SaveStore(path string, s Store) error {
	return utils.WriteJSONAtomic(path, s.Records())
}
