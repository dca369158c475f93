// Package state tracks, per notification channel, which record ids were already delivered.
package state

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"euvdalert/internal/record"
	"euvdalert/internal/utils"
)

// Channel is a notification destination category.
type Channel string

const (
	Daily   Channel = "daily"
	Alert   Channel = "alert"
	Monthly Channel = "monthly"
)

// Tracked lists the channels that keep a notified-id set. Monthly summaries do not.
var Tracked = []Channel{Daily, Alert}

// ParseChannel maps a channel name to a Channel.
func ParseChannel(name string) (Channel, error) {
	switch c := Channel(name); c {
	case Daily, Alert, Monthly:
		return c, nil
	}
	return "", fmt.Errorf("unknown channel %q", name)
}

// IDSet is a set of record ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids into the set.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order. An empty set yields an empty, non-nil slice
// so it encodes as [].
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Evict returns a copy of set without the stale ids, and the ids that were actually removed.
func Evict(set IDSet, stale []string) (IDSet, []string) {
	out := set.Clone()
	var removed []string
	for _, id := range stale {
		if out.Has(id) {
			delete(out, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return out, removed
}

// Unsent returns the records whose id is not in set, in their original order.
func Unsent(records []record.Record, set IDSet) []record.Record {
	var out []record.Record
	for _, r := range records {
		if !set.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// Tracker persists notified-id sets, one JSON file per channel.
type Tracker struct {
	Paths  map[Channel]string
	Logger *slog.Logger
}

// NewTracker returns a tracker for the given channel files.
func NewTracker(paths map[Channel]string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{Paths: paths, Logger: logger}
}

func (t *Tracker) path(c Channel) (string, error) {
	p, ok := t.Paths[c]
	if !ok || p == "" {
		return "", fmt.Errorf("no state file configured for channel %s", c)
	}
	return p, nil
}

// Read reads the notified-id set of a channel. Failures are returned as *record.ReadError.
func (t *Tracker) Read(c Channel) (IDSet, error) {
	p, err := t.path(c)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := utils.ReadJSON(p, &ids); err != nil {
		return nil, &record.ReadError{Path: p, Err: err}
	}
	return NewIDSet(ids...), nil
}

// Load reads the notified-id set of a channel. A missing or corrupt file yields an empty set.
func (t *Tracker) Load(c Channel) IDSet {
	set, err := t.Read(c)
	if err == nil {
		t.Logger.Debug("Loaded notification state", "channel", c, "ids", len(set))
		return set
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Logger.Info("No notification state found, starting fresh", "channel", c)
	} else {
		t.Logger.Warn("Failed to read notification state, starting empty", "channel", c, "error", err)
	}
	return IDSet{}
}

// Save writes the set as a sorted JSON array, replacing the file atomically.
func (t *Tracker) Save(c Channel, set IDSet) error {
	p, err := t.path(c)
	if err != nil {
		return err
	}
	if err := utils.WriteJSONAtomic(p, set.Sorted()); err != nil {
		return fmt.Errorf("failed to save %s state: %w", c, err)
	}
	t.Logger.Debug("Saved notification state", "channel", c, "ids", len(set))
	return nil
}

// EvictAll removes stale ids from every tracked channel whose state file exists
// and returns the number of ids removed per channel. Files are rewritten only when
// something was removed.
func (t *Tracker) EvictAll(stale []string) (map[Channel]int, error) {
	evicted := make(map[Channel]int)
	if len(stale) == 0 {
		return evicted, nil
	}

	for _, c := range Tracked {
		p, ok := t.Paths[c]
		if !ok || !utils.FileExists(p) {
			continue
		}

		set := t.Load(c)
		kept, removed := Evict(set, stale)
		if len(removed) == 0 {
			continue
		}
		if err := t.Save(c, kept); err != nil {
			return evicted, err
		}
		evicted[c] = len(removed)
		t.Logger.Info("Evicted stale ids from notification state", "channel", c, "count", len(removed))
	}
	return evicted, nil
}
