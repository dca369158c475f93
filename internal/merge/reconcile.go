// Package merge reconciles freshly fetched records into the record store and
// applies the retention horizon.
package merge

import (
	"log/slog"
	"sort"
	"time"

	"euvdalert/internal/record"
)

// DefaultRetentionDays is used when no retention window is configured.
const DefaultRetentionDays = 90

// Result is the outcome of one reconciliation.
type Result struct {
	Store record.Store

	Added   []string
	Updated []string
	Purged  []string
	// Discarded lists incoming records dropped because their id was empty or
	// their dateUpdated could not be parsed.
	Discarded []string
}

// Stale returns the ids whose notification state must be invalidated:
// updated and purged ids, sorted and de-duplicated.
func (r Result) Stale() []string {
	seen := make(map[string]struct{}, len(r.Updated)+len(r.Purged))
	var ids []string
	for _, group := range [][]string{r.Updated, r.Purged} {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Engine merges incoming batches. The zero value is ready to use.
type Engine struct {
	Logger *slog.Logger
	// Now returns the reference time for retention; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// Reconcile merges incoming into a copy of existing and purges records last
// updated at or before now minus retentionDays. existing is never modified.
// A non-positive retentionDays disables the purge.
func (e *Engine) Reconcile(existing record.Store, incoming []record.Record, retentionDays int) Result {
	log := e.logger()
	merged := existing.Clone()
	res := Result{Store: merged}

	// Ids first seen in this batch: a later duplicate replaces them without
	// being reported as an update.
	addedNow := make(map[string]bool)

	for _, in := range incoming {
		if in.ID == "" {
			log.Warn("Discarding incoming record without id")
			res.Discarded = append(res.Discarded, in.ID)
			continue
		}

		current, ok := merged[in.ID]
		if !ok {
			merged[in.ID] = in
			addedNow[in.ID] = true
			res.Added = append(res.Added, in.ID)
			continue
		}

		newer, err := isNewer(in, current)
		if err != nil {
			log.Warn("Discarding incoming record with malformed dateUpdated", "id", in.ID, "dateUpdated", in.DateUpdated, "error", err)
			res.Discarded = append(res.Discarded, in.ID)
			continue
		}
		if !newer {
			log.Debug("Keeping stored record", "id", in.ID, "stored", current.DateUpdated, "incoming", in.DateUpdated)
			continue
		}

		merged[in.ID] = in
		if !addedNow[in.ID] {
			res.Updated = appendOnce(res.Updated, in.ID)
		}
	}

	if retentionDays > 0 {
		cutoff := e.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
		res.Purged = purge(merged, cutoff, log)
	}

	// Ids added then purged in the same pass were never visible to anyone.
	if len(res.Purged) > 0 {
		res.Added = without(res.Added, res.Purged)
	}

	sort.Strings(res.Added)
	sort.Strings(res.Updated)
	sort.Strings(res.Discarded)

	log.Info("Reconciled record store",
		"incoming", len(incoming),
		"added", len(res.Added),
		"updated", len(res.Updated),
		"purged", len(res.Purged),
		"discarded", len(res.Discarded),
		"total", len(merged),
		"retention_days", retentionDays,
	)
	return res
}

// isNewer reports whether in carries a strictly later dateUpdated than current.
// Equal timestamps keep the stored record. A stored record whose own timestamp is
// unreadable is replaced by any incoming record with a valid one.
func isNewer(in, current record.Record) (bool, error) {
	inAt, err := in.UpdatedAt()
	if err != nil {
		return false, err
	}
	curAt, err := current.UpdatedAt()
	if err != nil {
		return true, nil
	}
	return inAt.After(curAt), nil
}

// purge removes records at or before cutoff from s and returns their ids sorted.
// Records whose timestamp cannot be parsed are kept.
func purge(s record.Store, cutoff time.Time, log *slog.Logger) []string {
	var purged []string
	for id, r := range s {
		at, err := r.UpdatedAt()
		if err != nil {
			log.Warn("Keeping record with malformed dateUpdated", "id", id, "dateUpdated", r.DateUpdated)
			continue
		}
		if !at.After(cutoff) {
			delete(s, id)
			purged = append(purged, id)
		}
	}
	sort.Strings(purged)
	return purged
}

func appendOnce(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func without(ids, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	kept := ids[:0:0]
	for _, id := range ids {
		if !skip[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
