package merge

import (
	"testing"
	"time"

	"euvdalert/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return &Engine{Now: func() time.Time { return now }}
}

func rec(id string, updated time.Time, desc string) record.Record {
	return record.Record{ID: id, DateUpdated: record.FormatTimestamp(updated), Description: desc}
}

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestReconcile_AddUpdateKeep(t *testing.T) {
	existing := record.NewStore([]record.Record{
		rec("A", daysAgo(5), "old A"),
		rec("B", daysAgo(5), "old B"),
		rec("C", daysAgo(5), "old C"),
	})

	incoming := []record.Record{
		rec("A", daysAgo(1), "new A"), // newer: replaces
		rec("B", daysAgo(5), "tie B"), // equal: keeps stored
		rec("C", daysAgo(9), "old C"), // older: keeps stored
		rec("D", daysAgo(1), "new D"), // absent: added
	}

	res := newEngine().Reconcile(existing, incoming, 90)

	assert.Equal(t, []string{"D"}, res.Added)
	assert.Equal(t, []string{"A"}, res.Updated)
	assert.Empty(t, res.Purged)
	assert.Equal(t, "new A", res.Store["A"].Description)
	assert.Equal(t, "old B", res.Store["B"].Description)
	assert.Equal(t, "old C", res.Store["C"].Description)
	assert.Len(t, res.Store, 4)

	// The caller's store is untouched.
	assert.Len(t, existing, 3)
	assert.Equal(t, "old A", existing["A"].Description)
}

func TestReconcile_Idempotent(t *testing.T) {
	existing := record.NewStore([]record.Record{rec("A", daysAgo(3), "a")})
	incoming := []record.Record{
		rec("A", daysAgo(1), "a2"),
		rec("B", daysAgo(1), "b"),
		rec("OLD", daysAgo(200), "too old"),
	}

	e := newEngine()
	first := e.Reconcile(existing, incoming, 90)
	require.Equal(t, []string{"B"}, first.Added)
	require.Equal(t, []string{"A"}, first.Updated)

	second := e.Reconcile(first.Store, incoming, 90)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Updated)
	assert.Equal(t, first.Store.IDs(), second.Store.IDs())
}

func TestReconcile_Retention(t *testing.T) {
	existing := record.NewStore([]record.Record{
		rec("FRESH", daysAgo(10), ""),
		// exactly at the cutoff: purged
		rec("EDGE", daysAgo(90), ""),
		// one second newer than the cutoff: kept
		rec("JUST_IN", daysAgo(90).Add(time.Second), ""),
		rec("ANCIENT", daysAgo(400), ""),
		{ID: "BROKEN", DateUpdated: "yesterday"},
	})

	res := newEngine().Reconcile(existing, nil, 90)

	assert.Equal(t, []string{"ANCIENT", "EDGE"}, res.Purged)
	assert.ElementsMatch(t, []string{"FRESH", "JUST_IN", "BROKEN"}, res.Store.IDs())

	cutoff := now.Add(-90 * 24 * time.Hour)
	for id, r := range res.Store {
		at, err := r.UpdatedAt()
		if err != nil {
			continue
		}
		assert.True(t, at.After(cutoff), "record %s should be newer than the cutoff", id)
	}
}

func TestReconcile_RetentionDisabled(t *testing.T) {
	existing := record.NewStore([]record.Record{rec("ANCIENT", daysAgo(400), "")})
	res := newEngine().Reconcile(existing, nil, 0)
	assert.Empty(t, res.Purged)
	assert.Len(t, res.Store, 1)
}

func TestReconcile_EmptyIncoming(t *testing.T) {
	existing := record.NewStore([]record.Record{
		rec("A", daysAgo(1), "a"),
		rec("B", daysAgo(100), "b"),
	})

	res := newEngine().Reconcile(existing, nil, 90)

	assert.Empty(t, res.Added)
	assert.Empty(t, res.Updated)
	assert.Equal(t, []string{"B"}, res.Purged)
	assert.Equal(t, existing["A"], res.Store["A"])
}

func TestReconcile_MalformedTimestamps(t *testing.T) {
	existing := record.NewStore([]record.Record{
		rec("A", daysAgo(5), "stored A"),
		{ID: "B", DateUpdated: "garbage", Description: "stored B"},
	})

	incoming := []record.Record{
		{ID: "A", DateUpdated: "2025-06-01T00:00:00Z", Description: "bad A"},
		rec("B", daysAgo(1), "fixed B"),
		{ID: "", DateUpdated: record.FormatTimestamp(daysAgo(1))},
	}

	var res Result
	require.NotPanics(t, func() {
		res = newEngine().Reconcile(existing, incoming, 90)
	})

	assert.Equal(t, "stored A", res.Store["A"].Description)
	assert.Equal(t, "fixed B", res.Store["B"].Description)
	assert.Equal(t, []string{"B"}, res.Updated)
	assert.Equal(t, []string{"", "A"}, res.Discarded)
}

func TestReconcile_DuplicateIncoming(t *testing.T) {
	incoming := []record.Record{
		rec("A", daysAgo(3), "first"),
		rec("A", daysAgo(1), "second"),
		rec("A", daysAgo(2), "third"),
	}

	res := newEngine().Reconcile(record.Store{}, incoming, 90)

	assert.Equal(t, []string{"A"}, res.Added)
	assert.Empty(t, res.Updated)
	assert.Equal(t, "second", res.Store["A"].Description)
}

func TestReconcile_AddedThenPurged(t *testing.T) {
	res := newEngine().Reconcile(record.Store{}, []record.Record{rec("OLD", daysAgo(120), "")}, 90)
	assert.Empty(t, res.Added)
	assert.Equal(t, []string{"OLD"}, res.Purged)
	assert.Empty(t, res.Store)
}

func TestResultStale(t *testing.T) {
	res := Result{Updated: []string{"C", "A"}, Purged: []string{"B", "A"}}
	assert.Equal(t, []string{"A", "B", "C"}, res.Stale())
	assert.Empty(t, Result{}.Stale())
}
