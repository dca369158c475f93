// Package report builds the Markdown messages sent for each notification channel.
package report

import (
	"sort"
	"strings"
	"time"

	"euvdalert/internal/record"
	"euvdalert/internal/severity"
	"euvdalert/internal/utils"
)

// VendorCount is a vendor and the number of records naming it.
type VendorCount struct {
	Name  string
	Count int
}

// Summary aggregates a batch of records.
type Summary struct {
	Total      int
	BySeverity map[severity.Level]int
	Vendors    []VendorCount
}

// Summarize counts records per severity bucket and per vendor. Vendor names are
// capitalized so that case variants of the same vendor are counted together.
func Summarize(records []record.Record) Summary {
	s := Summary{Total: len(records), BySeverity: make(map[severity.Level]int)}
	for _, l := range severity.Levels {
		s.BySeverity[l] = 0
	}

	counts := make(map[string]int)
	for _, r := range records {
		s.BySeverity[r.BaseScore.Severity()]++
		for _, name := range r.VendorNames() {
			if name = strings.TrimSpace(name); name != "" {
				counts[utils.Capitalize(name)]++
			}
		}
	}

	for name, n := range counts {
		s.Vendors = append(s.Vendors, VendorCount{Name: name, Count: n})
	}
	sort.Slice(s.Vendors, func(i, j int) bool { return s.Vendors[i].Name < s.Vendors[j].Name })
	return s
}

// UniqueVendors lists every vendor named in the store, excluding blank and "n/a", sorted.
func UniqueVendors(s record.Store) []string {
	seen := make(map[string]struct{})
	for _, r := range s {
		for _, name := range r.VendorNames() {
			name = strings.TrimSpace(name)
			if name == "" || strings.EqualFold(name, "n/a") {
				continue
			}
			seen[name] = struct{}{}
		}
	}
	vendors := make([]string, 0, len(seen))
	for v := range seen {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return vendors
}

// LastMonth returns the previous calendar month of now, in now's location, as the
// half-open range [start, end).
func LastMonth(now time.Time) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start = end.AddDate(0, -1, 0)
	return start, end
}

// UpdatedBetween keeps the records whose dateUpdated falls in [start, end).
// Feed timestamps carry no zone; they are read as wall-clock time in start's location.
// Records with an unparsable timestamp are skipped.
func UpdatedBetween(records []record.Record, start, end time.Time) []record.Record {
	var out []record.Record
	for _, r := range records {
		at, err := r.UpdatedAt()
		if err != nil {
			continue
		}
		local := time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), 0, start.Location())
		if !local.Before(start) && local.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// VendorSeverity counts, for each filter vendor, the records per severity bucket.
// A record counts for a filter vendor when one of its vendor names contains it,
// case-insensitively.
func VendorSeverity(records []record.Record, vendors []string) map[string]map[severity.Level]int {
	table := make(map[string]map[severity.Level]int, len(vendors))
	for _, v := range vendors {
		table[v] = make(map[severity.Level]int)
	}

	for _, r := range records {
		level := r.BaseScore.Severity()
		for _, name := range r.VendorNames() {
			name = strings.ToLower(strings.TrimSpace(name))
			for _, v := range vendors {
				if strings.Contains(name, strings.ToLower(v)) {
					table[v][level]++
				}
			}
		}
	}
	return table
}
