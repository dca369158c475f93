package record

import (
	"strings"
	"time"
)

// TimestampLayout is the feed-native dateUpdated format, e.g. "Apr 15, 2025, 2:30:01 PM".
// It is the only accepted format.
const TimestampLayout = "Jan 2, 2006, 3:04:05 PM"

// ParseTimestamp parses a feed timestamp as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, &TimestampError{Value: value, Err: err}
	}
	return t, nil
}

// FormatTimestamp renders t in the feed format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// UpdatedAt parses the record's dateUpdated.
func (r Record) UpdatedAt() (time.Time, error) {
	return ParseTimestamp(r.DateUpdated)
}
