package utils

import (
	"fmt"
	"time"
)

// FormatAge renders how long before now t happened, e.g. "5m ago" or "3d ago".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	const day = 24 * time.Hour

	since := now.Sub(t)
	switch {
	case since < 0:
		return "just now"
	case since < time.Minute:
		return fmt.Sprintf("%ds ago", int(since.Seconds()))
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	case since < day:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(since/day))
	}
}
