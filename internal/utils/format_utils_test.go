package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "N/A"},
		{"future", now.Add(time.Minute), "just now"},
		{"seconds", now.Add(-30 * time.Second), "30s ago"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b c", Truncate("a\n  b\tc", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
	assert.Equal(t, "unlimited text", Truncate("unlimited text", 0))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Openssl", Capitalize("OpenSSL"))
	assert.Equal(t, "Microsoft", Capitalize("microsoft"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "Élan", Capitalize("éLAN"))
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"https://a", "https://b"}, Lines("https://a\n\n  https://b \n"))
	assert.Empty(t, Lines(" \n"))
}
