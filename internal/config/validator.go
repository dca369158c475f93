package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate checks configuration values and reports every problem at once.
func Validate(cfg *Config) error {
	var errors []string

	if cfg.RetentionDays <= 0 {
		errors = append(errors, fmt.Sprintf("retention_days must be positive, got: %d", cfg.RetentionDays))
	}

	if cfg.AlertThreshold < 0 || cfg.AlertThreshold > 10 {
		errors = append(errors, fmt.Sprintf("alert_threshold must be between 0 and 10, got: %v", cfg.AlertThreshold))
	}

	for name, path := range map[string]string{
		"vuln_file":     cfg.VulnFile,
		"keywords_file": cfg.KeywordsFile,
		"lock_file":     cfg.LockFile,
		"state.daily":   cfg.State.Daily,
		"state.alert":   cfg.State.Alert,
	} {
		if strings.TrimSpace(path) == "" {
			errors = append(errors, fmt.Sprintf("%s must not be empty", name))
		}
	}

	if _, err := cfg.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("timezone is invalid: %v", err))
	}

	if cfg.Feed.PageSize < 1 || cfg.Feed.PageSize > 1000 {
		errors = append(errors, fmt.Sprintf("feed.page_size must be between 1 and 1000, got: %d", cfg.Feed.PageSize))
	}
	if cfg.Feed.WindowDays <= 0 {
		errors = append(errors, fmt.Sprintf("feed.window_days must be positive, got: %d", cfg.Feed.WindowDays))
	}
	if cfg.Feed.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("feed.timeout must be positive, got: %v", cfg.Feed.Timeout))
	}
	if cfg.Feed.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("feed.max_retries must not be negative, got: %d", cfg.Feed.MaxRetries))
	}
	if u, err := url.Parse(cfg.Feed.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("feed.url must be an absolute URL, got: %q", cfg.Feed.URL))
	}

	if cfg.FirstEPSS {
		if u, err := url.Parse(cfg.EPSS.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("epss.url must be an absolute URL, got: %q", cfg.EPSS.URL))
		}
		if cfg.EPSS.Timeout <= 0 {
			errors = append(errors, fmt.Sprintf("epss.timeout must be positive, got: %v", cfg.EPSS.Timeout))
		}
	}

	switch cfg.Ledger.Type {
	case "sqlite", "postgres":
	default:
		errors = append(errors, fmt.Sprintf("ledger.type must be sqlite or postgres, got: %q", cfg.Ledger.Type))
	}

	if len(errors) > 0 {
		// Map iteration above is unordered.
		sort.Strings(errors)
		errorMsg := errors[0]
		for i := 1; i < len(errors); i++ {
			errorMsg += "\n  " + errors[i]
		}
		return fmt.Errorf("configuration validation failed:\n  %s", errorMsg)
	}

	return nil
}
