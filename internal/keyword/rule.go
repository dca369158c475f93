// Package keyword decides whether a record is interesting according to vendor and
// vendor:product filter rules.
package keyword

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Rule is one parsed filter directive: "Vendor", "!Vendor", "Vendor:Product" or "!Vendor:Product".
type Rule struct {
	// Raw is the directive text without the leading "!", trimmed. The vendor-unknown
	// fallback searches for it verbatim.
	Raw      string
	Negative bool
	Vendor   string
	// Product is empty for vendor-only rules.
	Product string
}

// RuleError reports a directive that cannot be used. Compile skips such rules.
type RuleError struct {
	Rule   string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Rule, e.Reason)
}

// ParseRule parses one directive. A trailing colon ("Vendor:") degrades to a vendor-only rule.
func ParseRule(s string) (Rule, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Rule{}, &RuleError{Rule: s, Reason: "empty"}
	}

	var r Rule
	if strings.HasPrefix(text, "!") {
		r.Negative = true
		text = strings.TrimSpace(text[1:])
		if text == "" {
			return Rule{}, &RuleError{Rule: s, Reason: "negation without a vendor"}
		}
	}
	r.Raw = text

	vendor, product, _ := strings.Cut(text, ":")
	r.Vendor = strings.TrimSpace(vendor)
	r.Product = strings.TrimSpace(product)
	if r.Vendor == "" {
		return Rule{}, &RuleError{Rule: s, Reason: "empty vendor"}
	}
	return r, nil
}

// String renders the rule in directive form.
func (r Rule) String() string {
	s := r.Vendor
	if r.Product != "" {
		s += ":" + r.Product
	}
	if r.Negative {
		s = "!" + s
	}
	return s
}

// LoadRules reads the keyword configuration: a JSON array of directive strings.
// Entries that are not strings are skipped with a warning.
func LoadRules(path string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file %s: %w", path, err)
	}

	rules := make([]string, 0, len(raw))
	for i, item := range raw {
		var s string
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) || json.Unmarshal(item, &s) != nil {
			logger.Warn("Skipping non-string keyword entry", "path", path, "index", i, "value", string(item))
			continue
		}
		rules = append(rules, s)
	}
	return rules, nil
}
