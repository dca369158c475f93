package keyword

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"euvdalert/internal/record"
)

type pair struct {
	vendor, product string
}

// RuleSet is a compiled list of rules. Names are stored lowercased; matching is
// case-insensitive substring containment.
type RuleSet struct {
	negativeVendors []string
	negativePairs   []pair
	positiveVendors []string
	// positiveProducts maps a vendor to the products that make it match.
	positiveProducts map[string][]string
	productVendors   []string

	// fallbackPositive keeps the original case: the matched keyword becomes a vendor label.
	fallbackPositive []string
	fallbackNegative []string

	displayVendors []string
	logger         *slog.Logger
}

// Compile parses rules once. Malformed rules are logged and skipped.
func Compile(rules []string, logger *slog.Logger) *RuleSet {
	if logger == nil {
		logger = slog.Default()
	}
	rs := &RuleSet{positiveProducts: make(map[string][]string), logger: logger}
	display := make(map[string]struct{})

	for _, s := range rules {
		r, err := ParseRule(s)
		if err != nil {
			logger.Warn("Skipping keyword rule", "error", err)
			continue
		}

		vendor := strings.ToLower(r.Vendor)
		product := strings.ToLower(r.Product)

		if r.Negative {
			rs.fallbackNegative = append(rs.fallbackNegative, strings.ToLower(r.Raw))
			if product == "" {
				rs.negativeVendors = appendUnique(rs.negativeVendors, vendor)
			} else {
				rs.negativePairs = append(rs.negativePairs, pair{vendor, product})
			}
			continue
		}

		rs.fallbackPositive = append(rs.fallbackPositive, r.Raw)
		display[r.Vendor] = struct{}{}
		if product == "" {
			rs.positiveVendors = appendUnique(rs.positiveVendors, vendor)
			continue
		}
		if _, ok := rs.positiveProducts[vendor]; !ok {
			rs.productVendors = append(rs.productVendors, vendor)
		}
		rs.positiveProducts[vendor] = appendUnique(rs.positiveProducts[vendor], product)
	}

	for v := range display {
		rs.displayVendors = append(rs.displayVendors, v)
	}
	sort.Strings(rs.displayVendors)
	return rs
}

// Empty reports whether no usable positive rule was compiled; such a set matches nothing.
func (rs *RuleSet) Empty() bool {
	return len(rs.fallbackPositive) == 0
}

// Vendors returns the vendor part of every positive rule, as written, sorted and unique.
func (rs *RuleSet) Vendors() []string {
	return append([]string(nil), rs.displayVendors...)
}

// VendorLine joins Vendors with ", " for report headers.
func (rs *RuleSet) VendorLine() string {
	return strings.Join(rs.displayVendors, ", ")
}

// Decision is the outcome of matching one record.
type Decision struct {
	Matched bool
	// Fallback is set when the record had no usable vendor and its text was searched.
	Fallback bool
	// Keyword is the capitalized fallback keyword that matched, to be used as vendor label.
	Keyword string
}

// Match evaluates r. Negative rules always win over positive ones.
func (rs *RuleSet) Match(r record.Record) Decision {
	if r.VendorUnknown() {
		return rs.matchText(r.SearchText())
	}
	return Decision{Matched: rs.matchNames(vendorText(r), productText(r))}
}

// Matches reports whether r matches the rule set.
func (rs *RuleSet) Matches(r record.Record) bool {
	return rs.Match(r).Matched
}

func (rs *RuleSet) matchNames(vendors, products string) bool {
	for _, v := range rs.negativeVendors {
		if strings.Contains(vendors, v) {
			return false
		}
	}
	for _, p := range rs.negativePairs {
		if strings.Contains(vendors, p.vendor) && strings.Contains(products, p.product) {
			return false
		}
	}
	for _, v := range rs.positiveVendors {
		if strings.Contains(vendors, v) {
			return true
		}
	}
	for _, v := range rs.productVendors {
		if !strings.Contains(vendors, v) {
			continue
		}
		for _, p := range rs.positiveProducts[v] {
			if strings.Contains(products, p) {
				return true
			}
		}
	}
	return false
}

func (rs *RuleSet) matchText(text string) Decision {
	text = strings.ToLower(text)
	d := Decision{Fallback: true}
	for _, neg := range rs.fallbackNegative {
		if strings.Contains(text, neg) {
			return d
		}
	}
	for _, kw := range rs.fallbackPositive {
		if strings.Contains(text, strings.ToLower(kw)) {
			d.Matched = true
			d.Keyword = capitalize(kw)
			return d
		}
	}
	return d
}

// Filter returns the records that match, in input order. When threshold is non-nil a
// match is kept only if its base score parses and is at least threshold.
// Records matched through the fallback are returned as copies carrying the keyword
// as their only vendor; the input slice is not modified.
func (rs *RuleSet) Filter(records []record.Record, threshold *float64) []record.Record {
	var out []record.Record
	for _, r := range records {
		d := rs.Match(r)
		if !d.Matched {
			rs.logger.Debug("Record did not match", "id", r.ID, "vendors", r.VendorNames(), "fallback", d.Fallback)
			continue
		}
		if d.Keyword != "" {
			r = r.WithVendor(d.Keyword)
			rs.logger.Debug("Record matched keyword in text", "id", r.ID, "keyword", d.Keyword)
		}

		if threshold != nil {
			score, err := r.BaseScore.Float()
			if err != nil {
				rs.logger.Debug("Record skipped, score unparsable", "id", r.ID, "baseScore", r.BaseScore.String(), "error", err)
				continue
			}
			if score < *threshold {
				rs.logger.Debug("Record skipped, score below threshold", "id", r.ID, "score", score, "threshold", *threshold)
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func vendorText(r record.Record) string {
	return strings.ToLower(strings.Join(r.VendorNames(), ", "))
}

func productText(r record.Record) string {
	return strings.ToLower(strings.Join(r.ProductNames(), " "))
}

// capitalize upper-cases the first letter and leaves the rest untouched.
func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
