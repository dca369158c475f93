// Package record defines the EUVD vulnerability record and the on-disk record store.
package record

import (
	"encoding/json"
	"regexp"
	"strings"
)

// VendorRef is one entry of the enisaIdVendor list.
type VendorRef struct {
	ID     string `json:"id,omitempty"`
	Vendor Named  `json:"vendor"`
}

// ProductRef is one entry of the enisaIdProduct list.
type ProductRef struct {
	ID             string `json:"id,omitempty"`
	Product        Named  `json:"product"`
	ProductVersion string `json:"product_version,omitempty"`
}

// Named wraps the {"name": ...} objects used by the feed.
type Named struct {
	Name string `json:"name"`
}

// Record is one vulnerability entry as published by the EUVD feed.
// Fields the feed adds that are not modelled here are kept in Extra so that
// a load/save cycle does not drop them.
type Record struct {
	ID               string       `json:"id"`
	Description      string       `json:"description,omitempty"`
	DatePublished    string       `json:"datePublished,omitempty"`
	DateUpdated      string       `json:"dateUpdated"`
	BaseScore        Score        `json:"baseScore,omitempty"`
	BaseScoreVersion string       `json:"baseScoreVersion,omitempty"`
	BaseScoreVector  string       `json:"baseScoreVector,omitempty"`
	References       string       `json:"references,omitempty"`
	Aliases          string       `json:"aliases,omitempty"`
	Assigner         string       `json:"assigner,omitempty"`
	EPSS             *float64     `json:"epss,omitempty"`
	Exploited        bool         `json:"exploited,omitempty"`
	Products         []ProductRef `json:"enisaIdProduct,omitempty"`
	Vendors          []VendorRef  `json:"enisaIdVendor,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// recordFields mirrors Record without its methods so the JSON codec can be reused.
type recordFields Record

var knownKeys = []string{
	"id", "description", "datePublished", "dateUpdated", "baseScore",
	"baseScoreVersion", "baseScoreVector", "references", "aliases",
	"assigner", "epss", "exploited", "enisaIdProduct", "enisaIdVendor",
}

// UnmarshalJSON decodes the modelled fields and keeps the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields recordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		fields.Extra = all
	} else {
		fields.Extra = nil
	}

	*r = Record(fields)
	return nil
}

// MarshalJSON encodes the modelled fields merged with Extra.
func (r Record) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordFields(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// VendorNames returns the vendor names in feed order.
func (r Record) VendorNames() []string {
	names := make([]string, 0, len(r.Vendors))
	for _, v := range r.Vendors {
		names = append(names, v.Vendor.Name)
	}
	return names
}

// ProductNames returns the product names in feed order.
func (r Record) ProductNames() []string {
	names := make([]string, 0, len(r.Products))
	for _, p := range r.Products {
		names = append(names, p.Product.Name)
	}
	return names
}

// VendorUnknown reports whether no vendor on the record carries a usable name.
// An empty vendor list counts as unknown.
func (r Record) VendorUnknown() bool {
	for _, name := range r.VendorNames() {
		n := strings.ToLower(strings.TrimSpace(name))
		if n != "" && n != "n/a" {
			return false
		}
	}
	return true
}

// WithVendor returns a copy of the record whose vendor list is replaced by a single name.
func (r Record) WithVendor(name string) Record {
	r.Vendors = []VendorRef{{Vendor: Named{Name: name}}}
	return r
}

// SearchText is the text the vendor-unknown fallback matches against:
// id, description and aliases separated by spaces.
func (r Record) SearchText() string {
	return r.ID + " " + r.Description + " " + r.Aliases
}

var cvePattern = regexp.MustCompile(`CVE-\d{4}-\d{4,}`)

// CVE returns the first CVE identifier among the aliases, or "".
func (r Record) CVE() string {
	return cvePattern.FindString(r.Aliases)
}
