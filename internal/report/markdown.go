package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"euvdalert/internal/epss"
	"euvdalert/internal/record"
	"euvdalert/internal/severity"
	"euvdalert/internal/utils"
)

const descriptionExcerpt = 400

// Report is a rendered message.
type Report struct {
	Title string
	// Body is Markdown.
	Body string
}

// Builder renders reports. RecordURL is prefixed to record ids for links;
// Location sets the zone of dates shown in titles. EPSS holds looked-up
// probabilities by CVE id and takes precedence over the feed's own value.
type Builder struct {
	RecordURL string
	Location  *time.Location
	Now       func() time.Time
	EPSS      map[string]float64
}

func (b *Builder) now() time.Time {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	if b.Location != nil {
		now = now.In(b.Location)
	}
	return now
}

// Daily renders the digest of new matching records.
func (b *Builder) Daily(records []record.Record, vendorLine string) Report {
	title := fmt.Sprintf("📆 Daily Vulnerability Vendors Report - %s", b.now().Format("January 02, 2006"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	writeSummary(&sb, Summarize(records), vendorLine)
	b.writeEntries(&sb, records)
	return Report{Title: title, Body: sb.String()}
}

// NoVuln renders the empty digest sent when nothing new matched.
func (b *Builder) NoVuln(vendorLine string) Report {
	title := fmt.Sprintf("📭 Daily Vulnerability Vendors Report - %s - No new vulnerabilities", b.now().Format("January 02, 2006"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	sb.WriteString("**No new vulnerabilities** matched the configured vendors.\n\n")
	fmt.Fprintf(&sb, "**Vendors list:** %s\n", vendorLine)
	return Report{Title: title, Body: sb.String()}
}

// Alert renders the urgent message for records at or above threshold.
func (b *Builder) Alert(records []record.Record, vendorLine string, threshold float64) Report {
	title := fmt.Sprintf("🚨 Urgent Alert - High Severity CVEs (CVSS ≥ %.1f)", threshold)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	writeSummary(&sb, Summarize(records), vendorLine)
	b.writeEntries(&sb, records)
	return Report{Title: title, Body: sb.String()}
}

// Monthly renders the summary of records updated during the month starting at month.
func (b *Builder) Monthly(records []record.Record, vendors []string, month time.Time) Report {
	title := fmt.Sprintf("📊 Monthly Vulnerability Summary – %s", month.Format("January 2006"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	writeSummary(&sb, Summarize(records), strings.Join(vendors, ", "))

	table := VendorSeverity(records, vendors)
	sb.WriteString("## Vendors by severity\n\n")
	sb.WriteString("| Vendor |")
	for _, l := range severity.Levels {
		fmt.Fprintf(&sb, " %s %s |", l.Icon(), l)
	}
	sb.WriteString(" Total |\n|---|")
	for range severity.Levels {
		sb.WriteString("---:|")
	}
	sb.WriteString("---:|\n")

	for _, v := range vendors {
		counts := table[v]
		total := 0
		for _, n := range counts {
			total += n
		}
		name := v
		if total == 0 {
			name = "~~" + v + "~~"
		}
		fmt.Fprintf(&sb, "| %s |", name)
		for _, l := range severity.Levels {
			if n := counts[l]; n > 0 {
				fmt.Fprintf(&sb, " **%d** |", n)
			} else {
				sb.WriteString(" 0 |")
			}
		}
		fmt.Fprintf(&sb, " %d |\n", total)
	}
	sb.WriteString("\n")

	b.writeEntries(&sb, records)
	return Report{Title: title, Body: sb.String()}
}

func writeSummary(sb *strings.Builder, s Summary, vendorLine string) {
	fmt.Fprintf(sb, "**🔎 Summary:** %d vulnerabilities\n\n", s.Total)

	sb.WriteString("**Severity breakdown:**")
	for _, l := range severity.Levels {
		fmt.Fprintf(sb, " %s %d", l.Icon(), s.BySeverity[l])
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "**Filtered vendors:** %s\n\n", vendorLine)

	parts := make([]string, 0, len(s.Vendors))
	for _, v := range s.Vendors {
		parts = append(parts, fmt.Sprintf("%s (%d)", v.Name, v.Count))
	}
	fmt.Fprintf(sb, "**Vendors with vulnerabilities:** %s\n\n", strings.Join(parts, ", "))
}

func (b *Builder) writeEntries(sb *strings.Builder, records []record.Record) {
	for _, r := range records {
		level := r.BaseScore.Severity()
		fmt.Fprintf(sb, "## %s %s · %s %s", level.Icon(), r.ID, level, r.BaseScore)
		if r.Exploited {
			sb.WriteString(" · ⚠️ **EXPL**")
		}
		sb.WriteString("\n\n")

		if vendors := nonEmpty(r.VendorNames()); len(vendors) > 0 {
			fmt.Fprintf(sb, "- **Vendors:** %s\n", strings.Join(vendors, ", "))
		}
		if products := nonEmpty(r.ProductNames()); len(products) > 0 {
			fmt.Fprintf(sb, "- **Products:** %s\n", strings.Join(products, ", "))
		}
		if aliases := utils.Lines(r.Aliases); len(aliases) > 0 {
			fmt.Fprintf(sb, "- **Aliases:** %s\n", strings.Join(aliases, ", "))
		}
		if p, ok := b.EPSS[r.CVE()]; ok {
			fmt.Fprintf(sb, "- **EPSS:** %s %.2f%% (%s)\n", epss.Icon(p), p*100, r.CVE())
		} else if r.EPSS != nil {
			fmt.Fprintf(sb, "- **EPSS:** %s\n", strconv.FormatFloat(*r.EPSS, 'f', -1, 64))
		}
		if r.BaseScoreVector != "" {
			fmt.Fprintf(sb, "- **Vector:** `%s`\n", r.BaseScoreVector)
		}
		fmt.Fprintf(sb, "- **Updated:** %s\n", r.DateUpdated)
		if link := b.link(r.ID); link != "" {
			fmt.Fprintf(sb, "- **Details:** [%s](%s)\n", r.ID, link)
		}
		sb.WriteString("\n")

		if desc := utils.Truncate(r.Description, descriptionExcerpt); desc != "" {
			sb.WriteString(desc + "\n\n")
		}
	}
}

func (b *Builder) link(id string) string {
	if b.RecordURL == "" {
		return ""
	}
	return b.RecordURL + url.PathEscape(id)
}

func nonEmpty(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !strings.EqualFold(n, "n/a") {
			out = append(out, n)
		}
	}
	return out
}
