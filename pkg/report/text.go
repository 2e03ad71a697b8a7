// pkg/report/text.go
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"dbpulse/pkg/config"
	"dbpulse/pkg/freshness"
)

const divider = "================================================================================"

// PrintSummary writes the schema inventory totals for a scan document.
func PrintSummary(w io.Writer, res *ScanResult) {
	fmt.Fprintf(w, "\n%s\nSUMMARY\n%s\n\n", divider, divider)
	fmt.Fprintf(w, "Databases found: %d\n", len(res.Databases))
	fmt.Fprintf(w, "Schemas explored: %d\n", len(res.Schemas))

	names := make([]string, 0, len(res.Schemas))
	for name := range res.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		schema := res.Schemas[name]
		var rows int64
		for _, d := range schema.TableDetails {
			if d.Error == "" {
				rows += d.RowCount
			}
		}
		fmt.Fprintf(w, "  %s: %d tables, %d views, ~%s rows\n",
			name, len(schema.Tables), len(schema.Views), humanize.Comma(rows))
	}

	tables, views, rows := res.TotalCounts()
	fmt.Fprintf(w, "\nTOTAL: %d tables, %d views, ~%s rows\n", tables, views, humanize.Comma(rows))

	if res.DomainFacts != nil {
		if codes := res.DomainFacts.EnabledCodes("iso3"); len(codes) > 0 {
			fmt.Fprintf(w, "\nEnabled countries (%d): %s\n", len(codes), strings.Join(codes, ", "))
		}
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors encountered: %d\n", len(res.Errors))
		for i, e := range res.Errors {
			if i == 5 {
				break
			}
			fmt.Fprintf(w, "   - %+v\n", e)
		}
	}
}

// PrintStatusReport writes the categorized freshness table, the per-country
// trigger table and the views section.
func PrintStatusReport(w io.Writer, reg *config.Registry, res *ScanResult, today time.Time) {
	if res == nil || res.DomainFacts == nil {
		return
	}

	fmt.Fprintf(w, "\n%s\nDATABASE UPDATE STATUS REPORT\nAnalysis Date: %s\n%s\n\n",
		divider, today.Format("2006-01-02"), divider)

	fmt.Fprintf(w, "%-25s %-40s %-12s %-8s %s\n", "Category", "Table", "Last Update", "Age", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 95))

	rows := BuildStatusRows(reg, res, today)
	lastCategory := ""
	for _, r := range rows {
		category := r.Category
		if category == lastCategory {
			category = ""
		} else if lastCategory != "" {
			fmt.Fprintln(w)
		}
		lastCategory = r.Category
		fmt.Fprintf(w, "%-25s %-40s %-12s %-8s %s %s\n",
			category, r.Table, r.LastUpdate, r.Age, r.Symbol, r.StatusName)
	}
	fmt.Fprintln(w, strings.Repeat("-", 95))

	counts := CountStatuses(rows)
	fmt.Fprintf(w, "\nSTATUS LEGEND:\n")
	legend := []struct {
		status freshness.Status
		desc   string
	}{
		{freshness.StatusCurrent, "Current (<=7 days)"},
		{freshness.StatusRecent, "Recent (8-30 days)"},
		{freshness.StatusOutdated, "Outdated (31-90 days)"},
		{freshness.StatusStale, "Stale (91-365 days)"},
		{freshness.StatusCritical, "CRITICAL (>365 days)"},
		{freshness.StatusNoData, "N/A (no date column)"},
		{freshness.StatusError, "Error (table missing)"},
	}
	for _, l := range legend {
		fmt.Fprintf(w, "  %s %-24s: %d\n", l.status.Symbol(), l.desc, counts[l.status])
	}

	printTriggerSection(w, reg, res, today)
	printViewsSection(w, res)
}

func printTriggerSection(w io.Writer, reg *config.Registry, res *ScanResult, today time.Time) {
	rows := BuildTriggerRows(res, today)
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\nTRIGGER STATUS BY COUNTRY\n%s\n\n", divider, divider)
	fmt.Fprintf(w, "%-8s %-15s %-10s %-15s %s\n", "Country", "Last Trigger", "Age", "Triggers Fired", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	sorted := make([]TriggerRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LastDate > sorted[j].LastDate })

	for _, r := range sorted {
		last := r.LastDate
		if last == "" {
			last = "N/A"
		}
		fmt.Fprintf(w, "%-8s %-15s %-10s %-15d %s %s\n",
			r.Entity, last, r.Age, r.TriggersFired, r.Symbol, r.StatusName)
	}

	if missing := MissingTriggerEntities(reg, res); len(missing) > 0 {
		sort.Strings(missing)
		fmt.Fprintf(w, "\nENABLED COUNTRIES WITHOUT TRIGGERS: %s\n", strings.Join(missing, ", "))
	}
}

func printViewsSection(w io.Writer, res *ScanResult) {
	views := res.DomainFacts.ViewStatus
	if len(views) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\nSQL VIEWS STATUS\n%s\n\n", divider, divider)

	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := views[name]
		if info.Exists {
			fmt.Fprintf(w, "  + %s: %s rows\n", name, humanize.Comma(info.RowCount))
		} else {
			fmt.Fprintf(w, "  x %s: %s\n", name, info.Error)
		}
	}
}
