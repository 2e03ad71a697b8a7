// pkg/report/status.go
package report

import (
	"time"

	"dbpulse/pkg/config"
	"dbpulse/pkg/freshness"
)

// StatusRow is one classified line of the update-status report: a business
// table, its last update, and the freshness tier. Shared by the text report,
// the CSV export and the dashboard API.
type StatusRow struct {
	Category   string           `json:"category"`
	Table      string           `json:"table"`
	LastUpdate string           `json:"last_update"`
	Age        string           `json:"age"`
	Status     freshness.Status `json:"-"`
	StatusName string           `json:"status"`
	Symbol     string           `json:"symbol"`
}

// TriggerRow is one classified line of the per-country trigger report
type TriggerRow struct {
	Entity        string           `json:"entity"`
	LastDate      string           `json:"last_date"`
	Age           string           `json:"age"`
	TriggersFired int64            `json:"triggers_fired"`
	Status        freshness.Status `json:"-"`
	StatusName    string           `json:"status"`
	Symbol        string           `json:"symbol"`
}

// BuildStatusRows flattens the document's last-update facts into classified
// rows, ordered by the registry's display categories. Exactly one status
// applies per table: lookup errors classify as Error, an absent timestamp as
// NoData, everything else by age.
func BuildStatusRows(reg *config.Registry, res *ScanResult, today time.Time) []StatusRow {
	var rows []StatusRow
	if res == nil || res.DomainFacts == nil {
		return rows
	}
	facts := res.DomainFacts

	for _, cat := range reg.Categories {
		for _, table := range cat.Tables {
			row := StatusRow{Category: cat.Name, Table: table, LastUpdate: "N/A"}

			info := facts.LastUpdates[table]
			switch {
			case info == nil:
				c := freshness.Classification{Status: freshness.StatusNoData, Age: "N/A"}
				row.Age, row.Status = c.Age, c.Status
			case info.Error != "":
				row.LastUpdate = "-"
				row.Age = "-"
				row.Status = freshness.StatusError
			default:
				c := freshness.Classify(info.LastUpdate, today)
				row.Age, row.Status = c.Age, c.Status
				if info.LastUpdate != "" {
					row.LastUpdate = truncateDate(info.LastUpdate)
				}
			}

			row.StatusName = row.Status.Label()
			row.Symbol = row.Status.Symbol()
			rows = append(rows, row)
		}
	}
	return rows
}

// BuildTriggerRows classifies the per-entity trigger summary by recency.
func BuildTriggerRows(res *ScanResult, today time.Time) []TriggerRow {
	var rows []TriggerRow
	if res == nil || res.DomainFacts == nil {
		return rows
	}

	for _, t := range res.DomainFacts.TriggerSummary {
		c := freshness.Classify(t.LastDate, today)
		rows = append(rows, TriggerRow{
			Entity:        t.Entity,
			LastDate:      t.LastDate,
			Age:           c.Age,
			TriggersFired: t.TriggersFired,
			Status:        c.Status,
			StatusName:    c.Status.Label(),
			Symbol:        c.Status.Symbol(),
		})
	}
	return rows
}

// CountStatuses tallies rows per freshness tier.
func CountStatuses(rows []StatusRow) map[freshness.Status]int {
	counts := make(map[freshness.Status]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	return counts
}

// MissingTriggerEntities returns enabled entities that never appear in the
// trigger summary: countries expected to trigger but silent.
func MissingTriggerEntities(reg *config.Registry, res *ScanResult) []string {
	if res == nil || res.DomainFacts == nil {
		return nil
	}
	facts := res.DomainFacts

	triggered := make(map[string]bool, len(facts.TriggerSummary))
	for _, t := range facts.TriggerSummary {
		triggered[t.Entity] = true
	}

	var missing []string
	for _, code := range facts.EnabledCodes(reg.EntityColumn) {
		if !triggered[code] {
			missing = append(missing, code)
		}
	}
	return missing
}

func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
