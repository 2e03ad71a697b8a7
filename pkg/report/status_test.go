package report

import (
	"testing"
	"time"

	"dbpulse/pkg/config"
	"dbpulse/pkg/freshness"
)

func statusFixture() (*config.Registry, *ScanResult) {
	reg := &config.Registry{
		Schemas:        []string{"idb"},
		PrimarySchema:  "idb",
		BusinessTables: []string{"RBP_fcs", "RBP_rcsi", "RBP_market_price"},
		EntityColumn:   "iso3",
		Categories: []config.Category{
			{Name: "Food Security", Tables: []string{"RBP_fcs", "RBP_rcsi"}},
			{Name: "Markets", Tables: []string{"RBP_market_price"}},
		},
	}

	res := NewScanResult("dev", "db.internal.example", time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	facts := NewDomainFacts()
	facts.LastUpdates["RBP_fcs"] = &LastUpdate{Column: "date", LastUpdate: "2024-06-10"}
	facts.LastUpdates["RBP_rcsi"] = &LastUpdate{Column: "date", LastUpdate: "2023-11-28"}
	// Scanned, but the table carries no temporal column at all.
	facts.LastUpdates["RBP_market_price"] = &LastUpdate{}
	res.DomainFacts = facts
	return reg, res
}

func TestBuildStatusRows(t *testing.T) {
	reg, res := statusFixture()
	today := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	rows := BuildStatusRows(reg, res, today)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	want := []struct {
		table  string
		status freshness.Status
		age    string
		last   string
	}{
		{"RBP_fcs", freshness.StatusCurrent, "5d", "2024-06-10"},
		{"RBP_rcsi", freshness.StatusStale, "200d", "2023-11-28"},
		{"RBP_market_price", freshness.StatusNoData, "N/A", "N/A"},
	}
	for i, w := range want {
		r := rows[i]
		if r.Table != w.table {
			t.Errorf("row %d table = %s, want %s", i, r.Table, w.table)
		}
		if r.Status != w.status {
			t.Errorf("%s: status = %s, want %s", w.table, r.Status, w.status)
		}
		if r.Age != w.age {
			t.Errorf("%s: age = %q, want %q", w.table, r.Age, w.age)
		}
		if r.LastUpdate != w.last {
			t.Errorf("%s: last update = %q, want %q", w.table, r.LastUpdate, w.last)
		}
	}

	if rows[0].Category != "Food Security" || rows[2].Category != "Markets" {
		t.Errorf("category ordering broken: %+v", rows)
	}

	counts := CountStatuses(rows)
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 3 {
		t.Errorf("status counts sum to %d, want 3", total)
	}
	if counts[freshness.StatusCurrent] != 1 || counts[freshness.StatusStale] != 1 || counts[freshness.StatusNoData] != 1 {
		t.Errorf("unexpected tallies: %v", counts)
	}
}

func TestBuildStatusRowsLookupFailure(t *testing.T) {
	reg, res := statusFixture()
	res.DomainFacts.LastUpdates["RBP_market_price"] = &LastUpdate{
		Error: "Error 1146: Table 'idb.RBP_market_price' doesn't exist",
	}

	rows := BuildStatusRows(reg, res, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	last := rows[len(rows)-1]
	if last.Status != freshness.StatusError {
		t.Errorf("failed lookup status = %s, want %s", last.Status, freshness.StatusError)
	}
	if last.LastUpdate != "-" || last.Age != "-" {
		t.Errorf("failed lookup row = %+v", last)
	}
}

func TestBuildStatusRowsTableNeverScanned(t *testing.T) {
	reg, res := statusFixture()
	delete(res.DomainFacts.LastUpdates, "RBP_market_price")

	rows := BuildStatusRows(reg, res, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	last := rows[len(rows)-1]
	if last.Status != freshness.StatusNoData {
		t.Errorf("missing table status = %s, want %s", last.Status, freshness.StatusNoData)
	}
	if last.LastUpdate != "N/A" || last.Age != "N/A" {
		t.Errorf("missing table row = %+v", last)
	}
}

func TestBuildTriggerRows(t *testing.T) {
	_, res := statusFixture()
	res.DomainFacts.TriggerSummary = []TriggerEntry{
		{Entity: "HTI", LastDate: "2024-06-01", TriggersFired: 3},
		{Entity: "DOM", LastDate: "2022-01-01", TriggersFired: 0},
	}
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	rows := BuildTriggerRows(res, today)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Status != freshness.StatusRecent {
		t.Errorf("HTI status = %s, want %s", rows[0].Status, freshness.StatusRecent)
	}
	if rows[1].Status != freshness.StatusCritical {
		t.Errorf("DOM status = %s, want %s", rows[1].Status, freshness.StatusCritical)
	}
}

func TestMissingTriggerEntities(t *testing.T) {
	reg, res := statusFixture()
	res.DomainFacts.EnabledEntities = []Row{
		{"iso3": "HTI"},
		{"iso3": "DOM"},
		{"iso3": "JAM"},
	}
	res.DomainFacts.TriggerSummary = []TriggerEntry{
		{Entity: "HTI", LastDate: "2024-06-01", TriggersFired: 1},
	}

	missing := MissingTriggerEntities(reg, res)
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want 2 entries", missing)
	}
	seen := map[string]bool{}
	for _, m := range missing {
		seen[m] = true
	}
	if !seen["DOM"] || !seen["JAM"] {
		t.Errorf("missing = %v", missing)
	}
}
