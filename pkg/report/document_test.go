package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixtureResult(t *testing.T) *ScanResult {
	t.Helper()
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	res := NewScanResult("dev", "db.internal.example", now)

	res.Databases = []string{"idb", "information_schema"}
	schema := NewSchemaReport()
	schema.Tables = []string{"RBP_fcs"}
	schema.Views = []string{"RBP_combined_prevalence_fs"}
	schema.TableDetails["RBP_fcs"] = &TableDetail{
		Type:              "BASE TABLE",
		RowCount:          1234,
		RowCountEstimated: false,
		ColumnCount:       2,
		Columns:           []Column{{Name: "iso3", Type: "varchar(3)"}, {Name: "date", Type: "date"}},
		Sample:            []Row{{"iso3": "HTI", "date": "2024-06-10"}},
		DateRange:         &DateRange{Column: "date", Min: "2020-01-01", Max: "2024-06-10"},
	}
	res.Schemas["idb"] = schema

	facts := NewDomainFacts()
	facts.EnabledEntities = []Row{{"iso3": "HTI", "enabled": int64(1)}}
	facts.LastUpdates["RBP_fcs"] = &LastUpdate{Column: "date", LastUpdate: "2024-06-10"}
	facts.TriggerSummary = []TriggerEntry{{Entity: "HTI", LastDate: "2024-06-01", TriggersFired: 3}}
	facts.LastTriggerRun = "2024-06-01"
	facts.ViewStatus["RBP_combined_prevalence_fs"] = &ViewStatus{Exists: true, RowCount: 42}
	res.DomainFacts = facts

	res.AddError(ScanError{Schema: "rbp", Table: "broken", Operation: "date_range", Error: "table is marked as crashed"})
	return res
}

// Serializing a document and reading it back must yield the same JSON: all
// non-primitive values are normalized to strings before they enter the
// document, so nothing changes shape on the way through.
func TestScanResultRoundTrip(t *testing.T) {
	res := fixtureResult(t)

	first, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ScanResult
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, err := json.Marshal(&decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("round trip changed the document:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestSaveAndLoad(t *testing.T) {
	res := fixtureResult(t)
	now := time.Date(2024, 6, 15, 9, 30, 45, 0, time.UTC)

	dir := t.TempDir()
	path, err := Save(dir, res, now)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	want := filepath.Join(dir, "db_scan_dev_20240615_093045.json")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Metadata.ScanID != res.Metadata.ScanID {
		t.Error("scan id lost in round trip")
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0].Operation != "date_range" {
		t.Errorf("errors lost in round trip: %+v", loaded.Errors)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{[]byte("hello"), "hello"},
		{[]byte{0xff, 0xfe, 0x01}, "<binary data>"},
		{ts, "2024-05-01"},
		{ts.Add(13*time.Hour + 5*time.Minute), "2024-05-01 13:05:00"},
		{int64(7), int64(7)},
		{int32(7), int64(7)},
		{3.5, 3.5},
	}
	for _, c := range cases {
		if got := NormalizeValue(c.in); got != c.want {
			t.Errorf("NormalizeValue(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStringify(t *testing.T) {
	if got := Stringify(nil); got != "" {
		t.Errorf("Stringify(nil) = %q", got)
	}
	if got := Stringify([]byte("2024-05-01")); got != "2024-05-01" {
		t.Errorf("Stringify(date bytes) = %q", got)
	}
	if got := Stringify(int64(100000)); got != "100000" {
		t.Errorf("Stringify(int64) = %q", got)
	}
}

func TestEnabledCodes(t *testing.T) {
	facts := NewDomainFacts()
	facts.EnabledEntities = []Row{
		{"iso3": "HTI", "enabled": int64(1)},
		{"iso3": "DOM", "enabled": int64(1)},
	}
	codes := facts.EnabledCodes("iso3")
	if strings.Join(codes, ",") != "HTI,DOM" {
		t.Errorf("codes = %v", codes)
	}
}
