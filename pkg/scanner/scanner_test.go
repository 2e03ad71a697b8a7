package scanner

import (
	"reflect"
	"testing"
	"time"

	"dbpulse/pkg/config"
	"dbpulse/pkg/report"
)

func TestPartitionSchemas(t *testing.T) {
	databases := []string{"information_schema", "idb", "rbp", "mysql"}

	present, missing := partitionSchemas([]string{"idb", "rbp", "rtm_raw"}, databases)
	if !reflect.DeepEqual(present, []string{"idb", "rbp"}) {
		t.Errorf("present = %v", present)
	}
	if !reflect.DeepEqual(missing, []string{"rtm_raw"}) {
		t.Errorf("missing = %v", missing)
	}

	present, missing = partitionSchemas([]string{"rtm_raw"}, databases)
	if present != nil {
		t.Errorf("present = %v, want none", present)
	}
	if !reflect.DeepEqual(missing, []string{"rtm_raw"}) {
		t.Errorf("missing = %v", missing)
	}
}

func TestPrimarySchemaScanned(t *testing.T) {
	s := &Scanner{reg: &config.Registry{PrimarySchema: "idb"}}
	res := report.NewScanResult("dev", "db.internal.example", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	if s.primarySchemaScanned(res) {
		t.Error("battery precondition held without a scanned primary schema")
	}

	res.Schemas["rbp"] = report.NewSchemaReport()
	if s.primarySchemaScanned(res) {
		t.Error("battery precondition held with only a non-primary schema scanned")
	}

	res.Schemas["idb"] = report.NewSchemaReport()
	if !s.primarySchemaScanned(res) {
		t.Error("battery precondition missed the scanned primary schema")
	}
}
