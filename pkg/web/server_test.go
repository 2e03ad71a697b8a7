package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dbpulse/pkg/config"
	"dbpulse/pkg/report"
)

type fakeRunner struct {
	mu     sync.Mutex
	result *report.ScanResult
	err    error
	calls  int
	done   chan struct{}
}

func (f *fakeRunner) RunScan(ctx context.Context, environment string) (*report.ScanResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		defer close(f.done)
	}
	return f.result, f.err
}

func testResult() *report.ScanResult {
	res := report.NewScanResult("dev", "db.internal.example", time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	res.Databases = []string{"idb"}
	facts := report.NewDomainFacts()
	facts.LastUpdates["RBP_fcs"] = &report.LastUpdate{Column: "date", LastUpdate: "2024-06-10"}
	facts.ViewStatus["RBP_view"] = &report.ViewStatus{Exists: true, RowCount: 10}
	res.DomainFacts = facts
	return res
}

func testRegistry() *config.Registry {
	return &config.Registry{
		Schemas:        []string{"idb"},
		PrimarySchema:  "idb",
		BusinessTables: []string{"RBP_fcs"},
		EntityColumn:   "iso3",
		Categories:     []config.Category{{Name: "Food Security", Tables: []string{"RBP_fcs"}}},
	}
}

func TestReadEndpointsBeforeFirstScan(t *testing.T) {
	srv := NewServer(&fakeRunner{}, testRegistry(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/report", "/api/status", "/api/triggers", "/api/summary"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s before scan: status %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&fakeRunner{}, testRegistry(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestScanThenRead(t *testing.T) {
	runner := &fakeRunner{result: testResult(), done: make(chan struct{})}
	srv := NewServer(runner, testRegistry(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/scan?env=dev", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("scan status = %d, want 202", resp.StatusCode)
	}

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan never ran")
	}

	// The document is stored after RunScan returns; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	var status int
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatal(err)
		}
		status = resp.StatusCode
		if status == http.StatusOK {
			var body struct {
				Rows []report.StatusRow `json:"rows"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if len(body.Rows) != 1 || body.Rows[0].Table != "RBP_fcs" {
				t.Errorf("rows = %+v", body.Rows)
			}
			return
		}
		resp.Body.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("status endpoint never became ready, last status %d", status)
}

func TestPreloadedDocument(t *testing.T) {
	srv := NewServer(&fakeRunner{}, testRegistry(), testResult())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/summary")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["environment"] != "dev" {
		t.Errorf("environment = %v", body["environment"])
	}
	if body["databases"] != float64(1) {
		t.Errorf("databases = %v", body["databases"])
	}
}

func TestViewsEndpoint(t *testing.T) {
	srv := NewServer(&fakeRunner{}, testRegistry(), testResult())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/views")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var views map[string]*report.ViewStatus
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if v := views["RBP_view"]; v == nil || !v.Exists || v.RowCount != 10 {
		t.Errorf("views = %+v", views)
	}
}
