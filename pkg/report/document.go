// pkg/report/document.go
package report

import (
	"time"

	"github.com/google/uuid"

	"dbpulse/pkg/config"
)

// ToolVersion is embedded in every scan document's metadata.
const ToolVersion = "1.6.0"

// Row is one normalized record from a sample or domain query. Values are
// restricted to JSON primitives so the document serializes deterministically.
type Row map[string]any

// Metadata describes one scan invocation
type Metadata struct {
	ScanID      string      `json:"scan_id"`
	Environment string      `json:"environment"`
	Host        string      `json:"host"`
	Timestamp   string      `json:"timestamp"`
	ToolVersion string      `json:"tool_version"`
	Timeouts    TimeoutInfo `json:"timeouts"`
}

// TimeoutInfo records the timeouts the scan ran with
type TimeoutInfo struct {
	ConnectSeconds int `json:"connect"`
	ReadSeconds    int `json:"read"`
	WriteSeconds   int `json:"write"`
}

// Column holds the name and declared type of one table column
type Column struct {
	Name string `json:"name"`
	Type string `json:"declared_type"`
}

// DateRange is the min/max of the first detected temporal column
type DateRange struct {
	Column string `json:"column"`
	Min    string `json:"min"`
	Max    string `json:"max"`
}

// TableDetail holds per-table metadata. When gathering the detail failed,
// Error carries the message and the remaining fields are zero.
type TableDetail struct {
	Type              string     `json:"type,omitempty"`
	RowCount          int64      `json:"row_count"`
	RowCountEstimated bool       `json:"row_count_estimated"`
	ColumnCount       int        `json:"column_count"`
	Columns           []Column   `json:"columns,omitempty"`
	Sample            []Row      `json:"sample_data,omitempty"`
	DateRange         *DateRange `json:"date_range,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// SchemaReport holds the inventory of one explored schema
type SchemaReport struct {
	Tables       []string                `json:"tables"`
	Views        []string                `json:"views"`
	TableDetails map[string]*TableDetail `json:"table_details"`
}

// NewSchemaReport creates an empty schema report
func NewSchemaReport() *SchemaReport {
	return &SchemaReport{
		Tables:       []string{},
		Views:        []string{},
		TableDetails: make(map[string]*TableDetail),
	}
}

// LastUpdate is the freshness probe result for one business table
type LastUpdate struct {
	Column     string `json:"column,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TriggerEntry aggregates trigger outcomes for one entity (country)
type TriggerEntry struct {
	Entity        string `json:"entity"`
	LastDate      string `json:"last_date"`
	TriggersFired int64  `json:"triggers_fired"`
}

// ViewStatus is the existence/row-count probe result for one known view
type ViewStatus struct {
	Exists   bool   `json:"exists"`
	RowCount int64  `json:"row_count"`
	Error    string `json:"error,omitempty"`
}

// DomainFacts holds the business-specific query results gathered from the
// primary schema.
type DomainFacts struct {
	EnabledEntities      []Row                  `json:"enabled_entities"`
	EnabledEntitiesError string                 `json:"enabled_entities_error,omitempty"`
	LastUpdates          map[string]*LastUpdate `json:"last_updates"`
	TriggerSummary       []TriggerEntry         `json:"trigger_summary,omitempty"`
	TriggerSummaryError  string                 `json:"trigger_summary_error,omitempty"`
	LastTriggerRun       string                 `json:"last_trigger_run,omitempty"`
	ViewStatus           map[string]*ViewStatus `json:"views_status"`
}

// NewDomainFacts creates an empty domain facts block
func NewDomainFacts() *DomainFacts {
	return &DomainFacts{
		EnabledEntities: []Row{},
		LastUpdates:     make(map[string]*LastUpdate),
		ViewStatus:      make(map[string]*ViewStatus),
	}
}

// EnabledCodes extracts the entity codes from the enabled-entities rows.
func (f *DomainFacts) EnabledCodes(entityColumn string) []string {
	var codes []string
	for _, row := range f.EnabledEntities {
		for _, key := range []string{entityColumn, "iso3", "ISO3"} {
			if v, ok := row[key]; ok {
				if s := Stringify(v); s != "" {
					codes = append(codes, s)
				}
				break
			}
		}
	}
	return codes
}

// ScanError is one structured error record, scoped to the schema, table or
// operation where it occurred. The document's error list is append-only
// during a scan.
type ScanError struct {
	Schema    string `json:"schema,omitempty"`
	Table     string `json:"table,omitempty"`
	Operation string `json:"operation,omitempty"`
	Error     string `json:"error"`
}

// ScanResult is the single document produced by one scan invocation. It is
// immutable once the scan returns; a new scan produces a wholly new document.
type ScanResult struct {
	Metadata    Metadata                 `json:"metadata"`
	Databases   []string                 `json:"databases"`
	Schemas     map[string]*SchemaReport `json:"schemas"`
	DomainFacts *DomainFacts             `json:"domain_facts,omitempty"`
	Errors      []ScanError              `json:"errors"`
}

// NewScanResult creates a scan document shell with populated metadata
func NewScanResult(environment, host string, now time.Time) *ScanResult {
	return &ScanResult{
		Metadata: Metadata{
			ScanID:      uuid.New().String(),
			Environment: environment,
			Host:        host,
			Timestamp:   now.UTC().Format(time.RFC3339),
			ToolVersion: ToolVersion,
			Timeouts: TimeoutInfo{
				ConnectSeconds: int(config.ConnectTimeout.Seconds()),
				ReadSeconds:    int(config.ReadTimeout.Seconds()),
				WriteSeconds:   int(config.WriteTimeout.Seconds()),
			},
		},
		Databases: []string{},
		Schemas:   make(map[string]*SchemaReport),
		Errors:    []ScanError{},
	}
}

// AddError appends a structured error record to the document
func (r *ScanResult) AddError(e ScanError) {
	r.Errors = append(r.Errors, e)
}

// TotalCounts sums tables, views and (possibly estimated) rows across all
// explored schemas.
func (r *ScanResult) TotalCounts() (tables, views int, rows int64) {
	for _, schema := range r.Schemas {
		tables += len(schema.Tables)
		views += len(schema.Views)
		for _, d := range schema.TableDetails {
			if d.Error == "" {
				rows += d.RowCount
			}
		}
	}
	return tables, views, rows
}
