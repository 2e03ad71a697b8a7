// pkg/report/csv.go
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dbpulse/pkg/config"
)

// ExportCSV writes the flattened tabular views of a scan document into dir,
// one file per view plus a metadata file, mirroring the spreadsheet layout
// of the interactive viewer. It returns the written file paths.
func ExportCSV(dir string, reg *config.Registry, res *ScanResult, today time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	var written []string

	statusRows := BuildStatusRows(reg, res, today)
	records := [][]string{{"category", "table", "last_update", "age", "status"}}
	for _, r := range statusRows {
		records = append(records, []string{r.Category, r.Table, r.LastUpdate, r.Age, r.StatusName})
	}
	path, err := writeCSV(dir, "table_status.csv", records)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	triggerRows := BuildTriggerRows(res, today)
	records = [][]string{{"entity", "last_trigger", "age", "triggers_fired", "status"}}
	for _, r := range triggerRows {
		records = append(records, []string{
			r.Entity, r.LastDate, r.Age, strconv.FormatInt(r.TriggersFired, 10), r.StatusName,
		})
	}
	path, err = writeCSV(dir, "trigger_status.csv", records)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	records = [][]string{{"view", "exists", "row_count", "error"}}
	if res.DomainFacts != nil {
		for _, name := range reg.KnownViews {
			info := res.DomainFacts.ViewStatus[name]
			if info == nil {
				continue
			}
			records = append(records, []string{
				name, strconv.FormatBool(info.Exists), strconv.FormatInt(info.RowCount, 10), info.Error,
			})
		}
	}
	path, err = writeCSV(dir, "views_status.csv", records)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	m := res.Metadata
	records = [][]string{
		{"field", "value"},
		{"scan_id", m.ScanID},
		{"environment", m.Environment},
		{"host", m.Host},
		{"timestamp", m.Timestamp},
		{"tool_version", m.ToolVersion},
		{"errors", strconv.Itoa(len(res.Errors))},
	}
	path, err = writeCSV(dir, "metadata.csv", records)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	return written, nil
}

func writeCSV(dir, name string, records [][]string) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
