// pkg/report/save.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Filename returns the conventional name for a saved scan document:
// db_scan_<environment>_<yyyymmdd_hhmmss>.json
func Filename(environment string, now time.Time) string {
	return fmt.Sprintf("db_scan_%s_%s.json", environment, now.Format("20060102_150405"))
}

// Save writes the document to dir as indented JSON and returns the full path.
func Save(dir string, res *ScanResult, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, Filename(res.Metadata.Environment, now))

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scan document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write scan document: %w", err)
	}
	return path, nil
}

// Load reads a previously saved scan document.
func Load(path string) (*ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan document: %w", err)
	}
	var res ScanResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse scan document: %w", err)
	}
	return &res, nil
}
