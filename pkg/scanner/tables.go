// pkg/scanner/tables.go
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbpulse/pkg/config"
	"dbpulse/pkg/report"
)

const (
	// ExactCountThreshold is the estimated row count below which the scanner
	// pays for an exact COUNT(*) instead of trusting the optimizer statistic.
	ExactCountThreshold = 100_000

	sampleRowLimit    = 3
	sampleColumnLimit = 20
)

// blobTypes are column type prefixes excluded from sampling. Their payloads
// are large and meaningless in a JSON document.
var blobTypes = []string{"blob", "longblob", "mediumblob", "tinyblob", "binary", "varbinary"}

// temporalNames are column names treated as temporal regardless of declared
// type, covering date-like columns stored as strings or integers.
var temporalNames = map[string]bool{
	"date":        true,
	"year":        true,
	"end_date":    true,
	"start_date":  true,
	"last_update": true,
	"create_date": true,
}

type describeRow struct {
	Field   string         `db:"Field"`
	Type    string         `db:"Type"`
	Null    string         `db:"Null"`
	Key     string         `db:"Key"`
	Default sql.NullString `db:"Default"`
	Extra   string         `db:"Extra"`
}

// needsExactCount decides whether an information_schema estimate is small
// enough to verify with a real COUNT(*).
func needsExactCount(estimate int64) bool {
	return estimate < ExactCountThreshold
}

func isBlobColumn(declaredType string) bool {
	t := strings.ToLower(declaredType)
	for _, b := range blobTypes {
		if strings.Contains(t, b) {
			return true
		}
	}
	return false
}

// isTemporalColumn reports whether a column looks like it carries dates,
// either by declared type or by a conventional name.
func isTemporalColumn(name, declaredType string) bool {
	t := strings.ToLower(declaredType)
	if strings.Contains(t, "date") || strings.Contains(t, "datetime") || strings.Contains(t, "timestamp") {
		return true
	}
	return temporalNames[strings.ToLower(name)]
}

// detectDateColumns returns the temporal columns in declaration order.
func detectDateColumns(cols []report.Column) []report.Column {
	var out []report.Column
	for _, c := range cols {
		if isTemporalColumn(c.Name, c.Type) {
			out = append(out, c)
		}
	}
	return out
}

// sampleColumns picks the columns worth sampling: non-blob, capped at
// sampleColumnLimit, in declaration order.
func sampleColumns(cols []report.Column) []string {
	var out []string
	for _, c := range cols {
		if isBlobColumn(c.Type) {
			continue
		}
		out = append(out, c.Name)
		if len(out) == sampleColumnLimit {
			break
		}
	}
	return out
}

// quoteIdent wraps a MySQL identifier in backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// qualify builds a backtick-quoted schema.table reference. Every query is
// schema-qualified; the scanner never issues USE.
func qualify(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

// collectTableDetail gathers the full per-table picture: structure, row
// count, a small sample, and the span of the first temporal column. Each
// sub-operation failure degrades that field rather than the whole table.
func (s *Scanner) collectTableDetail(ctx context.Context, res *report.ScanResult, schema, table, tableType string) *report.TableDetail {
	detail := &report.TableDetail{Type: tableType}

	cols, err := s.describeTable(ctx, schema, table)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	detail.Columns = cols
	detail.ColumnCount = len(cols)

	count, estimated, err := s.rowCount(ctx, schema, table)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	detail.RowCount = count
	detail.RowCountEstimated = estimated

	sample, err := s.sampleRows(ctx, schema, table, cols)
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	detail.Sample = sample

	if dateCols := detectDateColumns(cols); len(dateCols) > 0 {
		rng, err := s.dateRange(ctx, schema, table, dateCols[0].Name)
		if err != nil {
			res.AddError(report.ScanError{
				Schema:    schema,
				Table:     table,
				Operation: "date_range",
				Error:     err.Error(),
			})
		} else if rng != nil {
			detail.DateRange = rng
		}
	}

	return detail
}

func (s *Scanner) describeTable(ctx context.Context, schema, table string) ([]report.Column, error) {
	var rows []describeRow
	err := s.withTimeout(ctx, "describe", func(qctx context.Context) error {
		return s.conn.DB().SelectContext(qctx, &rows, "DESCRIBE "+qualify(schema, table))
	})
	if err != nil {
		return nil, fmt.Errorf("describe %s.%s: %w", schema, table, err)
	}

	cols := make([]report.Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, report.Column{Name: r.Field, Type: r.Type})
	}
	return cols, nil
}

// rowCount returns the table's row count and whether it is an optimizer
// estimate. Small tables and tables with no statistic get an exact COUNT(*).
func (s *Scanner) rowCount(ctx context.Context, schema, table string) (int64, bool, error) {
	var estimate sql.NullInt64
	err := s.withTimeout(ctx, "row_estimate", func(qctx context.Context) error {
		return s.conn.DB().GetContext(qctx, &estimate,
			"SELECT TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?",
			schema, table)
	})
	if err != nil {
		return 0, false, fmt.Errorf("row estimate %s.%s: %w", schema, table, err)
	}

	if estimate.Valid && !needsExactCount(estimate.Int64) {
		return estimate.Int64, true, nil
	}

	var exact int64
	err = s.withTimeout(ctx, "row_count", func(qctx context.Context) error {
		return s.conn.DB().GetContext(qctx, &exact, "SELECT COUNT(*) FROM "+qualify(schema, table))
	})
	if err != nil {
		return 0, false, fmt.Errorf("count %s.%s: %w", schema, table, err)
	}
	return exact, false, nil
}

func (s *Scanner) sampleRows(ctx context.Context, schema, table string, cols []report.Column) ([]report.Row, error) {
	names := sampleColumns(cols)
	if len(names) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d",
		strings.Join(quoted, ", "), qualify(schema, table), sampleRowLimit)

	var sample []report.Row
	err := s.withTimeout(ctx, "sample", func(qctx context.Context) error {
		rows, err := s.conn.DB().QueryxContext(qctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		sample = nil
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return err
			}
			sample = append(sample, report.NormalizeRow(row))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", schema, table, err)
	}
	return sample, nil
}

func (s *Scanner) dateRange(ctx context.Context, schema, table, column string) (*report.DateRange, error) {
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s",
		quoteIdent(column), quoteIdent(column), qualify(schema, table))

	var minVal, maxVal any
	err := s.withTimeout(ctx, "date_range", func(qctx context.Context) error {
		return s.conn.DB().QueryRowxContext(qctx, query).Scan(&minVal, &maxVal)
	})
	if err != nil {
		return nil, fmt.Errorf("date range %s.%s(%s): %w", schema, table, column, err)
	}

	return newDateRange(column, minVal, maxVal), nil
}

// newDateRange builds a date-range record, or nil for an empty table: MIN of
// zero rows is NULL and a NULL span is no span at all.
func newDateRange(column string, minVal, maxVal any) *report.DateRange {
	if minVal == nil {
		return nil
	}
	return &report.DateRange{
		Column: column,
		Min:    report.Stringify(minVal),
		Max:    report.Stringify(maxVal),
	}
}

// withTimeout runs fn under the standard query deadline and the shared
// retry-with-reconnect policy. fn must fully consume any result set before
// returning since the deadline is released on return.
func (s *Scanner) withTimeout(ctx context.Context, op string, fn func(context.Context) error) error {
	return execWithReconnect(ctx, s.conn, s.logger, op, func() error {
		qctx, cancel := context.WithTimeout(ctx, config.QueryTimeout)
		defer cancel()
		return fn(qctx)
	})
}
