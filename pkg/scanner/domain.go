// pkg/scanner/domain.go
package scanner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dbpulse/pkg/report"
)

// collectDomainFacts runs the business battery against the primary schema:
// enabled entities, per-table last updates, the trigger summary, and the
// known-view checks. Every probe fails independently; its error lands in the
// corresponding document field.
func (s *Scanner) collectDomainFacts(ctx context.Context, res *report.ScanResult) *report.DomainFacts {
	schema := s.reg.PrimarySchema
	logger := s.logger.With(zap.String("schema", schema))
	logger.Info("Collecting domain facts")

	facts := report.NewDomainFacts()

	if entities, err := s.enabledEntities(ctx, schema); err != nil {
		facts.EnabledEntitiesError = err.Error()
		logger.Warn("Enabled entity lookup failed", zap.Error(err))
	} else {
		facts.EnabledEntities = entities
		logger.Info("Enabled entities", zap.Int("count", len(entities)))
	}

	for _, table := range s.reg.BusinessTables {
		if ctx.Err() != nil {
			return facts
		}
		facts.LastUpdates[table] = s.lastUpdate(ctx, res, schema, table)
	}

	if entries, err := s.triggerSummary(ctx, schema); err != nil {
		facts.TriggerSummaryError = err.Error()
		logger.Warn("Trigger summary failed", zap.Error(err))
	} else {
		facts.TriggerSummary = entries
		if len(entries) > 0 {
			facts.LastTriggerRun = entries[0].LastDate
		}
	}

	for _, view := range s.reg.KnownViews {
		if ctx.Err() != nil {
			return facts
		}
		facts.ViewStatus[view] = s.viewStatus(ctx, schema, view)
	}

	return facts
}

// enabledEntities returns the rows of the mapping table flagged enabled.
func (s *Scanner) enabledEntities(ctx context.Context, schema string) ([]report.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = 1",
		qualify(schema, s.reg.MappingTable), quoteIdent(s.reg.EnabledColumn))

	var entities []report.Row
	err := s.withTimeout(ctx, "enabled_entities", func(qctx context.Context) error {
		rows, err := s.conn.DB().QueryxContext(qctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		entities = nil
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return err
			}
			entities = append(entities, report.NormalizeRow(row))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("enabled entities from %s.%s: %w", schema, s.reg.MappingTable, err)
	}
	return entities, nil
}

// lastUpdate finds the most recent value of a table's first temporal column.
// A table with no temporal column yields an empty entry, which classifies as
// having no data; Error is reserved for lookups that actually failed.
func (s *Scanner) lastUpdate(ctx context.Context, res *report.ScanResult, schema, table string) *report.LastUpdate {
	cols := s.columnsFor(res, schema, table)
	if cols == nil {
		described, err := s.describeTable(ctx, schema, table)
		if err != nil {
			return &report.LastUpdate{Error: err.Error()}
		}
		cols = described
	}

	dateCols := detectDateColumns(cols)
	if len(dateCols) == 0 {
		return &report.LastUpdate{}
	}
	column := dateCols[0].Name

	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", quoteIdent(column), qualify(schema, table))
	var raw any
	err := s.withTimeout(ctx, "last_update", func(qctx context.Context) error {
		return s.conn.DB().QueryRowxContext(qctx, query).Scan(&raw)
	})
	if err != nil {
		return &report.LastUpdate{Column: column, Error: err.Error()}
	}

	return &report.LastUpdate{Column: column, LastUpdate: report.Stringify(raw)}
}

// columnsFor reuses columns already collected during the schema walk.
func (s *Scanner) columnsFor(res *report.ScanResult, schema, table string) []report.Column {
	schemaReport := res.Schemas[schema]
	if schemaReport == nil {
		return nil
	}
	detail := schemaReport.TableDetails[table]
	if detail == nil || detail.Error != "" {
		return nil
	}
	return detail.Columns
}

// triggerSummary aggregates the trigger table per entity: latest run date
// and how many runs actually fired, newest first.
func (s *Scanner) triggerSummary(ctx context.Context, schema string) ([]report.TriggerEntry, error) {
	query := fmt.Sprintf(
		"SELECT %[1]s, MAX(%[2]s) AS last_date, SUM(CASE WHEN %[3]s = 1 THEN 1 ELSE 0 END) AS triggers_fired "+
			"FROM %[4]s GROUP BY %[1]s ORDER BY last_date DESC",
		quoteIdent(s.reg.EntityColumn),
		quoteIdent(s.reg.TriggerDateColumn),
		quoteIdent(s.reg.TriggerOutcomeColumn),
		qualify(schema, s.reg.TriggerTable))

	var entries []report.TriggerEntry
	err := s.withTimeout(ctx, "trigger_summary", func(qctx context.Context) error {
		rows, err := s.conn.DB().QueryxContext(qctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = nil
		for rows.Next() {
			var entity, lastDate any
			var fired int64
			if err := rows.Scan(&entity, &lastDate, &fired); err != nil {
				return err
			}
			entries = append(entries, report.TriggerEntry{
				Entity:        report.Stringify(entity),
				LastDate:      report.Stringify(lastDate),
				TriggersFired: fired,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("trigger summary from %s.%s: %w", schema, s.reg.TriggerTable, err)
	}
	return entries, nil
}

// viewStatus checks that a known view still resolves and counts its rows.
// A view over dropped base tables errors on SELECT; that error is the finding.
func (s *Scanner) viewStatus(ctx context.Context, schema, view string) *report.ViewStatus {
	var count int64
	err := s.withTimeout(ctx, "view_status", func(qctx context.Context) error {
		return s.conn.DB().GetContext(qctx, &count, "SELECT COUNT(*) FROM "+qualify(schema, view))
	})
	if err != nil {
		return &report.ViewStatus{Exists: false, Error: err.Error()}
	}
	return &report.ViewStatus{Exists: true, RowCount: count}
}
