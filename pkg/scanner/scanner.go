// pkg/scanner/scanner.go
package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dbpulse/pkg/config"
	"dbpulse/pkg/connector"
	"dbpulse/pkg/report"
)

// Scanner walks a MySQL server read-only and assembles a scan document:
// database inventory, per-schema table details, and the domain battery on
// the primary schema.
type Scanner struct {
	conn        connector.DatabaseConnector
	reg         *config.Registry
	environment string
	host        string
	logger      *zap.Logger
}

// New creates a Scanner over an established connection.
func New(conn connector.DatabaseConnector, reg *config.Registry, environment, host string) *Scanner {
	return &Scanner{
		conn:        conn,
		reg:         reg,
		environment: environment,
		host:        host,
		logger:      zap.L().Named("scanner"),
	}
}

// Scan performs the full exploration. Per-table and per-schema failures are
// recorded in the document; only a context cancellation or a total loss of
// the server aborts the scan with an error.
func (s *Scanner) Scan(ctx context.Context) (*report.ScanResult, error) {
	started := time.Now()
	res := report.NewScanResult(s.environment, s.host, started.UTC())

	s.logger.Info("Starting database scan",
		zap.String("environment", s.environment),
		zap.String("host", s.host),
		zap.Strings("schemas", s.reg.Schemas))

	databases, err := s.listDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	res.Databases = databases
	s.logger.Info("Databases found", zap.Int("count", len(databases)))

	present, missing := partitionSchemas(s.reg.Schemas, databases)
	if len(missing) > 0 {
		s.logger.Info("Skipping schemas not present on server",
			zap.Strings("schemas", missing))
	}

	for _, schema := range present {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		schemaReport, err := s.scanSchema(ctx, res, schema)
		if err != nil {
			s.logger.Error("Schema scan failed",
				zap.String("schema", schema),
				zap.Error(err))
			res.AddError(report.ScanError{Schema: schema, Operation: "scan_schema", Error: err.Error()})
			continue
		}
		res.Schemas[schema] = schemaReport
	}

	if s.primarySchemaScanned(res) {
		res.DomainFacts = s.collectDomainFacts(ctx, res)
	} else {
		s.logger.Info("Primary schema not scanned, skipping domain queries",
			zap.String("schema", s.reg.PrimarySchema))
	}

	tables, views, rows := res.TotalCounts()
	s.logger.Info("Scan complete",
		zap.Int("tables", tables),
		zap.Int("views", views),
		zap.Int64("rows", rows),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("elapsed", time.Since(started)))

	return res, nil
}

// partitionSchemas splits the registry allow-list by membership in the
// server's enumerated database list. Schemas absent from the server are
// skipped, not errors.
func partitionSchemas(allow, databases []string) (present, missing []string) {
	found := make(map[string]bool, len(databases))
	for _, db := range databases {
		found[db] = true
	}
	for _, schema := range allow {
		if found[schema] {
			present = append(present, schema)
		} else {
			missing = append(missing, schema)
		}
	}
	return present, missing
}

// primarySchemaScanned reports whether the primary schema produced a schema
// report, the precondition for the domain query battery.
func (s *Scanner) primarySchemaScanned(res *report.ScanResult) bool {
	return res.Schemas[s.reg.PrimarySchema] != nil
}

func (s *Scanner) listDatabases(ctx context.Context) ([]string, error) {
	var names []string
	err := s.withTimeout(ctx, "show_databases", func(qctx context.Context) error {
		return s.conn.DB().SelectContext(qctx, &names, "SHOW DATABASES")
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// scanSchema inventories one schema: tables vs views, then the full detail
// battery for every base table.
func (s *Scanner) scanSchema(ctx context.Context, res *report.ScanResult, schema string) (*report.SchemaReport, error) {
	logger := s.logger.With(zap.String("schema", schema))
	logger.Info("Exploring schema")

	tables, views, err := s.listTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	schemaReport := report.NewSchemaReport()
	schemaReport.Tables = tables
	schemaReport.Views = views
	logger.Info("Schema inventory",
		zap.Int("tables", len(tables)),
		zap.Int("views", len(views)))

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail := s.collectTableDetail(ctx, res, schema, table, "BASE TABLE")
		schemaReport.TableDetails[table] = detail
		if detail.Error != "" {
			logger.Warn("Table scan degraded",
				zap.String("table", table),
				zap.String("error", detail.Error))
			res.AddError(report.ScanError{Schema: schema, Table: table, Operation: "table_detail", Error: detail.Error})
		} else {
			logger.Debug("Table scanned",
				zap.String("table", table),
				zap.Int64("rows", detail.RowCount),
				zap.Bool("estimated", detail.RowCountEstimated))
		}
	}

	return schemaReport, nil
}

// listTables separates a schema's relations into base tables and views.
func (s *Scanner) listTables(ctx context.Context, schema string) (tables, views []string, err error) {
	err = s.withTimeout(ctx, "show_tables", func(qctx context.Context) error {
		rows, err := s.conn.DB().QueryxContext(qctx, "SHOW FULL TABLES FROM "+quoteIdent(schema))
		if err != nil {
			return err
		}
		defer rows.Close()

		tables, views = nil, nil
		for rows.Next() {
			var name, tableType string
			if err := rows.Scan(&name, &tableType); err != nil {
				return err
			}
			if tableType == "BASE TABLE" {
				tables = append(tables, name)
			} else {
				views = append(views, name)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("show tables %s: %w", schema, err)
	}
	return tables, views, nil
}
