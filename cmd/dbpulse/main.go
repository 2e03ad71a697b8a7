package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dbpulse/pkg/config"
	"dbpulse/pkg/connector"
	"dbpulse/pkg/export"
	"dbpulse/pkg/report"
	"dbpulse/pkg/scanner"
	"dbpulse/pkg/web"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dbpulse error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := cfg.BuildLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch args[1] {
	case "scan":
		return runScan(cfg, args[2:])
	case "serve":
		return runServe(cfg, args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runScan(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	env := fs.String("env", "dev", "target environment name")
	registryPath := fs.String("registry", "", "path to a registry YAML (defaults to the built-in inventory)")
	outDir := fs.String("out", "reports", "directory for the scan document")
	csvDir := fs.String("csv", "", "also export CSV views into this directory")
	upload := fs.Bool("upload", false, "upload artifacts to the configured object store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := config.LoadRegistry(*registryPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := executeScan(ctx, reg, *env)
	if err != nil {
		return err
	}

	today := time.Now().UTC()
	report.PrintSummary(os.Stdout, res)
	report.PrintStatusReport(os.Stdout, reg, res, today)

	path, err := report.Save(*outDir, res, today)
	if err != nil {
		return err
	}
	fmt.Printf("\nFull results saved to: %s\n", path)

	artifacts := []string{path}
	if *csvDir != "" {
		written, err := report.ExportCSV(*csvDir, reg, res, today)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, written...)
		fmt.Printf("CSV exports written to: %s\n", *csvDir)
	}

	if *upload {
		if cfg.Minio == nil {
			return fmt.Errorf("--upload requires DBPULSE_MINIO_ENDPOINT to be configured")
		}
		store, err := export.NewStore(ctx, cfg.Minio)
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("%s/%s", *env, res.Metadata.ScanID)
		if _, err := store.UploadAll(ctx, artifacts, prefix); err != nil {
			return err
		}
	}

	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.ServerAddr, "listen address for the dashboard API")
	registryPath := fs.String("registry", "", "path to a registry YAML (defaults to the built-in inventory)")
	preload := fs.String("preload", "", "previously saved scan document to serve before the first scan")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := config.LoadRegistry(*registryPath)
	if err != nil {
		return err
	}

	var preloaded *report.ScanResult
	if *preload != "" {
		preloaded, err = report.Load(*preload)
		if err != nil {
			return err
		}
	}

	srv := web.NewServer(scanRunner{reg: reg}, reg, preloaded)

	zap.L().Info("Dashboard listening", zap.String("addr", *addr))
	return http.ListenAndServe(*addr, srv.Handler())
}

// scanRunner adapts executeScan to the dashboard's ScanRunner interface.
type scanRunner struct {
	reg *config.Registry
}

func (r scanRunner) RunScan(ctx context.Context, environment string) (*report.ScanResult, error) {
	return executeScan(ctx, r.reg, environment)
}

// executeScan connects to the named environment and runs the full scan.
// A failed initial connection produces no document at all.
func executeScan(ctx context.Context, reg *config.Registry, environment string) (*report.ScanResult, error) {
	dbCfg, err := config.LoadDatabaseConfig(environment)
	if err != nil {
		return nil, err
	}

	conn, err := connector.NewMySQLConnector(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", environment, err)
	}
	defer conn.Close()

	return scanner.New(conn, reg, environment, dbCfg.Host).Scan(ctx)
}

func printUsage() {
	fmt.Print(`dbpulse - MySQL freshness and health scanner

Usage:
  dbpulse scan  [--env dev] [--registry path] [--out dir] [--csv dir] [--upload]
  dbpulse serve [--addr :8080] [--registry path] [--preload report.json]

Commands:
  scan      Run a full scan and print the status report
  serve     Serve the dashboard API
  help      Show this help message

Connection settings come from DBPULSE_<ENV>_DB_HOST, _PORT, _USER and
_PASSWORD environment variables (or a local .env file).
`)
}
