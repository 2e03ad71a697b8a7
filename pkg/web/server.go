// pkg/web/server.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"dbpulse/pkg/config"
	"dbpulse/pkg/report"
)

// ErrNoScan is returned by read endpoints before any scan has completed.
var ErrNoScan = errors.New("no scan has completed yet")

// ScanRunner executes a full scan against a named environment.
type ScanRunner interface {
	RunScan(ctx context.Context, environment string) (*report.ScanResult, error)
}

// Server exposes the latest scan document over HTTP for the dashboard.
type Server struct {
	runner ScanRunner
	reg    *config.Registry
	logger *zap.Logger

	mu      sync.RWMutex
	latest  *report.ScanResult
	running bool
}

// NewServer creates the dashboard server. A previously saved document may be
// preloaded so the read endpoints work before the first scan.
func NewServer(runner ScanRunner, reg *config.Registry, preloaded *report.ScanResult) *Server {
	return &Server{
		runner: runner,
		reg:    reg,
		logger: zap.L().Named("web"),
		latest: preloaded,
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(s.requestLogger)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/scan", s.wrap(s.handleScan))
		rt.Get("/report", s.wrap(s.handleReport))
		rt.Get("/status", s.wrap(s.handleStatus))
		rt.Get("/triggers", s.wrap(s.handleTriggers))
		rt.Get("/views", s.wrap(s.handleViews))
		rt.Get("/summary", s.wrap(s.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, ErrNoScan) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			s.logger.Error("Request failed",
				zap.String("path", req.URL.Path),
				zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (s *Server) current() (*report.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoScan
	}
	return s.latest, nil
}

// POST /api/scan?env=dev
// Kicks off a scan in the background and returns immediately; the document
// becomes visible on the read endpoints when the scan finishes.
func (s *Server) handleScan(w http.ResponseWriter, req *http.Request) error {
	environment := req.URL.Query().Get("env")
	if environment == "" {
		environment = "dev"
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a scan is already running", http.StatusConflict)
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		res, err := s.runner.RunScan(context.Background(), environment)
		if err != nil {
			s.logger.Error("Background scan failed",
				zap.String("environment", environment),
				zap.Error(err))
			return
		}

		s.mu.Lock()
		s.latest = res
		s.mu.Unlock()
		s.logger.Info("Background scan stored",
			zap.String("environment", environment),
			zap.String("scan_id", res.Metadata.ScanID))
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]any{
		"status":      "started",
		"environment": environment,
		"queued_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/report returns the full latest scan document.
func (s *Server) handleReport(w http.ResponseWriter, req *http.Request) error {
	res, err := s.current()
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// GET /api/status returns the classified freshness rows.
func (s *Server) handleStatus(w http.ResponseWriter, req *http.Request) error {
	res, err := s.current()
	if err != nil {
		return err
	}
	rows := report.BuildStatusRows(s.reg, res, time.Now().UTC())
	return writeJSON(w, map[string]any{
		"scan_id": res.Metadata.ScanID,
		"rows":    rows,
	})
}

// GET /api/triggers returns the per-entity trigger rows.
func (s *Server) handleTriggers(w http.ResponseWriter, req *http.Request) error {
	res, err := s.current()
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"scan_id": res.Metadata.ScanID,
		"rows":    report.BuildTriggerRows(res, time.Now().UTC()),
		"missing": report.MissingTriggerEntities(s.reg, res),
	})
}

// GET /api/views returns the known-view checks.
func (s *Server) handleViews(w http.ResponseWriter, req *http.Request) error {
	res, err := s.current()
	if err != nil {
		return err
	}
	if res.DomainFacts == nil {
		return writeJSON(w, map[string]any{})
	}
	return writeJSON(w, res.DomainFacts.ViewStatus)
}

// GET /api/summary returns inventory totals and tier tallies.
func (s *Server) handleSummary(w http.ResponseWriter, req *http.Request) error {
	res, err := s.current()
	if err != nil {
		return err
	}
	tables, views, rows := res.TotalCounts()

	statusRows := report.BuildStatusRows(s.reg, res, time.Now().UTC())
	tiers := make(map[string]int)
	for status, n := range report.CountStatuses(statusRows) {
		tiers[status.Label()] = n
	}

	return writeJSON(w, map[string]any{
		"scan_id":     res.Metadata.ScanID,
		"environment": res.Metadata.Environment,
		"timestamp":   res.Metadata.Timestamp,
		"databases":   len(res.Databases),
		"schemas":     len(res.Schemas),
		"tables":      tables,
		"views":       views,
		"rows":        rows,
		"errors":      len(res.Errors),
		"tiers":       tiers,
	})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
