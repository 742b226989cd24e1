// Package http exposes the bulk entry engine as a JSON API. Tenant and
// actor identity arrive in headers; authentication itself is handled by an
// upstream collaborator.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"parishledger/internal/batch"
	"parishledger/internal/importer"
)

// TableReader is the optional spreadsheet-backed import source.
type TableReader interface {
	ReadTable(ctx context.Context, readRange string) (importer.Table, error)
}

type Server struct {
	http.Server

	engine      *batch.Service
	sessions    *batch.Registry
	sheetReader TableReader // nil when no spreadsheet is configured
	sheetRange  string
}

// NewServer wires routes. sheetReader may be nil; the sheet import route
// then reports that no spreadsheet source is configured.
func NewServer(addr string, engine *batch.Service, sessions *batch.Registry, sheetReader TableReader, sheetRange string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		engine:      engine,
		sessions:    sessions,
		sheetReader: sheetReader,
		sheetRange:  sheetRange,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)

	mux.HandleFunc("POST /api/batches/{kind}/import", s.withRequestLog(s.handleImport))
	mux.HandleFunc("GET /api/batches/{kind}", s.withRequestLog(s.handleGetBatch))
	mux.HandleFunc("POST /api/batches/{kind}/rows", s.withRequestLog(s.handleAddRow))
	mux.HandleFunc("PATCH /api/batches/{kind}/rows/{index}", s.withRequestLog(s.handleUpdateRow))
	mux.HandleFunc("DELETE /api/batches/{kind}/rows/{index}", s.withRequestLog(s.handleRemoveRow))
	mux.HandleFunc("GET /api/batches/{kind}/aggregates", s.withRequestLog(s.handleAggregates))
	mux.HandleFunc("POST /api/batches/{kind}/submit", s.withRequestLog(s.handleSubmit))
	mux.HandleFunc("POST /api/batches/{kind}/reset", s.withRequestLog(s.handleReset))

	mux.HandleFunc("GET /api/budgets/usage", s.withRequestLog(s.handleBudgetUsage))

	return s
}

// withRequestLog logs every request with method, path, status and duration.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		slog.InfoContext(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"tenant", r.Header.Get(headerTenant))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
