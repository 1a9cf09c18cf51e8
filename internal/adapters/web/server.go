package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zorenko/aircap/internal/core/ports"
)

// Server exposes a read-only status surface: health, the last scan, the
// session history, the audit trail and Prometheus metrics. It never
// triggers radio operations; the CLI owns the workflow.
type Server struct {
	addr     string
	store    ports.ScanStore
	sessions ports.SessionRepository
	audit    ports.AuditService
	logger   *slog.Logger
	srv      *http.Server
}

// NewServer creates a status server.
func NewServer(addr string, store ports.ScanStore, sessions ports.SessionRepository, audit ports.AuditService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, store: store, sessions: sessions, audit: audit, logger: logger}
}

// Run starts the server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/audit", s.handleAudit).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           otelhttp.NewHandler(r, "aircap-status"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("status server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("status server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListSessions(r.Context(), 100)
	if err != nil {
		s.logger.Error("session listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	logs, err := s.audit.GetLogs(r.Context(), 100)
	if err != nil {
		s.logger.Error("audit listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "audit listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
