// Package api implements the webhook and operator HTTP API.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mantavya0807/Github-Doctor/internal/agent"
	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// HistoryReader serves past analyses. *history.Store implements it; a nil
// reader disables the history endpoint.
type HistoryReader interface {
	Recent(limit int) ([]models.AnalysisResult, error)
}

// Server is the github-doctor HTTP API server.
type Server struct {
	controller    *agent.Controller
	manager       *config.Manager
	history       HistoryReader
	webhookSecret string
	mux           *http.ServeMux
	server        *http.Server
	logger        *slog.Logger
}

// New creates an API server around the controller, policy manager and
// analysis history.
func New(cfg config.ServerConfig, controller *agent.Controller, manager *config.Manager, history HistoryReader) *Server {
	s := &Server{
		controller:    controller,
		manager:       manager,
		history:       history,
		webhookSecret: cfg.WebhookSecret,
		logger:        slog.Default().With("component", "api"),
	}
	s.mux = http.NewServeMux()
	s.registerRoutes()

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyzeSnippet)
	s.mux.HandleFunc("POST /api/analyze-pr", s.handleAnalyzePullRequest)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/agent/analyze", s.handleAnalyzeRepository)
	s.mux.HandleFunc("POST /api/agent/apply", s.handleApply)
	s.mux.HandleFunc("GET /api/agent/branches", s.handleBranches)
	s.mux.HandleFunc("GET /api/agent/config", s.handleGetConfig)
	s.mux.HandleFunc("POST /api/agent/config", s.handleSetConfig)
	s.mux.HandleFunc("GET /api/agent/activity", s.handleActivity)
	s.mux.HandleFunc("GET /api/agent/status", s.handleStatus)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("api server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Default().Error("json encode failed", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
