package api

import (
	"net/http"
	"strconv"

	"github.com/mantavya0807/Github-Doctor/internal/agent"
	"github.com/mantavya0807/Github-Doctor/internal/errors"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeSnippetRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (s *Server) handleAnalyzeSnippet(w http.ResponseWriter, r *http.Request) {
	var req analyzeSnippetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Filename == "" {
		req.Filename = "snippet.txt"
	}

	result, err := s.controller.AnalyzeSnippet(r.Context(), req.Content, req.Filename)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type analyzeRepositoryRequest struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
}

func (s *Server) handleAnalyzeRepository(w http.ResponseWriter, r *http.Request) {
	var req analyzeRepositoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Repository == "" {
		writeError(w, http.StatusBadRequest, "repository is required")
		return
	}

	result, err := s.controller.AnalyzeRepository(r.Context(), req.Repository, req.Branch, nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req agent.ApplyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Repository == "" || req.Branch == "" || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "repository, branch and filename are required")
		return
	}

	outcome, err := s.controller.ApplyFixes(r.Context(), req)
	if err != nil {
		// When applying succeeded and only the publish failed, the rewritten
		// content is still in the outcome; return it alongside the error so
		// the caller can retry publishing without re-applying.
		if outcome != nil {
			writeJSON(w, statusFor(err), map[string]any{
				"error":   err.Error(),
				"outcome": outcome,
			})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type analyzePullRequestRequest struct {
	Repository string `json:"repository"`
	Number     int    `json:"pr_number"`
}

func (s *Server) handleAnalyzePullRequest(w http.ResponseWriter, r *http.Request) {
	var req analyzePullRequestRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Repository == "" || req.Number <= 0 {
		writeError(w, http.StatusBadRequest, "repository and pr_number are required")
		return
	}

	result, err := s.controller.AnalyzePullRequest(r.Context(), req.Repository, req.Number)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	repository := r.URL.Query().Get("repository")
	if repository == "" {
		writeError(w, http.StatusBadRequest, "repository query parameter is required")
		return
	}

	branches, err := s.controller.Branches(r.Context(), repository)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"repository": repository,
		"branches":   branches,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	analyses, err := s.history.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	// Start from the current policy so a partial body only changes the
	// fields it names.
	next := s.manager.Snapshot()
	if err := readJSON(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.manager.Update(next); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": s.controller.Activity().Recent(limit),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

// statusFor maps pipeline error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.IsKind(err, errors.KindConfig), errors.IsKind(err, errors.KindDecode):
		return http.StatusBadRequest
	case errors.IsKind(err, errors.KindStaleFix):
		return http.StatusConflict
	case errors.IsKind(err, errors.KindConflict):
		return http.StatusConflict
	case errors.IsKind(err, errors.KindProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.IsKind(err, errors.KindPublish):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
