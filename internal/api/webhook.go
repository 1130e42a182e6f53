package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// pushPayload is the subset of GitHub's push event the agent acts on.
type pushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
	HeadCommit struct {
		Message string `json:"message"`
	} `json:"head_commit"`
	Commits []json.RawMessage `json:"commits"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 5<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close()

	if s.webhookSecret != "" {
		if !verifySignature(s.webhookSecret, body, r.Header.Get("X-Hub-Signature-256")) {
			s.logger.Warn("webhook signature verification failed")
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType != "push" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": eventType})
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push payload")
		return
	}

	event := models.PushEvent{
		Repository:    payload.Repository.FullName,
		Branch:        strings.TrimPrefix(payload.Ref, "refs/heads/"),
		CommitSHA:     payload.After,
		CommitMessage: payload.HeadCommit.Message,
		Pusher:        payload.Pusher.Name,
		CommitCount:   len(payload.Commits),
	}

	result, err := s.controller.HandlePush(r.Context(), event)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// verifySignature checks the HMAC-SHA256 webhook signature GitHub sends in
// X-Hub-Signature-256.
func verifySignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
