package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// activityCap bounds the in-memory log. Older entries fall off the front.
const activityCap = 100

// ActivityLog is an append-only, bounded record of agent work. Every unit of
// work produces exactly one terminal entry, success or error.
type ActivityLog struct {
	mu      sync.Mutex
	entries []models.ActivityEntry
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// Record appends one entry and returns it.
func (l *ActivityLog) Record(action, status string, details map[string]any) models.ActivityEntry {
	entry := models.ActivityEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    status,
		Details:   details,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > activityCap {
		l.entries = l.entries[len(l.entries)-activityCap:]
	}
	return entry
}

// Recent returns up to limit entries, newest first.
func (l *ActivityLog) Recent(limit int) []models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]models.ActivityEntry, 0, limit)
	for i := len(l.entries) - 1; i >= len(l.entries)-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}
