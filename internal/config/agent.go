package config

import (
	"sync"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// MaxFilesLimit is the upper bound on files analyzed per invocation.
const MaxFilesLimit = 50

// AgentConfig is the runtime-mutable agent policy. It is only ever read
// through a Manager snapshot, so an update landing mid-analysis cannot
// change limits for work already in progress.
type AgentConfig struct {
	Mode               models.AgentMode `yaml:"mode" json:"agent_mode" mapstructure:"mode"`
	AutoCommit         bool             `yaml:"auto_commit" json:"auto_commit" mapstructure:"auto_commit"`
	MaxFiles           int              `yaml:"max_files" json:"max_files" mapstructure:"max_files"`
	ExcludedFiles      []string         `yaml:"excluded_files" json:"excluded_files" mapstructure:"excluded_files"`
	ExcludedExtensions []string         `yaml:"excluded_extensions" json:"excluded_extensions" mapstructure:"excluded_extensions"`
}

// DefaultAgent returns the startup agent policy.
func DefaultAgent() AgentConfig {
	return AgentConfig{
		Mode:               models.ModeMonitor,
		AutoCommit:         false,
		MaxFiles:           10,
		ExcludedFiles:      []string{".env", ".git", "node_modules", "__pycache__", "venv", "vendor"},
		ExcludedExtensions: []string{".jpg", ".png", ".gif", ".mp4", ".mp3", ".pdf", ".lock"},
	}
}

// Validate checks the policy bounds. A violation is a fatal configuration
// error: it aborts the whole operation rather than degrading it.
func (c AgentConfig) Validate() error {
	if !models.ValidMode(c.Mode) {
		return errors.Newf(errors.KindConfig, "invalid agent mode %q", c.Mode)
	}
	if c.MaxFiles < 1 || c.MaxFiles > MaxFilesLimit {
		return errors.Newf(errors.KindConfig, "max_files must be in [1,%d], got %d", MaxFilesLimit, c.MaxFiles)
	}
	return nil
}

// clone deep-copies the config so snapshots never alias the live slices.
func (c AgentConfig) clone() AgentConfig {
	out := c
	out.ExcludedFiles = append([]string(nil), c.ExcludedFiles...)
	out.ExcludedExtensions = append([]string(nil), c.ExcludedExtensions...)
	return out
}

// Manager is the single writer for the agent policy. Readers take an
// immutable snapshot at the start of each operation.
type Manager struct {
	mu  sync.RWMutex
	cur AgentConfig
}

// NewManager creates a manager seeded with the given policy.
func NewManager(initial AgentConfig) (*Manager, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cur: initial.clone()}, nil
}

// Snapshot returns an independent copy of the current policy.
func (m *Manager) Snapshot() AgentConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.clone()
}

// Update validates and atomically swaps in the new policy. This is the only
// write path; everything else reads snapshots.
func (m *Manager) Update(next AgentConfig) error {
	if err := next.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = next.clone()
	m.mu.Unlock()
	return nil
}
