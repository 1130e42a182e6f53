package models

import (
	"time"
)

// Severity ranks how risky a detected issue is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// rank orders severities. Higher means riskier.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// MoreSevereThan reports whether s ranks above other.
func (s Severity) MoreSevereThan(other Severity) bool {
	return s.rank() > other.rank()
}

// IssueType classifies what kind of problem was detected.
type IssueType string

const (
	IssueSecretExposure IssueType = "secret_exposure"
	IssueDebugStatement IssueType = "debug_statement"
	IssueCodeQuality    IssueType = "code_quality"
	IssuePerformance    IssueType = "performance"
	IssueMissingTest    IssueType = "missing_test"
	IssueOther          IssueType = "other"
)

// Issue is one detected problem instance at a specific line.
type Issue struct {
	Type         IssueType `json:"type"`
	Category     string    `json:"category"`
	Line         int       `json:"line"`
	Column       int       `json:"column,omitempty"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Match        string    `json:"match"`
	FixAvailable bool      `json:"fix_available"`
}

// Confidence expresses how trustworthy a proposed fix is.
// HIGH is reserved for deterministic rule-based rewrites.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// FixType records the provenance of a fix.
type FixType string

const (
	FixRuleBased   FixType = "rule_based"
	FixAIGenerated FixType = "ai_generated"
)

// FixState tracks a fix through selection and application.
type FixState string

const (
	FixProposed FixState = "proposed"
	FixSelected FixState = "selected"
	FixApplying FixState = "applying"
	FixApplied  FixState = "applied"
	FixFailed   FixState = "failed"
)

// Fix is one proposed remediation for an issue. Within one analysis batch
// a fix is identified by (Line, Explanation), never by slice position.
type Fix struct {
	Line          int        `json:"line"`
	OriginalCode  string     `json:"original_code"`
	FixedCode     string     `json:"fixed_code"`
	Explanation   string     `json:"explanation"`
	Confidence    Confidence `json:"confidence"`
	Type          FixType    `json:"fix_type"`
	EnvVarsNeeded []string   `json:"env_vars_needed,omitempty"`
	State         FixState   `json:"state"`
	Applied       bool       `json:"applied"`
}

// FixKey is the identity of a fix within one analysis batch.
type FixKey struct {
	Line        int    `json:"line"`
	Explanation string `json:"explanation"`
}

// Key returns the batch-scoped identity of the fix.
func (f Fix) Key() FixKey {
	return FixKey{Line: f.Line, Explanation: f.Explanation}
}

// FileResult is one file's analysis outcome.
type FileResult struct {
	Filename    string  `json:"filename"`
	Issues      []Issue `json:"issues"`
	Fixes       []Fix   `json:"fixes"`
	IssuesCount int     `json:"issues_count"`
	FixesCount  int     `json:"fixes_count"`
	// Error holds the per-file failure (e.g. undecodable content). A failed
	// file never aborts the rest of the batch.
	Error string `json:"error,omitempty"`
}

// RiskLevel buckets a security score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// AnalysisResult is one repository analysis.
type AnalysisResult struct {
	ID            string          `json:"id"`
	Repository    string          `json:"repository"`
	Branch        string          `json:"branch"`
	Commit        string          `json:"commit"`
	Timestamp     time.Time       `json:"timestamp"`
	Files         []FileResult    `json:"file_results"`
	FilesAnalyzed int             `json:"files_analyzed"`
	FilesSkipped  int             `json:"files_skipped"`
	TotalIssues   int             `json:"total_issues"`
	SecurityScore int             `json:"security_score"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	FixResult     *PublishOutcome `json:"fix_result,omitempty"`
}

// PublishOutcome reports a commit-and-open-request action.
type PublishOutcome struct {
	RequestURL    string   `json:"request_url"`
	RequestNumber int      `json:"request_number"`
	Branch        string   `json:"branch"`
	FilesChanged  int      `json:"files_changed"`
	FixesApplied  int      `json:"fixes_applied"`
	EnvVarsNeeded []string `json:"env_vars_needed,omitempty"`
}

// AgentMode is the per-repository automation policy.
type AgentMode string

const (
	ModeMonitor AgentMode = "monitor"
	ModeSuggest AgentMode = "suggest"
	ModeAutofix AgentMode = "autofix"
)

// ValidMode reports whether m is a recognized agent mode.
func ValidMode(m AgentMode) bool {
	switch m {
	case ModeMonitor, ModeSuggest, ModeAutofix:
		return true
	}
	return false
}

// ActivityEntry is an append-only record of one unit of agent work.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Status    string         `json:"status"` // "success" or "error"
	Details   map[string]any `json:"details"`
}

// PushEvent is the subset of a repository push notification the agent acts on.
type PushEvent struct {
	Repository    string `json:"repository"`
	Branch        string `json:"branch"`
	CommitSHA     string `json:"commit_sha"`
	CommitMessage string `json:"commit_message"`
	Pusher        string `json:"pusher"`
	CommitCount   int    `json:"commit_count"`
}
