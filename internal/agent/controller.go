// Package agent orchestrates the pipeline: it reacts to push events and
// operator requests, runs detection and fix generation under the current
// policy snapshot, and publishes fixes when the policy allows.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantavya0807/Github-Doctor/internal/apply"
	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/detect"
	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/fix"
	"github.com/mantavya0807/Github-Doctor/internal/gh"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// SkipMarker in a commit message means the commit was authored by this agent.
// Pushes carrying it are ignored so applied fixes cannot re-trigger analysis.
const SkipMarker = "[github-doctor]"

// Host is the repository-host surface the controller needs. *gh.Client
// implements it; tests substitute a fake.
type Host interface {
	DefaultBranch(ctx context.Context, owner, name string) (string, error)
	ListBranches(ctx context.Context, owner, name string) ([]string, error)
	ListTree(ctx context.Context, owner, name, ref string) ([]string, error)
	GetFileContent(ctx context.Context, owner, name, path, ref string) (*gh.FileContent, error)
	GetFiles(ctx context.Context, owner, name string, paths []string, ref string) ([]gh.FetchedFile, error)
	GetCommitFiles(ctx context.Context, owner, name, sha string) ([]string, error)
	GetPullRequestFiles(ctx context.Context, owner, name string, number int) (*gh.PullRequestFiles, error)
	CommitAndOpenRequest(ctx context.Context, owner, name, base, title, body, commitMessage string, files []gh.ChangedFile) (*gh.RequestInfo, error)
}

// Recorder persists completed analyses. Optional; a nil recorder means
// results are only returned to the caller.
type Recorder interface {
	SaveAnalysis(result models.AnalysisResult) error
}

// Controller runs the detect -> generate -> apply pipeline per policy.
type Controller struct {
	host     Host
	fixes    fix.Generator
	applier  *apply.Applier
	config   *config.Manager
	activity *ActivityLog
	recorder Recorder
	logger   *slog.Logger

	aiEnabled  bool
	aiProvider string

	// applying guards one in-flight apply per (repository, branch). A second
	// request is rejected, not queued.
	applyMu  sync.Mutex
	applying map[string]bool

	// monitored is the set of repositories seen on the webhook.
	reposMu   sync.Mutex
	monitored map[string]bool
}

// Options configures a Controller.
type Options struct {
	Host       Host
	Fixes      fix.Generator
	Config     *config.Manager
	Recorder   Recorder
	AIEnabled  bool
	AIProvider string
}

// NewController wires a controller from its collaborators.
func NewController(opts Options) *Controller {
	return &Controller{
		host:       opts.Host,
		fixes:      opts.Fixes,
		applier:    apply.NewApplier(),
		config:     opts.Config,
		activity:   NewActivityLog(),
		recorder:   opts.Recorder,
		logger:     slog.Default().With("component", "agent"),
		aiEnabled:  opts.AIEnabled,
		aiProvider: opts.AIProvider,
		applying:   make(map[string]bool),
		monitored:  make(map[string]bool),
	}
}

// Activity exposes the agent's activity log.
func (c *Controller) Activity() *ActivityLog {
	return c.activity
}

// Status is the operator-facing agent summary.
type Status struct {
	Mode           models.AgentMode       `json:"agent_mode"`
	AutoCommit     bool                   `json:"auto_commit"`
	MaxFiles       int                    `json:"max_files"`
	AIEnabled      bool                   `json:"ai_enabled"`
	AIProvider     string                 `json:"ai_provider"`
	ReposMonitored int                    `json:"repos_monitored"`
	MonitoredRepos []string               `json:"monitored_repos"`
	RecentActivity []models.ActivityEntry `json:"recent_activity"`
}

// Status reports the current policy, monitored repositories and recent work.
func (c *Controller) Status() Status {
	snapshot := c.config.Snapshot()
	repos := c.monitoredRepos()
	return Status{
		Mode:           snapshot.Mode,
		AutoCommit:     snapshot.AutoCommit,
		MaxFiles:       snapshot.MaxFiles,
		AIEnabled:      c.aiEnabled,
		AIProvider:     c.aiProvider,
		ReposMonitored: len(repos),
		MonitoredRepos: repos,
		RecentActivity: c.activity.Recent(10),
	}
}

// trackRepository records a repository as monitored once a push for it has
// been seen.
func (c *Controller) trackRepository(repo string) {
	c.reposMu.Lock()
	c.monitored[repo] = true
	c.reposMu.Unlock()
}

func (c *Controller) monitoredRepos() []string {
	c.reposMu.Lock()
	defer c.reposMu.Unlock()
	repos := make([]string, 0, len(c.monitored))
	for repo := range c.monitored {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// HandlePush reacts to a repository push. Agent-authored pushes are skipped;
// everything else is analyzed (and fixed, per mode) over the commit's files.
// Exactly one activity entry is recorded per push, including skips.
func (c *Controller) HandlePush(ctx context.Context, event models.PushEvent) (*models.AnalysisResult, error) {
	repo, err := gh.NormalizeRepository(event.Repository)
	if err != nil {
		c.activity.Record("push", "error", map[string]any{
			"repository": event.Repository,
			"error":      err.Error(),
		})
		return nil, err
	}
	c.trackRepository(repo)

	if strings.Contains(event.CommitMessage, SkipMarker) {
		c.logger.Info("skipping agent-authored push", "repository", repo, "commit", event.CommitSHA)
		c.activity.Record("push_skipped", "success", map[string]any{
			"repository": repo,
			"branch":     event.Branch,
			"commit":     event.CommitSHA,
			"reason":     "agent-authored commit",
		})
		return nil, nil
	}

	owner, name, _ := gh.ParseRepository(repo)
	paths, err := c.host.GetCommitFiles(ctx, owner, name, event.CommitSHA)
	if err != nil {
		c.activity.Record("push", "error", map[string]any{
			"repository": repo,
			"commit":     event.CommitSHA,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("list commit files: %w", err)
	}

	result, err := c.run(ctx, "push", repo, event.Branch, event.CommitSHA, paths)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AnalyzeRepository analyzes a branch on operator request. An empty branch
// means the repository's default branch; nil paths means the full tree.
func (c *Controller) AnalyzeRepository(ctx context.Context, repository, branch string, paths []string) (*models.AnalysisResult, error) {
	repo, err := gh.NormalizeRepository(repository)
	if err != nil {
		c.activity.Record("analyze", "error", map[string]any{
			"repository": repository,
			"error":      err.Error(),
		})
		return nil, err
	}
	owner, name, _ := gh.ParseRepository(repo)

	if branch == "" {
		branch, err = c.host.DefaultBranch(ctx, owner, name)
		if err != nil {
			c.activity.Record("analyze", "error", map[string]any{
				"repository": repo,
				"error":      err.Error(),
			})
			return nil, fmt.Errorf("resolve default branch: %w", err)
		}
	}

	if paths == nil {
		paths, err = c.host.ListTree(ctx, owner, name, branch)
		if err != nil {
			c.activity.Record("analyze", "error", map[string]any{
				"repository": repo,
				"branch":     branch,
				"error":      err.Error(),
			})
			return nil, fmt.Errorf("list tree: %w", err)
		}
	}

	return c.run(ctx, "analyze", repo, branch, "", paths)
}

// AnalyzePullRequest analyzes the files a pull request changes, at the
// request's head branch.
func (c *Controller) AnalyzePullRequest(ctx context.Context, repository string, number int) (*models.AnalysisResult, error) {
	repo, err := gh.NormalizeRepository(repository)
	if err != nil {
		c.activity.Record("analyze_pr", "error", map[string]any{
			"repository": repository,
			"error":      err.Error(),
		})
		return nil, err
	}
	owner, name, _ := gh.ParseRepository(repo)

	pr, err := c.host.GetPullRequestFiles(ctx, owner, name, number)
	if err != nil {
		c.activity.Record("analyze_pr", "error", map[string]any{
			"repository": repo,
			"number":     number,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("fetch pull request: %w", err)
	}

	return c.run(ctx, "analyze_pr", repo, pr.HeadRef, pr.HeadSHA, pr.Paths)
}

// Branches lists the repository's branches for operator tooling.
func (c *Controller) Branches(ctx context.Context, repository string) ([]string, error) {
	repo, err := gh.NormalizeRepository(repository)
	if err != nil {
		return nil, err
	}
	owner, name, _ := gh.ParseRepository(repo)
	return c.host.ListBranches(ctx, owner, name)
}

// AnalyzeSnippet analyzes raw text without touching the repository host.
// Fixes are always proposed here: the mode policy governs repository work,
// not ad-hoc snippets.
func (c *Controller) AnalyzeSnippet(ctx context.Context, content, filename string) (*models.FileResult, error) {
	result := c.analyzeContent(ctx, true, content, filename)
	return &result, nil
}

// run is the shared analysis path. It takes one policy snapshot up front so
// a config update mid-run cannot change limits underneath it, and records
// exactly one terminal activity entry.
func (c *Controller) run(ctx context.Context, action, repo, branch, commitSHA string, paths []string) (*models.AnalysisResult, error) {
	snapshot := c.config.Snapshot()
	owner, name, _ := gh.ParseRepository(repo)

	selected, skipped := selectPaths(paths, snapshot)

	result := &models.AnalysisResult{
		ID:           uuid.NewString(),
		Repository:   repo,
		Branch:       branch,
		Commit:       commitSHA,
		Timestamp:    time.Now().UTC(),
		FilesSkipped: skipped,
	}

	fetched, err := c.host.GetFiles(ctx, owner, name, selected, branch)
	if err != nil {
		c.activity.Record(action, "error", map[string]any{
			"repository": repo,
			"branch":     branch,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("fetch files: %w", err)
	}

	generateFixes := snapshot.Mode != models.ModeMonitor
	contents := make(map[string]*gh.FileContent, len(fetched))
	var allIssues []models.Issue
	for _, f := range fetched {
		if f.Err != nil {
			result.Files = append(result.Files, models.FileResult{Filename: f.Path, Error: f.Err.Error()})
			continue
		}
		contents[f.Path] = f.File

		fileResult := c.analyzeContent(ctx, generateFixes, f.File.Content, f.Path)
		result.Files = append(result.Files, fileResult)
		allIssues = append(allIssues, fileResult.Issues...)
	}

	result.FilesAnalyzed = len(result.Files)
	result.TotalIssues = len(allIssues)
	result.SecurityScore = detect.Score(allIssues)
	result.RiskLevel = detect.RiskLevelFor(result.SecurityScore)

	if snapshot.Mode != models.ModeMonitor {
		if err := c.publishFixes(ctx, snapshot, result, contents); err != nil {
			c.activity.Record(action, "error", map[string]any{
				"repository": repo,
				"branch":     branch,
				"issues":     result.TotalIssues,
				"error":      err.Error(),
			})
			return result, err
		}
	}

	if c.recorder != nil {
		if err := c.recorder.SaveAnalysis(*result); err != nil {
			c.logger.Warn("failed to persist analysis", "error", err)
		}
	}

	details := map[string]any{
		"repository":     repo,
		"branch":         branch,
		"mode":           string(snapshot.Mode),
		"files_analyzed": result.FilesAnalyzed,
		"files_skipped":  result.FilesSkipped,
		"issues":         result.TotalIssues,
		"security_score": result.SecurityScore,
	}
	if result.FixResult != nil {
		details["request_url"] = result.FixResult.RequestURL
	}
	c.activity.Record(action, "success", details)

	c.logger.Info("analysis complete",
		"repository", repo,
		"branch", branch,
		"files", result.FilesAnalyzed,
		"skipped", result.FilesSkipped,
		"issues", result.TotalIssues,
		"score", result.SecurityScore,
	)
	return result, nil
}

// analyzeContent runs detection (and, when asked, fix generation) over one
// file's content. Failures stay inside the FileResult.
func (c *Controller) analyzeContent(ctx context.Context, generateFixes bool, content, filename string) models.FileResult {
	result := models.FileResult{Filename: filename}

	issues, err := detect.Detect(content, filename)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Issues = issues
	result.IssuesCount = len(issues)

	if !generateFixes || len(issues) == 0 {
		return result
	}

	fixes, err := c.fixes.Generate(ctx, issues, content, filename)
	if err != nil && !errors.IsKind(err, errors.KindProviderUnavailable) {
		result.Error = err.Error()
	}
	result.Fixes = fixes
	result.FixesCount = len(fixes)
	return result
}

// publishFixes handles the suggest and autofix policies over an analyzed
// batch. Autofix pre-selects HIGH-confidence fixes and publishes only when
// the policy allows committing; suggest rewrites a side branch with the full
// fix list and always opens a review request. The rewritten content stays in
// the result even when publishing fails.
func (c *Controller) publishFixes(ctx context.Context, snapshot config.AgentConfig, result *models.AnalysisResult, contents map[string]*gh.FileContent) error {
	release, err := c.beginApply(result.Repository, result.Branch)
	if err != nil {
		return err
	}
	defer release()

	autofix := snapshot.Mode == models.ModeAutofix

	outcomes := make(map[string]apply.Result)
	var changed []gh.ChangedFile
	var envVars []string
	applied := 0

	for i, file := range result.Files {
		content, ok := contents[file.Filename]
		if !ok || len(file.Fixes) == 0 {
			continue
		}

		var selected []models.Fix
		for _, f := range file.Fixes {
			if autofix && f.Confidence != models.ConfidenceHigh {
				continue
			}
			f.State = models.FixSelected
			selected = append(selected, f)
		}
		if len(selected) == 0 {
			continue
		}

		outcome := c.applier.Apply(content.Content, selected)
		outcomes[file.Filename] = outcome
		result.Files[i].Fixes = append(outcome.Applied, failedFixes(outcome)...)
		if len(outcome.Applied) == 0 {
			continue
		}

		applied += len(outcome.Applied)
		envVars = append(envVars, apply.EnvVars(outcome.Applied)...)
		changed = append(changed, gh.ChangedFile{
			Path:    file.Filename,
			Content: outcome.Content,
			SHA:     content.SHA,
		})
	}

	if applied == 0 {
		return nil
	}
	if autofix && !snapshot.AutoCommit {
		return nil
	}

	envVars = dedupeStrings(envVars)
	if len(envVars) > 0 {
		changed = append(changed, gh.ChangedFile{
			Path:    ".env.example",
			Content: envExampleContent(envVars),
		})
	}

	title := requestTitle(applied)
	commitMessage := fmt.Sprintf("%s apply %d automated fixes", SkipMarker, applied)
	if !autofix {
		title = suggestionTitle(applied)
		commitMessage = fmt.Sprintf("%s suggest %d candidate fixes", SkipMarker, applied)
	}

	owner, name, _ := gh.ParseRepository(result.Repository)
	info, err := c.host.CommitAndOpenRequest(ctx, owner, name, result.Branch,
		title, requestBody(result, outcomes, envVars), commitMessage, changed)
	if err != nil {
		return errors.Wrap(err, errors.KindPublish, "publish fixes")
	}

	result.FixResult = &models.PublishOutcome{
		RequestURL:    info.URL,
		RequestNumber: info.Number,
		Branch:        info.Branch,
		FilesChanged:  len(changed),
		FixesApplied:  applied,
		EnvVarsNeeded: envVars,
	}
	return nil
}

// ApplyRequest is an operator request to apply selected fixes to one file.
type ApplyRequest struct {
	Repository string          `json:"repository"`
	Branch     string          `json:"branch"`
	Filename   string          `json:"filename"`
	Keys       []models.FixKey `json:"fixes"`
	Commit     bool            `json:"commit"`
}

// ApplyOutcome reports an operator-driven apply run.
type ApplyOutcome struct {
	Result  apply.Result           `json:"result"`
	Publish *models.PublishOutcome `json:"publish,omitempty"`
}

// ApplyFixes re-analyzes the file at its current content, resolves the
// requested fix keys against the fresh proposals, and applies them. Stale
// selections fail; concurrent applies on the same (repository, branch) are
// rejected with a conflict.
func (c *Controller) ApplyFixes(ctx context.Context, req ApplyRequest) (*ApplyOutcome, error) {
	repo, err := gh.NormalizeRepository(req.Repository)
	if err != nil {
		c.activity.Record("apply", "error", map[string]any{"repository": req.Repository, "error": err.Error()})
		return nil, err
	}
	owner, name, _ := gh.ParseRepository(repo)

	release, err := c.beginApply(repo, req.Branch)
	if err != nil {
		c.activity.Record("apply", "error", map[string]any{"repository": repo, "branch": req.Branch, "error": err.Error()})
		return nil, err
	}
	defer release()

	outcome, err := c.applyToFile(ctx, owner, name, repo, req)
	if err != nil {
		c.activity.Record("apply", "error", map[string]any{
			"repository": repo,
			"branch":     req.Branch,
			"filename":   req.Filename,
			"error":      err.Error(),
		})
		// A failed publish still produced rewritten content; hand the
		// outcome back with the error so the caller does not lose it.
		return outcome, err
	}

	details := map[string]any{
		"repository": repo,
		"branch":     req.Branch,
		"filename":   req.Filename,
		"applied":    len(outcome.Result.Applied),
		"failed":     len(outcome.Result.Failed),
	}
	if outcome.Publish != nil {
		details["request_url"] = outcome.Publish.RequestURL
	}
	c.activity.Record("apply", "success", details)
	return outcome, nil
}

func (c *Controller) applyToFile(ctx context.Context, owner, name, repo string, req ApplyRequest) (*ApplyOutcome, error) {
	file, err := c.host.GetFileContent(ctx, owner, name, req.Filename, req.Branch)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Filename, err)
	}

	issues, err := detect.Detect(file.Content, req.Filename)
	if err != nil {
		return nil, err
	}
	proposed, err := c.fixes.Generate(ctx, issues, file.Content, req.Filename)
	if err != nil && !errors.IsKind(err, errors.KindProviderUnavailable) {
		return nil, err
	}

	selected, err := apply.Select(proposed, req.Keys)
	if err != nil {
		return nil, err
	}

	result := c.applier.Apply(file.Content, selected)
	outcome := &ApplyOutcome{Result: result}
	if !req.Commit || len(result.Applied) == 0 {
		return outcome, nil
	}

	changed := []gh.ChangedFile{{Path: req.Filename, Content: result.Content, SHA: file.SHA}}
	envVars := apply.EnvVars(result.Applied)
	if len(envVars) > 0 {
		changed = append(changed, gh.ChangedFile{Path: ".env.example", Content: envExampleContent(envVars)})
	}

	analysis := &models.AnalysisResult{
		Repository:    repo,
		Branch:        req.Branch,
		SecurityScore: detect.Score(issues),
		RiskLevel:     detect.RiskLevelFor(detect.Score(issues)),
		Files:         []models.FileResult{{Filename: req.Filename, Issues: issues}},
	}
	commitMessage := fmt.Sprintf("%s apply %d selected fixes to %s", SkipMarker, len(result.Applied), req.Filename)
	info, err := c.host.CommitAndOpenRequest(ctx, owner, name, req.Branch,
		requestTitle(len(result.Applied)),
		requestBody(analysis, map[string]apply.Result{req.Filename: result}, envVars),
		commitMessage, changed)
	if err != nil {
		// The rewritten content is still in the outcome; the operator can
		// retry publishing without re-applying.
		return outcome, errors.Wrap(err, errors.KindPublish, "publish fixes")
	}

	outcome.Publish = &models.PublishOutcome{
		RequestURL:    info.URL,
		RequestNumber: info.Number,
		Branch:        info.Branch,
		FilesChanged:  len(changed),
		FixesApplied:  len(result.Applied),
		EnvVarsNeeded: envVars,
	}
	return outcome, nil
}

// beginApply claims the per-(repository, branch) apply slot. The returned
// release func must be called when the apply finishes.
func (c *Controller) beginApply(repo, branch string) (func(), error) {
	key := repo + "#" + branch

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if c.applying[key] {
		return nil, errors.Newf(errors.KindConflict, "apply already in progress for %s on %s", repo, branch)
	}
	c.applying[key] = true
	return func() {
		c.applyMu.Lock()
		delete(c.applying, key)
		c.applyMu.Unlock()
	}, nil
}

// selectPaths filters excluded paths, orders the rest deterministically, and
// enforces the max_files limit. The skipped count covers only the limit, not
// exclusions: excluded files were never candidates.
func selectPaths(paths []string, snapshot config.AgentConfig) (selected []string, skipped int) {
	var candidates []string
	for _, path := range paths {
		if excluded(path, snapshot) {
			continue
		}
		candidates = append(candidates, path)
	}
	sort.Strings(candidates)

	if len(candidates) > snapshot.MaxFiles {
		return candidates[:snapshot.MaxFiles], len(candidates) - snapshot.MaxFiles
	}
	return candidates, 0
}

func excluded(path string, snapshot config.AgentConfig) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range snapshot.ExcludedExtensions {
		if ext == e {
			return true
		}
	}
	for _, part := range strings.Split(path, "/") {
		for _, name := range snapshot.ExcludedFiles {
			if part == name {
				return true
			}
		}
	}
	return false
}

func failedFixes(outcome apply.Result) []models.Fix {
	out := make([]models.Fix, 0, len(outcome.Failed))
	for _, f := range outcome.Failed {
		out = append(out, f.Fix)
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
