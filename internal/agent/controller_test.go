package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/fix"
	"github.com/mantavya0807/Github-Doctor/internal/gh"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

const secretSource = "import os\n\napi_key = \"sk_live_1234567890abcdef\"\nprint(\"debug\")\n"

type publishCall struct {
	base, title, body, commitMessage string
	files                            []gh.ChangedFile
}

// fakeHost is an in-memory repository host.
type fakeHost struct {
	mu            sync.Mutex
	defaultBranch string
	branches      []string
	tree          []string
	files         map[string]string
	commitFiles   map[string][]string
	pullRequests  map[int]*gh.PullRequestFiles
	published     []publishCall
	publishErr    error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		defaultBranch: "main",
		branches:      []string{"main"},
		files:         map[string]string{"app.py": secretSource},
		tree:          []string{"app.py"},
		commitFiles:   map[string][]string{},
		pullRequests:  map[int]*gh.PullRequestFiles{},
	}
}

func (h *fakeHost) DefaultBranch(_ context.Context, _, _ string) (string, error) {
	return h.defaultBranch, nil
}

func (h *fakeHost) ListBranches(_ context.Context, _, _ string) ([]string, error) {
	return append([]string(nil), h.branches...), nil
}

func (h *fakeHost) ListTree(_ context.Context, _, _, _ string) ([]string, error) {
	return append([]string(nil), h.tree...), nil
}

func (h *fakeHost) GetFileContent(_ context.Context, _, _, path, _ string) (*gh.FileContent, error) {
	content, ok := h.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return &gh.FileContent{Path: path, Content: content, SHA: "sha-" + path}, nil
}

func (h *fakeHost) GetFiles(ctx context.Context, owner, name string, paths []string, ref string) ([]gh.FetchedFile, error) {
	out := make([]gh.FetchedFile, len(paths))
	for i, path := range paths {
		file, err := h.GetFileContent(ctx, owner, name, path, ref)
		out[i] = gh.FetchedFile{Path: path, File: file, Err: err}
	}
	return out, nil
}

func (h *fakeHost) GetPullRequestFiles(_ context.Context, _, _ string, number int) (*gh.PullRequestFiles, error) {
	pr, ok := h.pullRequests[number]
	if !ok {
		return nil, fmt.Errorf("no such pull request: %d", number)
	}
	return pr, nil
}

func (h *fakeHost) GetCommitFiles(_ context.Context, _, _, sha string) ([]string, error) {
	paths, ok := h.commitFiles[sha]
	if !ok {
		return nil, fmt.Errorf("no such commit: %s", sha)
	}
	return paths, nil
}

func (h *fakeHost) CommitAndOpenRequest(_ context.Context, _, _, base, title, body, commitMessage string, files []gh.ChangedFile) (*gh.RequestInfo, error) {
	if h.publishErr != nil {
		return nil, h.publishErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, publishCall{base, title, body, commitMessage, files})
	return &gh.RequestInfo{
		Number: len(h.published),
		URL:    fmt.Sprintf("https://github.com/acme/widgets/pull/%d", len(h.published)),
		Branch: "github-doctor/fixes-1",
	}, nil
}

func newTestController(t *testing.T, host Host, policy config.AgentConfig) *Controller {
	t.Helper()
	manager, err := config.NewManager(policy)
	require.NoError(t, err)
	return NewController(Options{
		Host:   host,
		Fixes:  fix.NewEngine(nil),
		Config: manager,
	})
}

func monitorPolicy() config.AgentConfig {
	cfg := config.DefaultAgent()
	cfg.Mode = models.ModeMonitor
	return cfg
}

func autofixPolicy(autoCommit bool) config.AgentConfig {
	cfg := config.DefaultAgent()
	cfg.Mode = models.ModeAutofix
	cfg.AutoCommit = autoCommit
	return cfg
}

func TestHandlePushSkipsAgentCommits(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, monitorPolicy())

	result, err := c.HandlePush(context.Background(), models.PushEvent{
		Repository:    "acme/widgets",
		Branch:        "main",
		CommitSHA:     "abc123",
		CommitMessage: SkipMarker + " apply 2 automated fixes",
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	entries := c.Activity().Recent(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "push_skipped", entries[0].Action)
	assert.Equal(t, "success", entries[0].Status)
}

func TestHandlePushAnalyzesCommitFiles(t *testing.T) {
	host := newFakeHost()
	host.commitFiles["abc123"] = []string{"app.py"}
	c := newTestController(t, host, monitorPolicy())

	result, err := c.HandlePush(context.Background(), models.PushEvent{
		Repository:    "https://github.com/acme/widgets",
		Branch:        "main",
		CommitSHA:     "abc123",
		CommitMessage: "add payment integration",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "acme/widgets", result.Repository)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 2, result.TotalIssues)
	assert.Equal(t, 67, result.SecurityScore)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
}

func TestAnalyzeRepositoryRespectsMaxFiles(t *testing.T) {
	host := newFakeHost()
	host.tree = []string{"e.py", "c.py", "a.py", "d.py", "b.py"}
	for _, p := range host.tree {
		host.files[p] = "x = 1\n"
	}

	policy := monitorPolicy()
	policy.MaxFiles = 2
	c := newTestController(t, host, policy)

	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesAnalyzed)
	assert.Equal(t, 3, result.FilesSkipped)
	// Deterministic: the lexically first paths are analyzed.
	require.Len(t, result.Files, 2)
	assert.Equal(t, "a.py", result.Files[0].Filename)
	assert.Equal(t, "b.py", result.Files[1].Filename)
}

func TestAnalyzeRepositorySkipsExcludedPaths(t *testing.T) {
	host := newFakeHost()
	host.tree = []string{"app.py", ".env", "node_modules/lib/index.js", "logo.png"}

	c := newTestController(t, host, monitorPolicy())
	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)

	// Excluded paths were never candidates, so nothing counts as skipped.
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 0, result.FilesSkipped)
	assert.Equal(t, "app.py", result.Files[0].Filename)
}

func TestMonitorModeDetectsWithoutFixes(t *testing.T) {
	c := newTestController(t, newFakeHost(), monitorPolicy())
	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "main", result.Branch)
	require.Len(t, result.Files, 1)
	assert.NotEmpty(t, result.Files[0].Issues)
	assert.Empty(t, result.Files[0].Fixes)
}

func TestSuggestModeOpensReviewRequest(t *testing.T) {
	host := newFakeHost()
	policy := monitorPolicy()
	policy.Mode = models.ModeSuggest
	c := newTestController(t, host, policy)

	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.NotEmpty(t, result.Files[0].Fixes)
	require.NotNil(t, result.FixResult)

	// The suggestion lives on a side branch for review; auto_commit is not
	// consulted in suggest mode.
	require.Len(t, host.published, 1)
	call := host.published[0]
	assert.Contains(t, call.title, "Suggest")
	assert.Contains(t, call.commitMessage, SkipMarker)
}

func TestAutofixPublishesHighConfidenceFixes(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, autofixPolicy(true))

	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)

	require.NotNil(t, result.FixResult)
	assert.Equal(t, 1, result.FixResult.RequestNumber)
	assert.Equal(t, []string{"API_KEY"}, result.FixResult.EnvVarsNeeded)
	assert.Equal(t, 2, result.FixResult.FixesApplied)

	require.Len(t, host.published, 1)
	call := host.published[0]
	assert.Equal(t, "main", call.base)
	assert.Contains(t, call.commitMessage, SkipMarker)

	var paths []string
	for _, f := range call.files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "app.py")
	assert.Contains(t, paths, ".env.example")
	for _, f := range call.files {
		if f.Path == "app.py" {
			assert.Contains(t, f.Content, `os.environ["API_KEY"]`)
			assert.NotContains(t, f.Content, "sk_live_")
		}
	}
}

func TestAutofixWithoutAutoCommitDoesNotPublish(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, autofixPolicy(false))

	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)
	assert.Nil(t, result.FixResult)
	assert.Empty(t, host.published)
}

func TestAutofixPublishFailureKeepsResult(t *testing.T) {
	host := newFakeHost()
	host.publishErr = fmt.Errorf("github is down")
	c := newTestController(t, host, autofixPolicy(true))

	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPublish))
	// The analysis itself survives the failed publish.
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Nil(t, result.FixResult)
}

func TestExactlyOneActivityEntryPerRun(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, monitorPolicy())

	_, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)
	_, err = c.AnalyzeRepository(context.Background(), "not a repository", "main", nil)
	require.Error(t, err)

	entries := c.Activity().Recent(0)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "error", entries[0].Status)
	assert.Equal(t, "success", entries[1].Status)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestApplyFixesSelectedKeys(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, monitorPolicy())

	outcome, err := c.ApplyFixes(context.Background(), ApplyRequest{
		Repository: "acme/widgets",
		Branch:     "main",
		Filename:   "app.py",
		Keys: []models.FixKey{
			{Line: 3, Explanation: "Replace hardcoded secret with environment variable API_KEY"},
		},
		Commit: true,
	})
	require.NoError(t, err)
	require.Len(t, outcome.Result.Applied, 1)
	require.NotNil(t, outcome.Publish)
	assert.Equal(t, []string{"API_KEY"}, outcome.Publish.EnvVarsNeeded)
	require.Len(t, host.published, 1)
}

func TestApplyFixesPublishFailureKeepsOutcome(t *testing.T) {
	host := newFakeHost()
	host.publishErr = fmt.Errorf("github is down")
	c := newTestController(t, host, monitorPolicy())

	outcome, err := c.ApplyFixes(context.Background(), ApplyRequest{
		Repository: "acme/widgets",
		Branch:     "main",
		Filename:   "app.py",
		Keys: []models.FixKey{
			{Line: 3, Explanation: "Replace hardcoded secret with environment variable API_KEY"},
		},
		Commit: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPublish))

	// The fixes were applied before the publish failed; the caller keeps the
	// rewritten content and can retry without re-applying.
	require.NotNil(t, outcome)
	require.Len(t, outcome.Result.Applied, 1)
	assert.Contains(t, outcome.Result.Content, `os.environ["API_KEY"]`)
	assert.NotContains(t, outcome.Result.Content, "sk_live_")
	assert.Nil(t, outcome.Publish)
}

func TestApplyFixesUnknownKeyIsStale(t *testing.T) {
	c := newTestController(t, newFakeHost(), monitorPolicy())

	_, err := c.ApplyFixes(context.Background(), ApplyRequest{
		Repository: "acme/widgets",
		Branch:     "main",
		Filename:   "app.py",
		Keys:       []models.FixKey{{Line: 42, Explanation: "from a previous analysis"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindStaleFix))
}

func TestConcurrentApplyOnSameBranchRejected(t *testing.T) {
	c := newTestController(t, newFakeHost(), monitorPolicy())

	release, err := c.beginApply("acme/widgets", "main")
	require.NoError(t, err)
	defer release()

	_, err = c.ApplyFixes(context.Background(), ApplyRequest{
		Repository: "acme/widgets",
		Branch:     "main",
		Filename:   "app.py",
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConflict))

	// A different branch is unaffected.
	other, err := c.beginApply("acme/widgets", "develop")
	require.NoError(t, err)
	other()
}

func TestApplySlotReleasedAfterUse(t *testing.T) {
	c := newTestController(t, newFakeHost(), monitorPolicy())

	release, err := c.beginApply("acme/widgets", "main")
	require.NoError(t, err)
	release()

	again, err := c.beginApply("acme/widgets", "main")
	require.NoError(t, err)
	again()
}

func TestStatusReflectsPolicy(t *testing.T) {
	c := newTestController(t, newFakeHost(), autofixPolicy(true))
	status := c.Status()
	assert.Equal(t, models.ModeAutofix, status.Mode)
	assert.True(t, status.AutoCommit)
	assert.Equal(t, config.DefaultAgent().MaxFiles, status.MaxFiles)
	assert.False(t, status.AIEnabled)
	assert.Equal(t, 0, status.ReposMonitored)
}

func TestHandlePushTracksMonitoredRepositories(t *testing.T) {
	host := newFakeHost()
	host.commitFiles["abc123"] = []string{"app.py"}
	c := newTestController(t, host, monitorPolicy())

	_, err := c.HandlePush(context.Background(), models.PushEvent{
		Repository:    "acme/widgets",
		Branch:        "main",
		CommitSHA:     "abc123",
		CommitMessage: "add payments",
	})
	require.NoError(t, err)

	// A skipped agent-authored push still marks the repository as monitored.
	_, err = c.HandlePush(context.Background(), models.PushEvent{
		Repository:    "acme/anvils",
		Branch:        "main",
		CommitSHA:     "def456",
		CommitMessage: SkipMarker + " apply 1 automated fixes",
	})
	require.NoError(t, err)

	status := c.Status()
	assert.Equal(t, 2, status.ReposMonitored)
	assert.Equal(t, []string{"acme/anvils", "acme/widgets"}, status.MonitoredRepos)

	// Seeing the same repository again does not duplicate it.
	_, err = c.HandlePush(context.Background(), models.PushEvent{
		Repository:    "https://github.com/acme/widgets",
		Branch:        "main",
		CommitSHA:     "abc123",
		CommitMessage: "more payments",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Status().ReposMonitored)
}

func TestAnalyzePullRequest(t *testing.T) {
	host := newFakeHost()
	host.pullRequests[42] = &gh.PullRequestFiles{
		HeadRef: "feature/payments",
		HeadSHA: "headsha",
		Paths:   []string{"app.py"},
	}
	c := newTestController(t, host, monitorPolicy())

	result, err := c.AnalyzePullRequest(context.Background(), "acme/widgets", 42)
	require.NoError(t, err)

	// Analysis runs against the pull request's head branch.
	assert.Equal(t, "feature/payments", result.Branch)
	assert.Equal(t, "headsha", result.Commit)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 2, result.TotalIssues)

	_, err = c.AnalyzePullRequest(context.Background(), "acme/widgets", 99)
	require.Error(t, err)
}

func TestBranches(t *testing.T) {
	host := newFakeHost()
	host.branches = []string{"main", "develop"}
	c := newTestController(t, host, monitorPolicy())

	branches, err := c.Branches(context.Background(), "https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "develop"}, branches)

	_, err = c.Branches(context.Background(), "not a repository")
	require.Error(t, err)
}

func TestAnalyzeRepositoryIsolatesFetchFailures(t *testing.T) {
	host := newFakeHost()
	host.tree = []string{"app.py", "gone.py"}

	c := newTestController(t, host, monitorPolicy())
	result, err := c.AnalyzeRepository(context.Background(), "acme/widgets", "main", nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Empty(t, result.Files[0].Error)
	assert.NotEmpty(t, result.Files[1].Error)
	assert.Equal(t, "gone.py", result.Files[1].Filename)
}

func TestAnalyzeSnippetProposesFixesInMonitorMode(t *testing.T) {
	c := newTestController(t, newFakeHost(), monitorPolicy())

	result, err := c.AnalyzeSnippet(context.Background(), secretSource, "app.py")
	require.NoError(t, err)
	assert.Len(t, result.Issues, 2)
	// Snippet analysis always proposes fixes; the mode policy only gates
	// what happens to repositories.
	assert.NotEmpty(t, result.Fixes)
}
