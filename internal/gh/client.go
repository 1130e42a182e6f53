// Package gh wraps the GitHub API for the fix pipeline: reading repository
// content and publishing fix branches with pull requests.
package gh

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
)

// Client wraps the GitHub API client with rate limiting and per-call timeouts.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	maxWorkers  int
	callTimeout time.Duration
}

// NewClient creates a GitHub client. rateLimit is requests per second.
func NewClient(token string, rateLimit int, callTimeout time.Duration) *Client {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}

	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		maxWorkers:  10, // Concurrent blob fetches
		callTimeout: callTimeout,
	}
}

// FileContent is one repository file with its blob identity, kept for
// optimistic concurrency when the file is later rewritten.
type FileContent struct {
	Path    string
	Content string
	SHA     string
}

// ChangedFile is one file to commit with its rewritten content.
type ChangedFile struct {
	Path    string
	Content string
	SHA     string // blob SHA the rewrite was based on; empty for new files
}

// RequestInfo identifies a created pull request.
type RequestInfo struct {
	Number int
	URL    string
	Branch string
}

// ParseRepository reduces a repository reference to owner and name. Full
// GitHub URLs and owner/repo forms are both accepted.
func ParseRepository(repository string) (owner, name string, err error) {
	s := strings.TrimSpace(repository)
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimPrefix(s, "https://github.com/")
	s = strings.TrimPrefix(s, "http://github.com/")
	s = strings.TrimPrefix(s, "git@github.com:")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// NormalizeRepository returns the owner/repo form of a repository reference.
func NormalizeRepository(repository string) (string, error) {
	owner, name, err := ParseRepository(repository)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

func (c *Client) wait(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	return callCtx, cancel, nil
}

// DefaultBranch returns the repository's default branch name.
func (c *Client) DefaultBranch(ctx context.Context, owner, name string) (string, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	repo, _, err := c.client.Repositories.Get(callCtx, owner, name)
	if err != nil {
		return "", fmt.Errorf("fetch repository: %w", err)
	}
	return repo.GetDefaultBranch(), nil
}

// ListBranches returns the repository's branch names.
func (c *Client) ListBranches(ctx context.Context, owner, name string) ([]string, error) {
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var names []string
	for {
		callCtx, cancel, err := c.wait(ctx)
		if err != nil {
			return nil, err
		}
		branches, resp, err := c.client.Repositories.ListBranches(callCtx, owner, name, opts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// BranchHead returns the commit SHA the branch points at.
func (c *Client) BranchHead(ctx context.Context, owner, name, branch string) (string, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	ref, _, err := c.client.Git.GetRef(callCtx, owner, name, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("get branch head: %w", err)
	}
	return ref.GetObject().GetSHA(), nil
}

// ListTree returns the paths of all blobs reachable from ref, sorted.
func (c *Client) ListTree(ctx context.Context, owner, name, ref string) ([]string, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	tree, _, err := c.client.Git.GetTree(callCtx, owner, name, ref, true)
	if err != nil {
		return nil, fmt.Errorf("fetch tree: %w", err)
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		paths = append(paths, entry.GetPath())
	}
	sort.Strings(paths)
	return paths, nil
}

// GetFileContent fetches one file at ref.
func (c *Client) GetFileContent(ctx context.Context, owner, name, path, ref string) (*FileContent, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	file, _, _, err := c.client.Repositories.GetContents(callCtx, owner, name, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindDecode, "decode "+path)
	}

	return &FileContent{
		Path:    path,
		Content: content,
		SHA:     file.GetSHA(),
	}, nil
}

// FetchedFile pairs a path with its fetch outcome. A failed fetch is
// reported here, per file, so one bad path cannot sink a whole batch.
type FetchedFile struct {
	Path string
	File *FileContent
	Err  error
}

// GetFiles fetches several files at ref concurrently with bounded workers.
// Results preserve the order of paths. The returned error is non-nil only
// when the context is done; per-file failures land in FetchedFile.Err.
func (c *Client) GetFiles(ctx context.Context, owner, name string, paths []string, ref string) ([]FetchedFile, error) {
	files := make([]FetchedFile, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, path := range paths {
		g.Go(func() error {
			file, err := c.GetFileContent(groupCtx, owner, name, path, ref)
			files[i] = FetchedFile{Path: path, File: file, Err: err}
			return groupCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// PullRequestFiles identifies a pull request's head and the files it touches.
type PullRequestFiles struct {
	HeadRef string
	HeadSHA string
	Paths   []string
}

// GetPullRequestFiles resolves a pull request's head ref and the paths it
// changes. Removed files are left out: there is nothing to analyze.
func (c *Client) GetPullRequestFiles(ctx context.Context, owner, name string, number int) (*PullRequestFiles, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	pr, _, err := c.client.PullRequests.Get(callCtx, owner, name, number)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch pull request #%d: %w", number, err)
	}

	result := &PullRequestFiles{
		HeadRef: pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		callCtx, cancel, err := c.wait(ctx)
		if err != nil {
			return nil, err
		}
		files, resp, err := c.client.PullRequests.ListFiles(callCtx, owner, name, number, opts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("list pull request files: %w", err)
		}
		for _, f := range files {
			if f.GetStatus() == "removed" {
				continue
			}
			result.Paths = append(result.Paths, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	sort.Strings(result.Paths)
	return result, nil
}

// GetCommitFiles returns the paths touched by a commit.
func (c *Client) GetCommitFiles(ctx context.Context, owner, name, sha string) ([]string, error) {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	commit, _, err := c.client.Repositories.GetCommit(callCtx, owner, name, sha, &github.ListOptions{PerPage: 300})
	if err != nil {
		return nil, fmt.Errorf("fetch commit %s: %w", sha, err)
	}

	var paths []string
	for _, f := range commit.Files {
		if f.GetStatus() == "removed" {
			continue
		}
		paths = append(paths, f.GetFilename())
	}
	sort.Strings(paths)
	return paths, nil
}

// CommitAndOpenRequest creates a branch from the head of base, commits the
// changed files onto it, and opens a pull request back into base. Failures
// past the first commit are reported as publish errors; the caller still
// holds the rewritten content.
func (c *Client) CommitAndOpenRequest(ctx context.Context, owner, name, base, title, body, commitMessage string, files []ChangedFile) (*RequestInfo, error) {
	if len(files) == 0 {
		return nil, errors.New(errors.KindPublish, "no files to commit")
	}

	headSHA, err := c.BranchHead(ctx, owner, name, base)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindPublish, "resolve base branch")
	}

	branch := fmt.Sprintf("github-doctor/fixes-%d", time.Now().Unix())
	if err := c.createBranch(ctx, owner, name, branch, headSHA); err != nil {
		return nil, errors.Wrap(err, errors.KindPublish, "create fix branch")
	}

	for _, file := range files {
		if err := c.updateFile(ctx, owner, name, branch, commitMessage, file); err != nil {
			return nil, errors.Wrap(err, errors.KindPublish, "commit "+file.Path)
		}
	}

	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	pr, _, err := c.client.PullRequests.Create(callCtx, owner, name, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindPublish, "open pull request")
	}

	return &RequestInfo{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Branch: branch,
	}, nil
}

func (c *Client) createBranch(ctx context.Context, owner, name, branch, fromSHA string) error {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, _, err = c.client.Git.CreateRef(callCtx, owner, name, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(fromSHA)},
	})
	return err
}

func (c *Client) updateFile(ctx context.Context, owner, name, branch, message string, file ChangedFile) error {
	callCtx, cancel, err := c.wait(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(file.Content),
		Branch:  github.String(branch),
	}
	if file.SHA != "" {
		opts.SHA = github.String(file.SHA)
	}

	if file.SHA == "" {
		_, _, err = c.client.Repositories.CreateFile(callCtx, owner, name, file.Path, opts)
	} else {
		_, _, err = c.client.Repositories.UpdateFile(callCtx, owner, name, file.Path, opts)
	}
	return err
}
