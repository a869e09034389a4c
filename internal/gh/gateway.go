// Package gh is the GitHub side of the pipeline: PR snapshots, review
// posting, tech-debt issues, commit statuses, and merges.
package gh

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v71/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/tx-joshg/pr-reviewer/internal/models"
)

// StatusContext is the name under which commit statuses are reported.
const StatusContext = "pr-reviewer"

// Labels applied to every tracking issue this tool files.
var issueLabels = []struct {
	Name        string
	Color       string
	Description string
}{
	{Name: "tech-debt", Color: "d4c5f9", Description: "Deferred work identified in review"},
	{Name: "pr-reviewer", Color: "0e8a16", Description: "Filed by the automated PR reviewer"},
}

// Client wraps the GitHub API for one repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	log   hclog.Logger
}

// NewClient creates a gateway for owner/repo authenticated with token.
func NewClient(token, owner, repo string, log hclog.Logger) *Client {
	c := github.NewClient(nil)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	return &Client{gh: c, owner: owner, repo: repo, log: log}
}

// FetchSnapshot captures the PR as an immutable value. The four reads are
// independent, so they run concurrently.
func (c *Client) FetchSnapshot(ctx context.Context, number int) (*models.PullRequestSnapshot, error) {
	var (
		pr      *github.PullRequest
		files   []*github.CommitFile
		commits []*github.RepositoryCommit
		diff    string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pr, _, err = c.gh.PullRequests.Get(gctx, c.owner, c.repo, number)
		if err != nil {
			return fmt.Errorf("fetch PR #%d: %w", number, err)
		}
		return nil
	})
	g.Go(func() error {
		opts := &github.ListOptions{PerPage: 100}
		for {
			batch, resp, err := c.gh.PullRequests.ListFiles(gctx, c.owner, c.repo, number, opts)
			if err != nil {
				return fmt.Errorf("list PR files: %w", err)
			}
			files = append(files, batch...)
			if resp == nil || resp.NextPage == 0 {
				return nil
			}
			opts.Page = resp.NextPage
		}
	})
	g.Go(func() error {
		opts := &github.ListOptions{PerPage: 100}
		for {
			batch, resp, err := c.gh.PullRequests.ListCommits(gctx, c.owner, c.repo, number, opts)
			if err != nil {
				return fmt.Errorf("list PR commits: %w", err)
			}
			commits = append(commits, batch...)
			if resp == nil || resp.NextPage == 0 {
				return nil
			}
			opts.Page = resp.NextPage
		}
	})
	g.Go(func() error {
		var err error
		diff, _, err = c.gh.PullRequests.GetRaw(gctx, c.owner, c.repo, number, github.RawOptions{Type: github.Diff})
		if err != nil {
			return fmt.Errorf("fetch PR diff: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &models.PullRequestSnapshot{
		Number:     number,
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		Diff:       diff,
		BaseBranch: pr.GetBase().GetRef(),
		HeadBranch: pr.GetHead().GetRef(),
		HeadSHA:    pr.GetHead().GetSHA(),
	}
	if am := pr.GetAutoMerge(); am != nil {
		snapshot.AutoMerge = &models.AutoMergeDirective{
			Method: models.MergeMethod(am.GetMergeMethod()),
		}
	}
	for _, commit := range commits {
		snapshot.Commits = append(snapshot.Commits, models.Commit{
			SHA:     commit.GetSHA(),
			Message: commit.GetCommit().GetMessage(),
		})
	}
	for _, f := range files {
		snapshot.Files = append(snapshot.Files, models.ChangedFile{
			Filename:  f.GetFilename(),
			Status:    models.FileStatus(f.GetStatus()),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Patch:     f.GetPatch(),
		})
	}
	return snapshot, nil
}

// PostReview retires any earlier review this tool posted, then creates the
// consolidated review. Retirement failures are logged and ignored: a review
// that cannot be dismissed (already finalized) does not block the new one.
func (c *Client) PostReview(ctx context.Context, number int, result *models.ReviewResult, excluded []string) error {
	c.dismissPriorReviews(ctx, number)

	event := "APPROVE"
	if result.Status == models.StatusChangesRequested {
		event = "REQUEST_CHANGES"
	}
	body := renderReviewBody(result, excluded)

	_, _, err := c.gh.PullRequests.CreateReview(ctx, c.owner, c.repo, number, &github.PullRequestReviewRequest{
		Body:  github.Ptr(body),
		Event: github.Ptr(event),
	})
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (c *Client) dismissPriorReviews(ctx context.Context, number int) {
	reviews, _, err := c.gh.PullRequests.ListReviews(ctx, c.owner, c.repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		c.log.Warn("list prior reviews", "error", err)
		return
	}
	for _, review := range reviews {
		if !strings.Contains(review.GetBody(), ReviewMarker) {
			continue
		}
		// Only CHANGES_REQUESTED reviews are dismissible.
		if review.GetState() != "CHANGES_REQUESTED" {
			continue
		}
		_, _, err := c.gh.PullRequests.DismissReview(ctx, c.owner, c.repo, number, review.GetID(),
			&github.PullRequestReviewDismissalRequest{
				Message: github.Ptr("Superseded by a newer automated review."),
			})
		if err != nil {
			c.log.Warn("dismiss prior review", "review_id", review.GetID(), "error", err)
		}
	}
}

// CreateTechDebtIssue files one tracking issue for a tech_debt finding.
func (c *Client) CreateTechDebtIssue(ctx context.Context, number int, f models.Finding) error {
	title := fmt.Sprintf("[tech debt] %s", f.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Found during automated review of #%d.\n\n", number)
	fmt.Fprintf(&b, "**File:** `%s`", f.File)
	if f.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", f.Line)
	}
	fmt.Fprintf(&b, "\n\n%s\n", f.Description)
	if f.SuggestedFix != "" {
		fmt.Fprintf(&b, "\n**Suggested fix:** %s\n", f.SuggestedFix)
	}

	labels := make([]string, 0, len(issueLabels))
	for _, l := range issueLabels {
		labels = append(labels, l.Name)
	}

	_, _, err := c.gh.Issues.Create(ctx, c.owner, c.repo, &github.IssueRequest{
		Title:  github.Ptr(title),
		Body:   github.Ptr(b.String()),
		Labels: &labels,
	})
	if err != nil {
		return fmt.Errorf("create issue for %s: %w", f.ID, err)
	}
	return nil
}

// EnsureLabels creates the tracking-issue labels if they do not exist yet.
func (c *Client) EnsureLabels(ctx context.Context) error {
	for _, l := range issueLabels {
		_, resp, err := c.gh.Issues.GetLabel(ctx, c.owner, c.repo, l.Name)
		if err == nil {
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("get label %s: %w", l.Name, err)
		}
		_, _, err = c.gh.Issues.CreateLabel(ctx, c.owner, c.repo, &github.Label{
			Name:        github.Ptr(l.Name),
			Color:       github.Ptr(l.Color),
			Description: github.Ptr(l.Description),
		})
		if err != nil {
			return fmt.Errorf("create label %s: %w", l.Name, err)
		}
	}
	return nil
}

// SetStatus sets the named commit status on sha. state is one of pending,
// success, failure, error.
func (c *Client) SetStatus(ctx context.Context, sha, state, description string) error {
	_, _, err := c.gh.Repositories.CreateStatus(ctx, c.owner, c.repo, sha, &github.RepoStatus{
		State:       github.Ptr(state),
		Description: github.Ptr(description),
		Context:     github.Ptr(StatusContext),
	})
	if err != nil {
		return fmt.Errorf("set commit status %s: %w", state, err)
	}
	return nil
}

// Merge merges the PR with the given method (merge, squash, rebase).
func (c *Client) Merge(ctx context.Context, number int, method string) error {
	_, _, err := c.gh.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
		MergeMethod: method,
	})
	if err != nil {
		return fmt.Errorf("merge PR #%d: %w", number, err)
	}
	return nil
}
