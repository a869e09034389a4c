package review

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"github.com/tx-joshg/pr-reviewer/internal/diffscope"
	"github.com/tx-joshg/pr-reviewer/internal/models"
	"github.com/tx-joshg/pr-reviewer/internal/policy"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	// OutcomeAutoApproved: every changed file was excluded; approved
	// without invoking the model.
	OutcomeAutoApproved Outcome = "auto-approved"
	// OutcomeFixesPushed: an auto-fix commit was pushed; the run stopped
	// early and the re-triggered run will finish the cycle.
	OutcomeFixesPushed Outcome = "fixes-pushed"
	// OutcomePassed: reviewed with no blocking findings.
	OutcomePassed Outcome = "passed"
	// OutcomeBlocked: reviewed with at least one blocking finding.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeErrored: the run failed; a best-effort error status was set.
	OutcomeErrored Outcome = "errored"
)

// Requester obtains a structured review for an in-scope snapshot.
type Requester interface {
	Review(ctx context.Context, pr *models.PullRequestSnapshot, pol *policy.Policy) (*models.ReviewResult, error)
}

// Gateway is the code-host surface the pipeline drives.
type Gateway interface {
	FetchSnapshot(ctx context.Context, number int) (*models.PullRequestSnapshot, error)
	PostReview(ctx context.Context, number int, result *models.ReviewResult, excluded []string) error
	CreateTechDebtIssue(ctx context.Context, number int, f models.Finding) error
	EnsureLabels(ctx context.Context) error
	SetStatus(ctx context.Context, sha, state, description string) error
	Merge(ctx context.Context, number int, method string) error
}

// FixApplier applies suggestion findings; reports whether a commit was pushed.
type FixApplier interface {
	Apply(ctx context.Context, pr *models.PullRequestSnapshot, suggestions []models.Finding) (bool, error)
}

// Options controls the optional pipeline behaviors.
type Options struct {
	AutoFix   bool
	AutoMerge bool
}

// Report is what a finished run hands back to the caller.
type Report struct {
	Outcome  Outcome
	Result   *models.ReviewResult // nil only when the run errored before reviewing
	Excluded []string
}

// Pipeline orchestrates one review run for one pull request.
type Pipeline struct {
	gw        Gateway
	requester Requester
	fixer     FixApplier
	pol       *policy.Policy
	opts      Options
	log       hclog.Logger
}

// New creates a pipeline. Each run is stamped with a fresh ULID in its logs.
func New(gw Gateway, requester Requester, fixer FixApplier, pol *policy.Policy, opts Options, log hclog.Logger) *Pipeline {
	return &Pipeline{
		gw:        gw,
		requester: requester,
		fixer:     fixer,
		pol:       pol,
		opts:      opts,
		log:       log.With("run_id", ulid.Make().String()),
	}
}

// Run executes the full pass for one PR. Any failure after the snapshot is
// fetched sets a best-effort error commit status before propagating.
func (p *Pipeline) Run(ctx context.Context, prNumber int) (*Report, error) {
	pr, err := p.gw.FetchSnapshot(ctx, prNumber)
	if err != nil {
		return &Report{Outcome: OutcomeErrored}, err
	}
	p.log.Info("fetched pull request", "pr", prNumber, "files", len(pr.Files), "commits", len(pr.Commits))

	report, err := p.run(ctx, pr)
	if err != nil {
		if serr := p.gw.SetStatus(ctx, pr.HeadSHA, "error", "Automated review failed"); serr != nil {
			p.log.Warn("set error status", "error", serr)
		}
		return &Report{Outcome: OutcomeErrored}, err
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, pr *models.PullRequestSnapshot) (*Report, error) {
	scope := diffscope.Filter(pr.Files, pr.Diff, p.pol.ExcludePrefixes())

	// Nothing left in scope: approve without ever invoking the model.
	if len(scope.Files) == 0 {
		return p.autoApprove(ctx, pr, scope.Excluded)
	}

	if err := p.gw.SetStatus(ctx, pr.HeadSHA, "pending", "Automated review in progress"); err != nil {
		return nil, err
	}

	scoped := pr.WithScope(scope.Files, scope.Diff, scope.Excluded)
	result, err := p.requester.Review(ctx, scoped, p.pol)
	if err != nil {
		return nil, fmt.Errorf("review: %w", err)
	}
	blocking, suggestions, techDebt := Partition(result.Findings)
	p.log.Info("review complete", "status", result.Status,
		"blocking", len(blocking), "suggestions", len(suggestions), "tech_debt", len(techDebt))

	if p.shouldAttemptFixes(pr, suggestions) {
		pushed, err := p.fixer.Apply(ctx, scoped, suggestions)
		if err != nil {
			// Fix failures never fail the run; fall through to posting.
			p.log.Warn("auto-fix aborted", "error", err)
		}
		if pushed {
			if err := p.gw.SetStatus(ctx, pr.HeadSHA, "pending", "Auto-fixes pushed; awaiting re-review"); err != nil {
				return nil, err
			}
			return &Report{Outcome: OutcomeFixesPushed, Result: result, Excluded: scope.Excluded}, nil
		}
	}

	return p.post(ctx, pr, result, blocking, techDebt, scope.Excluded)
}

// shouldAttemptFixes is the loop guard: never fix when the most recent
// commit is already one of ours, since pushing retriggers this pipeline.
func (p *Pipeline) shouldAttemptFixes(pr *models.PullRequestSnapshot, suggestions []models.Finding) bool {
	if !p.opts.AutoFix || p.fixer == nil || len(suggestions) == 0 {
		return false
	}
	if IsAutoFixCommit(pr.LastCommitMessage()) {
		p.log.Info("latest commit is an auto-fix commit; skipping fixes")
		return false
	}
	return true
}

func (p *Pipeline) post(ctx context.Context, pr *models.PullRequestSnapshot, result *models.ReviewResult, blocking, techDebt []models.Finding, excluded []string) (*Report, error) {
	if len(techDebt) > 0 {
		if err := p.gw.EnsureLabels(ctx); err != nil {
			p.log.Warn("ensure labels", "error", err)
		}
		for _, f := range techDebt {
			if err := p.gw.CreateTechDebtIssue(ctx, pr.Number, f); err != nil {
				p.log.Warn("file tracking issue", "finding", f.ID, "error", err)
			}
		}
	}

	if err := p.gw.PostReview(ctx, pr.Number, result, excluded); err != nil {
		return nil, err
	}

	if len(blocking) > 0 {
		desc := fmt.Sprintf("%d blocking finding(s)", len(blocking))
		if err := p.gw.SetStatus(ctx, pr.HeadSHA, "failure", desc); err != nil {
			return nil, err
		}
		return &Report{Outcome: OutcomeBlocked, Result: result, Excluded: excluded}, nil
	}

	if err := p.gw.SetStatus(ctx, pr.HeadSHA, "success", "Automated review passed"); err != nil {
		return nil, err
	}
	if err := p.maybeMerge(ctx, pr); err != nil {
		return nil, err
	}
	return &Report{Outcome: OutcomePassed, Result: result, Excluded: excluded}, nil
}

func (p *Pipeline) autoApprove(ctx context.Context, pr *models.PullRequestSnapshot, excluded []string) (*Report, error) {
	p.log.Info("all changed files excluded; auto-approving", "excluded", len(excluded))

	result := &models.ReviewResult{
		Status:  models.StatusApproved,
		Summary: "All changed files in this PR are excluded from review by project policy. Approved automatically.",
	}
	if err := p.gw.PostReview(ctx, pr.Number, result, excluded); err != nil {
		return nil, err
	}
	if err := p.gw.SetStatus(ctx, pr.HeadSHA, "success", "All changed files excluded from review"); err != nil {
		return nil, err
	}
	if err := p.maybeMerge(ctx, pr); err != nil {
		return nil, err
	}
	return &Report{Outcome: OutcomeAutoApproved, Result: result, Excluded: excluded}, nil
}

// maybeMerge merges only when auto-merge is enabled and the PR carries an
// auto-merge directive.
func (p *Pipeline) maybeMerge(ctx context.Context, pr *models.PullRequestSnapshot) error {
	if !p.opts.AutoMerge || pr.AutoMerge == nil {
		return nil
	}
	p.log.Info("merging", "pr", pr.Number, "method", pr.AutoMerge.Method)
	return p.gw.Merge(ctx, pr.Number, string(pr.AutoMerge.Method))
}
