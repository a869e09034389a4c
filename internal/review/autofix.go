package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/tx-joshg/pr-reviewer/internal/models"
)

// AutoFixPrefix starts every commit message this tool pushes. The pipeline
// checks the PR's most recent commit against it before fixing: pushing a
// commit retriggers the pipeline externally, and this prefix check is the
// sole guard against a fix -> retrigger -> fix cycle.
const AutoFixPrefix = "fix: auto-fix review suggestions"

// IsAutoFixCommit reports whether a commit message was produced by Apply.
func IsAutoFixCommit(message string) bool {
	return strings.HasPrefix(message, AutoFixPrefix)
}

// Rewriter returns the corrected body of one file with the given fixes
// applied.
type Rewriter interface {
	RewriteFile(ctx context.Context, path, content string, fixes []models.Finding) (string, error)
}

// GitClient is the subset of git operations auto-fix needs.
type GitClient interface {
	StageAll(path string) error
	Commit(path, message string) error
	Push(path, remote, branch string) error
}

// Fixer applies suggestion findings to the working tree and pushes a single
// fix commit to the PR's head branch.
type Fixer struct {
	repoPath string
	rewriter Rewriter
	git      GitClient
	log      hclog.Logger
}

// NewFixer creates a Fixer operating on the checkout at repoPath.
func NewFixer(repoPath string, rewriter Rewriter, gitClient GitClient, log hclog.Logger) *Fixer {
	return &Fixer{repoPath: repoPath, rewriter: rewriter, git: gitClient, log: log}
}

// Apply rewrites each affected file once with all of its fixes combined,
// then commits and pushes if anything actually changed. It reports whether
// a fix commit was pushed. A failure on one file is logged and skipped; it
// never corrupts or aborts the others. A push failure aborts the whole
// attempt and reports false so the run falls through to posting the review.
func (f *Fixer) Apply(ctx context.Context, pr *models.PullRequestSnapshot, suggestions []models.Finding) (bool, error) {
	byFile, order := groupFixable(suggestions)
	if len(order) == 0 {
		return false, nil
	}

	changed := 0
	for _, file := range order {
		wrote, err := f.fixFile(ctx, file, byFile[file])
		if err != nil {
			f.log.Warn("skipping file", "file", file, "error", err)
			continue
		}
		if wrote {
			changed++
		}
	}
	if changed == 0 {
		return false, nil
	}

	if pr.HeadBranch == "" {
		return false, fmt.Errorf("no head branch to push to")
	}
	message := fmt.Sprintf("%s (PR #%d)", AutoFixPrefix, pr.Number)
	if err := f.git.StageAll(f.repoPath); err != nil {
		return false, fmt.Errorf("stage fixes: %w", err)
	}
	if err := f.git.Commit(f.repoPath, message); err != nil {
		return false, fmt.Errorf("commit fixes: %w", err)
	}
	if err := f.git.Push(f.repoPath, "origin", pr.HeadBranch); err != nil {
		return false, fmt.Errorf("push fixes: %w", err)
	}

	f.log.Info("pushed auto-fix commit", "files", changed, "branch", pr.HeadBranch)
	return true, nil
}

// groupFixable drops findings without a concrete fix and groups the rest by
// target file, preserving first-seen file order.
func groupFixable(suggestions []models.Finding) (map[string][]models.Finding, []string) {
	byFile := make(map[string][]models.Finding)
	var order []string
	for _, s := range suggestions {
		if !s.HasFix() {
			continue
		}
		if _, seen := byFile[s.File]; !seen {
			order = append(order, s.File)
		}
		byFile[s.File] = append(byFile[s.File], s)
	}
	return byFile, order
}

// fixFile rewrites one file in place. The file is only written when the
// normalized output differs from the normalized original.
func (f *Fixer) fixFile(ctx context.Context, file string, fixes []models.Finding) (bool, error) {
	path := filepath.Join(f.repoPath, file)
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read: %w", err)
	}

	fixed, err := f.rewriter.RewriteFile(ctx, file, string(content), fixes)
	if err != nil {
		return false, fmt.Errorf("rewrite: %w", err)
	}
	if strings.TrimSpace(fixed) == strings.TrimSpace(string(content)) {
		f.log.Debug("model returned unchanged content", "file", file)
		return false, nil
	}

	if !strings.HasSuffix(fixed, "\n") {
		fixed += "\n"
	}
	if err := os.WriteFile(path, []byte(fixed), info.Mode()); err != nil {
		return false, fmt.Errorf("write: %w", err)
	}
	return true, nil
}
