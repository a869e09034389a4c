package models

// FileStatus is the change kind GitHub reports for a file in a PR.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
	FileRenamed  FileStatus = "renamed"
)

// MergeMethod is a GitHub merge strategy.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// Commit is one entry in a PR's commit list.
type Commit struct {
	SHA     string
	Message string
}

// ChangedFile is one entry in a PR's changed-file list.
type ChangedFile struct {
	Filename  string
	Status    FileStatus
	Additions int
	Deletions int
	Patch     string
}

// AutoMergeDirective mirrors GitHub's auto-merge setting on a PR.
type AutoMergeDirective struct {
	Method MergeMethod
}

// PullRequestSnapshot captures everything about a PR that one run needs.
// It is captured once per run and treated as immutable; exclusion filtering
// produces a narrowed copy via WithScope rather than mutating it.
type PullRequestSnapshot struct {
	Number     int
	Title      string
	Body       string
	Commits    []Commit // oldest first, matching the GitHub API ordering
	Files      []ChangedFile
	Diff       string
	BaseBranch string
	HeadBranch string
	HeadSHA    string
	AutoMerge  *AutoMergeDirective

	// Excluded lists filenames removed from scope by exclusion filtering.
	// Empty on the unfiltered snapshot.
	Excluded []string
}

// LastCommitMessage returns the message of the most recent commit, or "" for
// a PR with no commits.
func (s *PullRequestSnapshot) LastCommitMessage() string {
	if len(s.Commits) == 0 {
		return ""
	}
	return s.Commits[len(s.Commits)-1].Message
}

// WithScope returns a copy of the snapshot narrowed to the given in-scope
// files and diff, recording which filenames were excluded.
func (s *PullRequestSnapshot) WithScope(files []ChangedFile, diff string, excluded []string) *PullRequestSnapshot {
	scoped := *s
	scoped.Files = files
	scoped.Diff = diff
	scoped.Excluded = excluded
	return &scoped
}
