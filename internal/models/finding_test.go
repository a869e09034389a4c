package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewResult_Normalize_BlockingForcesChangesRequested(t *testing.T) {
	r := &ReviewResult{
		Status:  StatusApproved, // model mis-reported approval
		Summary: "Looks fine",
		Findings: []Finding{
			{ID: "S1", Severity: SeveritySuggestion},
			{ID: "B1", Severity: SeverityBlocking},
		},
	}
	r.Normalize()
	assert.Equal(t, StatusChangesRequested, r.Status)
}

func TestReviewResult_Normalize_NoBlockingKeepsStatus(t *testing.T) {
	r := &ReviewResult{
		Status: StatusApproved,
		Findings: []Finding{
			{ID: "S1", Severity: SeveritySuggestion},
			{ID: "T1", Severity: SeverityTechDebt},
		},
	}
	r.Normalize()
	assert.Equal(t, StatusApproved, r.Status)

	r.Status = StatusChangesRequested
	r.Normalize()
	assert.Equal(t, StatusChangesRequested, r.Status, "changes_requested is never downgraded")
}

func TestFinding_HasFix(t *testing.T) {
	assert.False(t, Finding{Severity: SeveritySuggestion}.HasFix())
	assert.True(t, Finding{Severity: SeveritySuggestion, SuggestedFix: "rename the variable"}.HasFix())
}

func TestSnapshot_LastCommitMessage(t *testing.T) {
	s := &PullRequestSnapshot{}
	assert.Equal(t, "", s.LastCommitMessage())

	s.Commits = []Commit{
		{SHA: "aaa", Message: "feat: add endpoint"},
		{SHA: "bbb", Message: "fix: handle nil user"},
	}
	assert.Equal(t, "fix: handle nil user", s.LastCommitMessage())
}

func TestSnapshot_WithScope_DoesNotMutateOriginal(t *testing.T) {
	orig := &PullRequestSnapshot{
		Number: 7,
		Files:  []ChangedFile{{Filename: "a.go"}, {Filename: "vendor/b.go"}},
		Diff:   "full diff",
	}
	scoped := orig.WithScope([]ChangedFile{{Filename: "a.go"}}, "narrow diff", []string{"vendor/b.go"})

	assert.Len(t, orig.Files, 2)
	assert.Equal(t, "full diff", orig.Diff)
	assert.Empty(t, orig.Excluded)

	assert.Equal(t, 7, scoped.Number)
	assert.Len(t, scoped.Files, 1)
	assert.Equal(t, "narrow diff", scoped.Diff)
	assert.Equal(t, []string{"vendor/b.go"}, scoped.Excluded)
}
