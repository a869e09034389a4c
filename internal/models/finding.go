package models

// Severity classifies how a finding affects the review outcome.
type Severity string

const (
	SeverityBlocking   Severity = "blocking"
	SeveritySuggestion Severity = "suggestion"
	SeverityTechDebt   Severity = "tech_debt"
)

// ReviewStatus is the overall verdict of a review.
type ReviewStatus string

const (
	StatusApproved         ReviewStatus = "approved"
	StatusChangesRequested ReviewStatus = "changes_requested"
)

// Finding is a single reviewer-reported issue. Findings are produced only by
// the structured review call; the JSON tags match the tool schema and the
// machine-readable payload embedded in posted reviews.
type Finding struct {
	ID           string   `json:"id"` // B/S/T prefix + ordinal, assigned by the model
	Title        string   `json:"title"`
	File         string   `json:"file"`
	Line         int      `json:"line,omitempty"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// HasFix reports whether the finding carries a concrete fix. A suggestion
// without one is inert: the auto-fix engine must skip it.
func (f Finding) HasFix() bool {
	return f.SuggestedFix != ""
}

// ReviewResult is the structured output of one review invocation.
type ReviewResult struct {
	Status   ReviewStatus `json:"status"`
	Summary  string       `json:"summary"`
	Findings []Finding    `json:"findings"`
}

// HasBlocking reports whether any finding has blocking severity.
func (r *ReviewResult) HasBlocking() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// Normalize enforces the status invariant: blocking findings force
// changes_requested no matter what status the model reported.
func (r *ReviewResult) Normalize() {
	if r.HasBlocking() {
		r.Status = StatusChangesRequested
	}
}
