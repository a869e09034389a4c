// Package review contains the pipeline core: finding classification,
// auto-fix application, and the run state machine.
package review

import "github.com/tx-joshg/pr-reviewer/internal/models"

// Partition splits findings into the three severity groups, preserving
// relative order within each group. Nothing is dropped or merged; id
// uniqueness is the review call's responsibility, not enforced here.
func Partition(findings []models.Finding) (blocking, suggestions, techDebt []models.Finding) {
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityBlocking:
			blocking = append(blocking, f)
		case models.SeveritySuggestion:
			suggestions = append(suggestions, f)
		case models.SeverityTechDebt:
			techDebt = append(techDebt, f)
		}
	}
	return blocking, suggestions, techDebt
}
