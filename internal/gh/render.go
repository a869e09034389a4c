package gh

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tx-joshg/pr-reviewer/internal/models"
)

// ReviewMarker identifies reviews posted by this tool. It is embedded as a
// hidden comment so later runs can find and retire prior reviews.
const ReviewMarker = "<!-- pr-reviewer -->"

const (
	payloadOpen  = "<!-- pr-reviewer:result"
	payloadClose = "-->"
)

// ReviewPayload is the machine-readable portion of a posted review body.
// Downstream tooling parses review state back out of this JSON.
type ReviewPayload struct {
	Status   models.ReviewStatus `json:"status"`
	Findings []models.Finding    `json:"findings"`
}

// renderReviewBody produces the posted review: the hidden marker, a
// human-readable summary grouped by severity, the excluded-file disclosure,
// and the hidden JSON payload.
func renderReviewBody(result *models.ReviewResult, excluded []string) string {
	var b strings.Builder

	b.WriteString(ReviewMarker)
	b.WriteString("\n## Automated review\n\n")
	b.WriteString(result.Summary)
	b.WriteString("\n")

	writeSeverityGroup(&b, "Blocking", result.Findings, models.SeverityBlocking)
	writeSeverityGroup(&b, "Suggestions", result.Findings, models.SeveritySuggestion)
	writeSeverityGroup(&b, "Tech debt (tracked as issues)", result.Findings, models.SeverityTechDebt)

	if len(excluded) > 0 {
		b.WriteString("\n### Excluded from review\n\n")
		for _, name := range excluded {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	}

	payload, _ := json.Marshal(ReviewPayload{Status: result.Status, Findings: result.Findings})
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", payloadOpen, payload, payloadClose)
	return b.String()
}

func writeSeverityGroup(b *strings.Builder, heading string, findings []models.Finding, severity models.Severity) {
	var group []models.Finding
	for _, f := range findings {
		if f.Severity == severity {
			group = append(group, f)
		}
	}
	if len(group) == 0 {
		return
	}

	fmt.Fprintf(b, "\n### %s\n\n", heading)
	for _, f := range group {
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(b, "- **%s** `%s`: %s\n", f.ID, location, f.Title)
		fmt.Fprintf(b, "  %s\n", f.Description)
		if f.SuggestedFix != "" {
			fmt.Fprintf(b, "  Suggested fix: %s\n", f.SuggestedFix)
		}
	}
}

// ExtractPayload parses the hidden JSON payload back out of a review body.
// It returns false when the body carries no payload.
func ExtractPayload(body string) (*ReviewPayload, bool) {
	start := strings.Index(body, payloadOpen)
	if start < 0 {
		return nil, false
	}
	rest := body[start+len(payloadOpen):]
	end := strings.Index(rest, payloadClose)
	if end < 0 {
		return nil, false
	}

	var payload ReviewPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &payload); err != nil {
		return nil, false
	}
	return &payload, true
}
