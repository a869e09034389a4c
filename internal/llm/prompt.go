package llm

import (
	"fmt"
	"strings"

	"github.com/tx-joshg/pr-reviewer/internal/models"
	"github.com/tx-joshg/pr-reviewer/internal/policy"
)

// section renders one block of the review system prompt. ok is false when
// the policy lacks the fields the section depends on, in which case the
// block is omitted entirely.
type section func(p *policy.Policy) (text string, ok bool)

var sections = []section{
	baseSection,
	schemaSection,
	tenancySection,
	authSection,
	testingSection,
	routesSection,
	conventionsSection,
	outputSection,
}

// systemPrompt composes the policy-conditioned instruction document.
func systemPrompt(p *policy.Policy) string {
	var parts []string
	for _, s := range sections {
		if text, ok := s(p); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func baseSection(p *policy.Policy) (string, bool) {
	return fmt.Sprintf(`You are an automated senior code reviewer for a %s project written in %s.
Review the pull request diff below against this checklist:
- Correctness: logic errors, off-by-one mistakes, nil/undefined access, race conditions
- Security: injection, secrets in code, missing input validation, unsafe defaults
- Error handling: swallowed errors, missing propagation, misleading messages
- API and data contracts: breaking changes, inconsistent shapes, missing validation
- Maintainability: dead code, duplication, misleading names

Severity rules:
- "blocking": must be fixed before merge (bugs, security issues, data loss risks)
- "suggestion": worth fixing now; include a concrete suggested_fix when the change is mechanical
- "tech_debt": real but deferrable; will be tracked in an issue

Assign each finding an id: B1, B2... for blocking, S1, S2... for suggestions, T1, T2... for tech debt.
Only report findings you are confident about. Do not pad the list.`, p.ProjectType, p.Language), true
}

func schemaSection(p *policy.Policy) (string, bool) {
	if p.Schema == nil {
		return "", false
	}
	return fmt.Sprintf(`Schema: this project uses %s with the schema at %s.
Flag queries or models that drift from the declared schema.`, p.Schema.ORM, p.Schema.Path), true
}

func tenancySection(p *policy.Policy) (string, bool) {
	if p.MultiTenancy == nil || !p.MultiTenancy.Enabled {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Multi-tenancy: every data access must be scoped by the %q column.", p.MultiTenancy.ScopeColumn)
	if p.MultiTenancy.CheckDescription != "" {
		fmt.Fprintf(&b, "\n%s", p.MultiTenancy.CheckDescription)
	}
	if len(p.MultiTenancy.AppliesTo) > 0 {
		fmt.Fprintf(&b, "\nApplies to: %s.", strings.Join(p.MultiTenancy.AppliesTo, ", "))
	}
	b.WriteString("\nA missing tenant scope is a blocking finding.")
	return b.String(), true
}

func authSection(p *policy.Policy) (string, bool) {
	if p.Auth == nil {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Authentication: provider is %s", p.Auth.Provider)
	if p.Auth.MiddlewareImport != "" {
		fmt.Fprintf(&b, ", middleware from %s", p.Auth.MiddlewareImport)
	}
	b.WriteString(".")
	if p.Auth.ProtectedRoutes != "" {
		fmt.Fprintf(&b, "\nRoutes matching %s must be protected", p.Auth.ProtectedRoutes)
		if len(p.Auth.Except) > 0 {
			fmt.Fprintf(&b, ", except: %s", strings.Join(p.Auth.Except, ", "))
		}
		b.WriteString(".")
	}
	if len(p.Auth.AppliesTo) > 0 {
		fmt.Fprintf(&b, "\nApplies to: %s.", strings.Join(p.Auth.AppliesTo, ", "))
	}
	b.WriteString("\nAn unprotected route that should be protected is a blocking finding.")
	return b.String(), true
}

func testingSection(p *policy.Policy) (string, bool) {
	if p.Testing == nil {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Testing: this project uses %s with tests in %s.", p.Testing.Framework, p.Testing.TestDir)
	if len(p.Testing.SourceDirs) > 0 {
		fmt.Fprintf(&b, "\nNew logic under %s should come with tests; flag untested changes as suggestions.",
			strings.Join(p.Testing.SourceDirs, ", "))
	}
	return b.String(), true
}

func routesSection(p *policy.Policy) (string, bool) {
	if p.Routes == nil {
		return "", false
	}
	return fmt.Sprintf(`Routes: declared in %s; data access convention: %s.
Flag handlers that bypass the data access convention.`, p.Routes.File, p.Routes.DataAccess), true
}

func conventionsSection(p *policy.Policy) (string, bool) {
	if len(p.Conventions) == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("Project conventions (treat as ground truth):")
	for _, c := range p.Conventions {
		fmt.Fprintf(&b, "\n- %s", c)
	}
	return b.String(), true
}

func outputSection(p *policy.Policy) (string, bool) {
	return `Report your review by calling the record_review tool exactly once.
The summary must be 2-3 sentences. Set status to "changes_requested" if any finding is blocking.`, true
}

// userPrompt renders the PR itself: metadata, commit log, changed-file
// summary, excluded-file disclosure, and the filtered diff.
func userPrompt(pr *models.PullRequestSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pull request #%d: %s\n", pr.Number, pr.Title)
	fmt.Fprintf(&b, "Branch: %s -> %s\n", pr.HeadBranch, pr.BaseBranch)
	if pr.Body != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", pr.Body)
	}

	if len(pr.Commits) > 0 {
		b.WriteString("\nCommits:\n")
		for _, c := range pr.Commits {
			sha := c.SHA
			if len(sha) > 8 {
				sha = sha[:8]
			}
			fmt.Fprintf(&b, "- %s %s\n", sha, firstLine(c.Message))
		}
	}

	b.WriteString("\nChanged files:\n")
	for _, f := range pr.Files {
		fmt.Fprintf(&b, "- %s (%s, +%d/-%d)\n", f.Filename, f.Status, f.Additions, f.Deletions)
	}

	if len(pr.Excluded) > 0 {
		b.WriteString("\nExcluded from review by project policy (do not report findings for these):\n")
		for _, name := range pr.Excluded {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	fmt.Fprintf(&b, "\nDiff:\n%s", pr.Diff)
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
