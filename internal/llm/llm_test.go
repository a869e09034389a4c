package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tx-joshg/pr-reviewer/internal/models"
	"github.com/tx-joshg/pr-reviewer/internal/policy"
)

func basePolicy() *policy.Policy {
	return &policy.Policy{ProjectType: "saas-api", Language: "go"}
}

func TestSystemPrompt_BaseAlwaysPresent(t *testing.T) {
	system := systemPrompt(basePolicy())

	assert.Contains(t, system, "saas-api")
	assert.Contains(t, system, "go")
	assert.Contains(t, system, `"blocking"`)
	assert.Contains(t, system, `"suggestion"`)
	assert.Contains(t, system, `"tech_debt"`)
	assert.Contains(t, system, "record_review")
}

func TestSystemPrompt_ConditionalSections(t *testing.T) {
	t.Run("omitted when policy fields absent", func(t *testing.T) {
		system := systemPrompt(basePolicy())
		assert.NotContains(t, system, "Multi-tenancy")
		assert.NotContains(t, system, "Authentication:")
		assert.NotContains(t, system, "Testing:")
		assert.NotContains(t, system, "Routes:")
		assert.NotContains(t, system, "Project conventions")
	})

	t.Run("tenancy included only when enabled", func(t *testing.T) {
		p := basePolicy()
		p.MultiTenancy = &policy.MultiTenancy{Enabled: false, ScopeColumn: "org_id"}
		assert.NotContains(t, systemPrompt(p), "Multi-tenancy")

		p.MultiTenancy.Enabled = true
		system := systemPrompt(p)
		assert.Contains(t, system, "Multi-tenancy")
		assert.Contains(t, system, `"org_id"`)
	})

	t.Run("auth", func(t *testing.T) {
		p := basePolicy()
		p.Auth = &policy.Auth{
			Provider:        "clerk",
			ProtectedRoutes: "/api/*",
			Except:          []string{"/api/health"},
		}
		system := systemPrompt(p)
		assert.Contains(t, system, "clerk")
		assert.Contains(t, system, "/api/*")
		assert.Contains(t, system, "/api/health")
	})

	t.Run("conventions injected verbatim", func(t *testing.T) {
		p := basePolicy()
		p.Conventions = []string{"All handlers return JSON errors"}
		assert.Contains(t, systemPrompt(p), "All handlers return JSON errors")
	})
}

func TestUserPrompt(t *testing.T) {
	pr := &models.PullRequestSnapshot{
		Number:     42,
		Title:      "Add webhook endpoint",
		Body:       "Adds the /webhook route.",
		BaseBranch: "main",
		HeadBranch: "feature/webhook",
		Commits: []models.Commit{
			{SHA: "abcdef0123456789", Message: "feat: webhook\n\nlong body"},
		},
		Files: []models.ChangedFile{
			{Filename: "internal/api/webhook.go", Status: models.FileAdded, Additions: 80, Deletions: 0},
		},
		Excluded: []string{"vendor/dep/dep.go"},
		Diff:     "diff --git a/internal/api/webhook.go b/internal/api/webhook.go\n",
	}

	user := userPrompt(pr)

	assert.Contains(t, user, "Pull request #42: Add webhook endpoint")
	assert.Contains(t, user, "feature/webhook -> main")
	assert.Contains(t, user, "Adds the /webhook route.")
	assert.Contains(t, user, "abcdef01 feat: webhook")
	assert.NotContains(t, user, "long body", "commit log uses subject lines only")
	assert.Contains(t, user, "internal/api/webhook.go (added, +80/-0)")
	assert.Contains(t, user, "Excluded from review")
	assert.Contains(t, user, "vendor/dep/dep.go")
	assert.Contains(t, user, "Diff:\ndiff --git")
}

func TestUserPrompt_NoExcludedSection(t *testing.T) {
	pr := &models.PullRequestSnapshot{Number: 1, Title: "x"}
	assert.NotContains(t, userPrompt(pr), "Excluded from review")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "package main", stripFences("package main"))
	assert.Equal(t, "package main", stripFences("```go\npackage main\n```"))
	assert.Equal(t, "package main", stripFences("```\npackage main\n```\n"))
	assert.Equal(t, "", stripFences("```\n```"))
}
