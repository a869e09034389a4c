// Package llm wraps the Anthropic API for the two model calls this tool
// makes: the structured review and the whole-file rewrite used by auto-fix.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tx-joshg/pr-reviewer/internal/models"
	"github.com/tx-joshg/pr-reviewer/internal/policy"
)

// ErrNoToolCall indicates the model replied without invoking the mandatory
// review tool. This is a contract violation and always fatal; it must never
// be interpreted as "zero findings".
var ErrNoToolCall = errors.New("model response contained no record_review tool call")

const reviewToolName = "record_review"

// Client wraps the Anthropic API.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// reviewToolSchema is the JSON schema for the mandatory review tool. It
// mirrors models.ReviewResult exactly.
func reviewToolSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"status": map[string]any{
				"type": "string",
				"enum": []string{"approved", "changes_requested"},
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentence summary of the review",
			},
			"findings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"title": map[string]any{"type": "string"},
						"file":  map[string]any{"type": "string"},
						"line":  map[string]any{"type": "integer"},
						"severity": map[string]any{
							"type": "string",
							"enum": []string{"blocking", "suggestion", "tech_debt"},
						},
						"description":   map[string]any{"type": "string"},
						"suggested_fix": map[string]any{"type": "string"},
					},
					"required": []string{"id", "title", "file", "severity", "description"},
				},
			},
		},
		Required: []string{"status", "summary", "findings"},
	}
}

// Review sends the PR to the model with a single forced tool and returns the
// normalized structured result. The model cannot reply with free text: a
// response without the tool call fails with ErrNoToolCall.
func (c *Client) Review(ctx context.Context, pr *models.PullRequestSnapshot, pol *policy.Policy) (*models.ReviewResult, error) {
	reviewTool := anthropic.ToolParam{
		Name:        reviewToolName,
		Description: anthropic.String("Record the structured result of the code review."),
		InputSchema: reviewToolSchema(),
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(pol)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(pr))),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &reviewTool},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: reviewToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		variant, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || variant.Name != reviewToolName {
			continue
		}

		var result models.ReviewResult
		if err := json.Unmarshal([]byte(variant.JSON.Input.Raw()), &result); err != nil {
			return nil, fmt.Errorf("parse review tool input: %w", err)
		}
		result.Normalize()
		return &result, nil
	}

	return nil, ErrNoToolCall
}

// RewriteFile asks the model for the entire corrected body of one file,
// applying every fix description at once. Returns the raw corrected content.
func (c *Client) RewriteFile(ctx context.Context, path, content string, fixes []models.Finding) (string, error) {
	system := `You are an automated code-fixing tool. You will receive a source file and a list of review fixes to apply.
Return the ENTIRE corrected file content with every fix applied.
Rules:
- Output raw file content only: no prose, no explanation, no markdown fencing
- Apply only the listed fixes; do not reformat or restructure unrelated code
- Preserve the file's existing style, imports, and ordering`

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n\nFixes to apply:\n", path)
	for _, f := range fixes {
		fmt.Fprintf(&b, "- %s: %s", f.Title, f.Description)
		if f.SuggestedFix != "" {
			fmt.Fprintf(&b, "\n  Fix: %s", f.SuggestedFix)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nCurrent file content:\n%s", content)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 16384,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(b.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	text = stripFences(text)
	if text == "" {
		return "", fmt.Errorf("model returned empty file content")
	}
	return text, nil
}

// stripFences removes markdown code fencing if the model ignored the
// no-fence instruction.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
