package cmd

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tx-joshg/pr-reviewer/internal/gh"
	"github.com/tx-joshg/pr-reviewer/internal/git"
	"github.com/tx-joshg/pr-reviewer/internal/llm"
	"github.com/tx-joshg/pr-reviewer/internal/models"
	"github.com/tx-joshg/pr-reviewer/internal/output"
	"github.com/tx-joshg/pr-reviewer/internal/policy"
	"github.com/tx-joshg/pr-reviewer/internal/review"
)

var (
	reviewPolicyPath string
	reviewRepo       string
	reviewPR         int
	reviewWorkdir    string
	reviewModel      string
	reviewAutoFix    bool
	reviewAutoMerge  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a pull request",
	Long: `Review a pull request end to end: fetch it, filter excluded paths,
request a structured model review, auto-fix suggestions, file tech-debt
issues, and post the consolidated review with a commit status.

Exits non-zero when the review finds blocking issues or the run fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd)
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewPolicyPath, "policy", "", "Path to the review policy document (required)")
	reviewCmd.Flags().StringVar(&reviewRepo, "repo", "", "GitHub repository as owner/name (default: detect from workdir remote)")
	reviewCmd.Flags().IntVar(&reviewPR, "pr", 0, "Pull request number (required)")
	reviewCmd.Flags().StringVar(&reviewWorkdir, "workdir", ".", "Path to the PR checkout, used for auto-fix")
	reviewCmd.Flags().StringVar(&reviewModel, "model", "", "Model identifier (default from config)")
	reviewCmd.Flags().BoolVar(&reviewAutoFix, "auto-fix", true, "Push auto-fix commits for suggestion findings")
	reviewCmd.Flags().BoolVar(&reviewAutoMerge, "auto-merge", true, "Merge PRs that carry an auto-merge directive")
	_ = reviewCmd.MarkFlagRequired("policy")
	_ = reviewCmd.MarkFlagRequired("pr")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command) error {
	// Config errors abort before any network call.
	pol, err := policy.Load(reviewPolicyPath)
	if err != nil {
		return err
	}

	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return fmt.Errorf("no Anthropic API key; set anthropic.api_key or ANTHROPIC_API_KEY")
	}
	token := viper.GetString("github.token")
	if token == "" {
		return fmt.Errorf("no GitHub token; set github.token or GITHUB_TOKEN")
	}
	model := reviewModel
	if model == "" {
		model = viper.GetString("anthropic.model")
	}

	gitClient := git.NewClient()
	owner, repo, err := resolveRepo(reviewRepo, reviewWorkdir, gitClient)
	if err != nil {
		return err
	}

	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "pr-reviewer", Level: level})

	llmClient := llm.NewClient(apiKey, model)
	gateway := gh.NewClient(token, owner, repo, logger.Named("github"))
	fixer := review.NewFixer(reviewWorkdir, llmClient, gitClient, logger.Named("autofix"))

	opts := review.Options{
		AutoFix:   reviewAutoFix && viper.GetBool("review.auto_fix"),
		AutoMerge: reviewAutoMerge && viper.GetBool("review.auto_merge"),
	}
	pipeline := review.New(gateway, llmClient, fixer, pol, opts, logger)

	ui.Info("reviewing %s/%s #%d", owner, repo, reviewPR)
	report, err := pipeline.Run(cmd.Context(), reviewPR)
	if err != nil {
		return err
	}
	printReport(report)

	if report.Outcome == review.OutcomeBlocked {
		blocking, _, _ := review.Partition(report.Result.Findings)
		return fmt.Errorf("review blocked: %d blocking finding(s)", len(blocking))
	}
	return nil
}

// resolveRepo returns owner/name from the --repo flag, or falls back to the
// workdir's origin remote.
func resolveRepo(flag, workdir string, gitClient git.Client) (string, string, error) {
	if flag != "" {
		parts := strings.SplitN(flag, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid --repo %q: expected owner/name", flag)
		}
		return parts[0], parts[1], nil
	}

	remote, err := gitClient.RemoteURL(workdir)
	if err != nil || remote == "" {
		return "", "", fmt.Errorf("no --repo given and no origin remote in %s", workdir)
	}
	return git.ExtractOwnerRepo(remote)
}

func printReport(report *review.Report) {
	switch report.Outcome {
	case review.OutcomeAutoApproved:
		ui.Success("all changed files excluded; auto-approved (%d excluded)", len(report.Excluded))
	case review.OutcomeFixesPushed:
		ui.Info("auto-fix commit pushed; review will re-run on the new commit")
	case review.OutcomePassed:
		ui.Success("review passed")
	case review.OutcomeBlocked:
		ui.Error("review blocked")
	}

	if report.Result == nil || len(report.Result.Findings) == 0 {
		return
	}
	table := ui.Table([]string{"ID", "Severity", "File", "Title"})
	for _, f := range report.Result.Findings {
		file := f.File
		if f.Line > 0 {
			file = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		table.Append([]string{f.ID, output.SeverityColor(string(f.Severity)), file, f.Title})
	}
	if err := table.Render(); err != nil {
		ui.Warning("render findings table: %v", err)
	}
	if hasSeverity(report.Result.Findings, models.SeverityTechDebt) {
		ui.Info("tech-debt findings were filed as tracking issues")
	}
}

func hasSeverity(findings []models.Finding, severity models.Severity) bool {
	for _, f := range findings {
		if f.Severity == severity {
			return true
		}
	}
	return false
}
