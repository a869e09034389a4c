package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tx-joshg/pr-reviewer/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect review policy documents",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a policy document and show what it configures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return policyValidateRun(args[0])
	},
}

func init() {
	policyCmd.AddCommand(policyValidateCmd)
	rootCmd.AddCommand(policyCmd)
}

func policyValidateRun(path string) error {
	p, err := policy.Load(path)
	if err != nil {
		return err
	}

	ui.Success("%s is valid", path)
	ui.Info("project: %s (%s)", p.ProjectType, p.Language)
	if p.MultiTenancy != nil && p.MultiTenancy.Enabled {
		ui.Info("multi-tenancy checks enabled (scope column %q)", p.MultiTenancy.ScopeColumn)
	}
	if p.Auth != nil {
		ui.Info("auth checks enabled (provider %s)", p.Auth.Provider)
	}
	if p.Testing != nil {
		ui.Info("test convention checks enabled (%s)", p.Testing.Framework)
	}
	ui.Info("conventions: %d", len(p.Conventions))

	if len(p.ExcludePaths) > 0 {
		table := ui.Table([]string{"Excluded Path", "Reason"})
		for _, ex := range p.ExcludePaths {
			table.Append([]string{ex.Path, ex.Reason})
		}
		if err := table.Render(); err != nil {
			ui.Warning("render exclusions table: %v", err)
		}
	}
	return nil
}
