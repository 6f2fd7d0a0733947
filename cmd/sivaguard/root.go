package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sivaguard",
		Short: "Identity substitution and authenticity risk checks",
		Long: `sivaguard checks a set of claimed social identities for signs that one
identity is standing in for another, or that an identity's own public
evidence is thin or templated, and recommends an action.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringP("format", "f", formatJSON, "Output format: json or yaml")

	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
