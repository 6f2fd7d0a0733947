package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultAuditLimit = 20

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent evaluations from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("invalid limit %d: must be positive", limit)
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, appOptions{offline: true, audit: true})
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.audit.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.logger.Debug("audit entries", "path", a.audit.Path(), "count", len(entries))
			return writeOutput(cmd.OutOrStdout(), entries, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultAuditLimit, "Maximum number of entries to show")
	return cmd
}
