package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

var errClaimFormat = errors.New("claim must be written as platform=claimed")

// parseClaim parses "platform=claimed", e.g. "x=@jane_doe".
func parseClaim(arg string) (identity.Claim, error) {
	name, claimed, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(claimed) == "" {
		return identity.Claim{}, fmt.Errorf("%q: %w", arg, errClaimFormat)
	}
	p, err := identity.ParsePlatform(strings.TrimSpace(name))
	if err != nil {
		return identity.Claim{}, fmt.Errorf("%q: %w", arg, err)
	}
	return identity.Claim{Platform: p, Claimed: strings.TrimSpace(claimed)}, nil
}

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	var (
		offline bool
		noCache bool
		record  bool
	)

	cmd := &cobra.Command{
		Use:   "verify <platform=claimed>...",
		Short: "Collect public evidence for claimed identities and score them",
		Long: `Verify fetches the public profile of each claimed identity, builds the
evidence graph, scores substitution and authenticity risk and prints the
recommended action.

Platforms: ` + platformList(),
		Example: `  sivaguard verify x=@jane_doe github=https://github.com/janedoe
  sivaguard verify --offline x=@jane_doe instagram=@jane.doe`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := make([]identity.Claim, 0, len(args))
			for _, a := range args {
				c, err := parseClaim(a)
				if err != nil {
					return err
				}
				claims = append(claims, c)
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, appOptions{offline: offline, noCache: noCache, audit: record})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.guard().Verify(cmd.Context(), claims)
			if res == nil {
				return err
			}
			if werr := writeOutput(cmd.OutOrStdout(), res, format); werr != nil {
				return werr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Score the claims without fetching public pages")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the on-disk HTTP cache")
	cmd.Flags().BoolVar(&record, "audit", false, "Append the result to the audit log")
	return cmd
}

func platformList() string {
	ps := identity.Platforms()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
