package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

var errEmptyInput = errors.New("no identities in input")

// readIdentitySet decodes a per-identity map from JSON or YAML. The map may
// also be wrapped in a "per_identity" key, as verify prints it.
func readIdentitySet(r io.Reader) (*identity.Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errEmptyInput
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "per_identity" {
				root = root.Content[i+1]
				break
			}
		}
	}

	set := identity.NewSet()
	if err := root.Decode(set); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	for k, rec := range set.All() {
		if _, err := identity.ParsePlatform(string(rec.Platform)); err != nil {
			return nil, fmt.Errorf("identity %q: %w", k, err)
		}
	}
	return set, nil
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "evaluate <file|->",
		Short: "Score an already-collected per-identity evidence map",
		Long: `Evaluate scores evidence that was collected elsewhere. The input is a JSON
or YAML mapping from identity key to record, optionally wrapped in a
"per_identity" key. Use "-" to read from standard input. No network
requests are made.`,
		Example: `  sivaguard evaluate per_identity.json
  sivaguard verify x=@jane_doe --offline | sivaguard evaluate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck // read-only
				in = f
			}
			set, err := readIdentitySet(in)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, appOptions{offline: true, audit: record})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.guard().Evaluate(cmd.Context(), set)
			if res == nil {
				return err
			}
			if werr := writeOutput(cmd.OutOrStdout(), res, format); werr != nil {
				return werr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&record, "audit", false, "Append the result to the audit log")
	return cmd
}
