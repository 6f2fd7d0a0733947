// Package policy maps an overall risk score to a relying-party action.
package policy

import (
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
)

// Action is what the relying party should do with the claimed identities.
type Action string

// Actions, from least to most restrictive.
const (
	Allow                Action = "ALLOW"
	Warn                 Action = "WARN"
	RequestStrongerProof Action = "REQUEST_STRONGER_PROOF"
)

// Risk bands.
const (
	StrongerProofThreshold = 0.70
	WarnThreshold          = 0.40
)

// Informational reason codes.
const (
	ReasonLowCoverageMulti = "low_public_coverage_multi_identity"
	ReasonConfusable       = "confusable_identifiers_present"
)

// Decision is the outcome of Decide.
type Decision struct {
	Action  Action        `json:"action"`
	Reasons []string      `json:"reasons"`
	Metrics graph.Metrics `json:"metrics"`
}

// Decide picks an action from overallRisk. Reasons describe the evidence
// and do not influence the action.
func Decide(m graph.Metrics, overallRisk float64) Decision {
	d := Decision{Action: Allow, Reasons: []string{}, Metrics: m}
	if m.NumIdentities > 1 && m.PublicCoverage < 0.5 {
		d.Reasons = append(d.Reasons, ReasonLowCoverageMulti)
	}
	if m.ConfusablePairs > 0 {
		d.Reasons = append(d.Reasons, ReasonConfusable)
	}

	switch {
	case overallRisk >= StrongerProofThreshold:
		d.Action = RequestStrongerProof
	case overallRisk >= WarnThreshold:
		d.Action = Warn
	}
	return d
}

// ParseAction resolves an action name, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case Allow, Warn, RequestStrongerProof:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}
