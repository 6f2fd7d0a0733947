// Package risk turns evidence-graph metrics and per-identity evidence into
// substitution, authenticity, and overall risk scores.
package risk

import (
	"fmt"
	"slices"

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

// Set-level reason codes.
const (
	CodeLowPublicCoverage   = "low_public_coverage"
	CodeConfusable          = "confusable_identifiers"
	CodeNameMismatch        = "name_mismatch_under_confusable"
	CodeAvatarMismatch      = "avatar_mismatch_under_confusable"
	CodeCrosslinkSupport    = "crosslink_support"
	CodeLowTrustSingleIdent = "low_trust_single_identity_signals"
)

const (
	authenticityReasonThreshold = 0.25
	maxWinnerReasons            = 3
	thinEvidenceRisk            = 0.70
	thinEvidenceConfidenceCap   = 0.75
)

// Reason explains one contribution to a score.
type Reason struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Assessment is the combined risk result for one evaluation.
type Assessment struct {
	Reasons          []Reason `json:"reasons"`
	SubstitutionRisk float64  `json:"substitution_risk"`
	AuthenticityRisk float64  `json:"authenticity_risk"`
	OverallRisk      float64  `json:"overall_risk"`
	Confidence       float64  `json:"confidence"`
}

// Codes returns the reason codes in order.
func (a *Assessment) Codes() []string {
	codes := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		codes[i] = r.Code
	}
	return codes
}

// Assess scores an evaluation. Reasons are appended in a fixed order so the
// output is deterministic for a given input.
func Assess(m graph.Metrics, set *identity.Set) Assessment {
	a := Assessment{Reasons: []Reason{}}
	add := func(code, format string, args ...any) {
		a.Reasons = append(a.Reasons, Reason{Code: code, Detail: fmt.Sprintf(format, args...)})
	}

	sub := 0.10
	if m.NumIdentities > 1 && m.PublicCoverage < 0.5 {
		sub += 0.25
		add(CodeLowPublicCoverage, "public_coverage=%.2f", m.PublicCoverage)
	}
	if m.ConfusablePairs > 0 {
		sub += 0.30
		add(CodeConfusable, "confusable_pairs=%d", m.ConfusablePairs)
	}
	if m.NameMismatchPairs > 0 {
		sub += 0.20
		add(CodeNameMismatch, "name_mismatch_pairs=%d", m.NameMismatchPairs)
	}
	if m.AvatarMismatchPairs > 0 {
		sub += 0.20
		add(CodeAvatarMismatch, "avatar_mismatch_pairs=%d", m.AvatarMismatchPairs)
	}
	if m.CrosslinkHits > 0 {
		sub -= 0.10
		add(CodeCrosslinkSupport, "crosslink_hits=%d", m.CrosslinkHits)
	}
	a.SubstitutionRisk = clamp(sub)

	// The strongest single identity wins; ties keep the earliest.
	var winner []Reason
	errored := 0
	for _, rec := range set.All() {
		s := ScoreIdentity(rec)
		if s.AuthenticityRisk > a.AuthenticityRisk {
			a.AuthenticityRisk = s.AuthenticityRisk
			winner = s.Reasons
		}
		if len(rec.Errors) > 0 {
			errored++
		}
	}
	a.AuthenticityRisk = clamp(a.AuthenticityRisk)
	if a.AuthenticityRisk > authenticityReasonThreshold {
		add(CodeLowTrustSingleIdent, "authenticity_risk=%.2f", a.AuthenticityRisk)
		a.Reasons = append(a.Reasons, winner[:min(len(winner), maxWinnerReasons)]...)
	}

	a.OverallRisk = max(a.SubstitutionRisk, a.AuthenticityRisk)

	conf := 0.40 + 0.50*m.PublicCoverage - min(0.20, 0.05*float64(errored))
	a.Confidence = clamp(conf)
	if a.AuthenticityRisk >= thinEvidenceRisk {
		codes := a.Codes()
		thin := slices.Contains(codes, CodeGenericBio) ||
			slices.Contains(codes, CodeNoBioLinkouts) ||
			slices.Contains(codes, CodeLowTrustSingleIdent)
		if thin {
			a.Confidence = min(a.Confidence, thinEvidenceConfidenceCap)
		}
	}
	return a
}

func clamp(x float64) float64 {
	return max(0, min(1, x))
}
