// Package nextsteps suggests follow-up actions for a relying party based on
// the policy action and the risk reasons behind it.
package nextsteps

import (
	"cmp"
	"slices"

	"github.com/codeGROOVE-dev/sivaguard/pkg/policy"
	"github.com/codeGROOVE-dev/sivaguard/pkg/risk"
)

// DefaultMaxSteps is the number of steps returned when no limit is configured.
const DefaultMaxSteps = 6

// Step is a suggested follow-up. Lower priority values sort first.
type Step struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	priority int
}

// Priority returns the step's sort key.
func (s Step) Priority() int { return s.priority }

var actionDefaults = map[policy.Action][]Step{
	policy.RequestStrongerProof: {{
		Code:     "stronger_proof_required",
		Title:    "Stronger proof required",
		Detail:   "Ask for crosslink evidence or in-band confirmation before proceeding.",
		priority: 0,
	}},
	policy.Warn: {{
		Code:     "proceed_with_caution",
		Title:    "Proceed with caution",
		Detail:   "If this is a high-impact decision, request a temporary crosslink or second identity as a lightweight check.",
		priority: 10,
	}},
}

var reasonSteps = map[string][]Step{
	risk.CodeFacebookNumericID: {
		{
			Code:     "request_in_band_confirmation",
			Title:    "Request in-band confirmation",
			Detail:   "Ask the person to send a one-time phrase from that Facebook account (DM/comment) to confirm control.",
			priority: 1,
		},
		{
			Code:     "temporary_bio_crosslink",
			Title:    "Request a temporary bio crosslink",
			Detail:   "Ask them to add a temporary crosslink in the bio (e.g., a URL/@handle you specify) and re-run verification.",
			priority: 2,
		},
	},
	risk.CodeNoBioLinkouts: {{
		Code:     "add_bio_linkout",
		Title:    "Ask them to add a bio linkout",
		Detail:   "Ask them to add a URL or @handle in the bio that links to another identity or a stable website, then re-run verification.",
		priority: 1,
	}},
	risk.CodeGenericBio: {{
		Code:     "ask_for_specific_bio_signal",
		Title:    "Request a specific, non-template bio signal",
		Detail:   "Ask them to add a short, unique phrase or reference (time-bounded) to the bio, then re-run verification.",
		priority: 2,
	}},
	risk.CodeRepeatedNameTokens: {{
		Code:     "request_secondary_identity",
		Title:    "Request a second identity for cross-checking",
		Detail:   "Ask for a second account (e.g., Instagram/GitHub/website) to improve public coherence checks.",
		priority: 2,
	}},
	risk.CodeMissingAvatar: {{
		Code:     "request_avatar_or_second_identity",
		Title:    "Request an additional corroboration signal",
		Detail:   "Because avatar evidence is missing, request a second identity or a temporary crosslink to strengthen verification.",
		priority: 5,
	}},
	risk.CodeLowPublicCoverage: {
		{
			Code:     "request_screenshot_or_public_view",
			Title:    "Request a public-view screenshot",
			Detail:   "Ask for a screenshot of the profile page (public-view) or a stable public link to improve evidence coverage.",
			priority: 1,
		},
		{
			Code:     "add_second_identity",
			Title:    "Request a second identity",
			Detail:   "Ask them to provide a second identity so coherence can be checked across identities.",
			priority: 2,
		},
	},
	risk.CodeConfusable: {
		{
			Code:     "require_stronger_proof_before_accept",
			Title:    "Require stronger proof before accepting",
			Detail:   "Do not rely on identifiers alone; require crosslinks or in-band confirmation before proceeding.",
			priority: 1,
		},
		{
			Code:     "temporary_mutual_crosslink",
			Title:    "Request mutual crosslinking",
			Detail:   "Ask them to reference Identity A from Identity B (bio link or @mention) and re-run verification.",
			priority: 2,
		},
	},
	risk.CodeNameMismatch: {{
		Code:     "resolve_name_discrepancy",
		Title:    "Resolve the name discrepancy",
		Detail:   "Confusable identifiers but mismatching names: request a temporary crosslink or in-band confirmation.",
		priority: 2,
	}},
	risk.CodeAvatarMismatch: {{
		Code:     "resolve_avatar_discrepancy",
		Title:    "Resolve the avatar discrepancy",
		Detail:   "Confusable identifiers but mismatching avatars: request a temporary crosslink or in-band confirmation.",
		priority: 1,
	}},
	risk.CodeLowTrustSingleIdent: {{
		Code:     "strengthen_single_identity_proof",
		Title:    "Strengthen proof for this identity",
		Detail:   "Because public signals are weak/generic, request an in-band confirmation or a temporary bio crosslink.",
		priority: 1,
	}},
	risk.CodeCrosslinkSupport: {{
		Code:     "crosslink_observed",
		Title:    "Crosslink evidence observed",
		Detail:   "Crosslinking evidence was observed. If this is high impact, still consider a lightweight in-band confirmation.",
		priority: 20,
	}},
}

// Generate returns at most maxSteps unique steps for action and reasonCodes,
// ordered by priority then code. A non-positive maxSteps yields no steps.
func Generate(action policy.Action, reasonCodes []string, maxSteps int) []Step {
	seen := make(map[string]bool)
	var steps []Step
	collect := func(candidates []Step) {
		for _, s := range candidates {
			if !seen[s.Code] {
				seen[s.Code] = true
				steps = append(steps, s)
			}
		}
	}

	collect(actionDefaults[action])
	for _, code := range reasonCodes {
		collect(reasonSteps[code])
	}

	slices.SortStableFunc(steps, func(a, b Step) int {
		return cmp.Or(cmp.Compare(a.priority, b.priority), cmp.Compare(a.Code, b.Code))
	})

	out := steps[:min(len(steps), max(maxSteps, 0))]
	if out == nil {
		return []Step{}
	}
	return out
}
