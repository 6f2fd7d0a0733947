package sivaguard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/codeGROOVE-dev/sivaguard/pkg/audit"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/pipeline"
	"github.com/codeGROOVE-dev/sivaguard/pkg/policy"
	"github.com/codeGROOVE-dev/sivaguard/pkg/risk"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func stepCodes(res *Result) []string {
	var out []string
	for _, s := range res.NextSteps {
		out = append(out, s.Code)
	}
	return out
}

func checkInvariants(t *testing.T, res *Result) {
	t.Helper()
	if res.Risk == nil || res.Decision == nil || res.Graph == nil {
		t.Fatalf("incomplete result: %+v", res)
	}
	r := res.Risk
	for name, v := range map[string]float64{
		"substitution": r.SubstitutionRisk, "authenticity": r.AuthenticityRisk,
		"overall": r.OverallRisk, "confidence": r.Confidence,
		"coverage": res.Graph.Metrics.PublicCoverage,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}
	if r.OverallRisk < r.SubstitutionRisk || r.OverallRisk < r.AuthenticityRisk {
		t.Errorf("overall %v below a component (%v, %v)", r.OverallRisk, r.SubstitutionRisk, r.AuthenticityRisk)
	}
	if res.Graph.Metrics.NumIdentities != res.PerIdentity.Len() {
		t.Errorf("NumIdentities = %d, set has %d", res.Graph.Metrics.NumIdentities, res.PerIdentity.Len())
	}
	codes := stepCodes(res)
	if len(codes) > 6 {
		t.Errorf("%d next steps, want <= 6", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate next step %q", c)
		}
		seen[c] = true
	}
}

func TestVerifyConfusableHandles(t *testing.T) {
	g := New()
	res, err := g.Verify(context.Background(), []identity.Claim{
		{Platform: identity.Instagram, Claimed: "john_doe"},
		{Platform: identity.Instagram, Claimed: "jhon_doe"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	checkInvariants(t, res)

	if len(res.Graph.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(res.Graph.Edges))
	}
	if hs := res.Graph.Edges[0].HandleSimilarity; hs == nil || *hs < 0.92 {
		t.Errorf("handle_similarity = %v, want >= 0.92", hs)
	}
	m := res.Graph.Metrics
	if m.ConfusablePairs != 1 || m.PublicCoverage != 0 {
		t.Errorf("metrics = %+v", m)
	}
	// 0.10+0.25+0.30 sums to 0.6499999999999999 in float64; keep the tolerance.
	if res.Risk.SubstitutionRisk < 0.65-1e-9 {
		t.Errorf("substitution_risk = %v, want >= 0.65", res.Risk.SubstitutionRisk)
	}
	if res.Decision.Action == policy.Allow {
		t.Errorf("action = %s, want escalation", res.Decision.Action)
	}
	if !slices.Contains(res.Decision.Reasons, policy.ReasonConfusable) {
		t.Errorf("decision reasons = %v", res.Decision.Reasons)
	}
	if !slices.Contains(stepCodes(res), "proceed_with_caution") {
		t.Errorf("next steps = %v, want proceed_with_caution", stepCodes(res))
	}

	wantTrace := []pipeline.Event{
		{Stage: StageCollect, Status: pipeline.StatusOK},
		{Stage: StageGraph, Status: pipeline.StatusOK},
		{Stage: StageRisk, Status: pipeline.StatusOK},
		{Stage: StageDecide, Status: pipeline.StatusOK},
		{Stage: StageNextSteps, Status: pipeline.StatusOK},
	}
	if diff := cmp.Diff(wantTrace, res.Trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if res.ID == "" || res.Agentic.StepsRun != 5 {
		t.Errorf("ID = %q, Agentic = %+v", res.ID, res.Agentic)
	}
}

func TestEvaluateFacebookNumericProfile(t *testing.T) {
	set := identity.NewSet()
	claimed := "https://facebook.com/profile.php?id=12345"
	set.Put(claimed, identity.Record{Platform: identity.Facebook, Claimed: claimed})

	res, err := New().Evaluate(context.Background(), set)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	checkInvariants(t, res)

	if diff := cmp.Diff(0.65, res.Risk.AuthenticityRisk, approx); diff != "" {
		t.Errorf("authenticity_risk mismatch (-want +got):\n%s", diff)
	}
	codes := res.Risk.Codes()
	for _, want := range []string{risk.CodeLowTrustSingleIdent, risk.CodeFacebookNumericID, risk.CodeGenericBio, risk.CodeNoBioLinkouts} {
		if !slices.Contains(codes, want) {
			t.Errorf("reason codes %v missing %s", codes, want)
		}
	}
	if res.Decision.Action != policy.Warn {
		t.Errorf("action = %s, want WARN", res.Decision.Action)
	}
	if len(res.Trace) != 4 || res.Trace[0].Stage != StageGraph {
		t.Errorf("trace = %+v, want collection skipped", res.Trace)
	}
}

func TestEvaluateRepeatedName(t *testing.T) {
	set := identity.NewSet()
	set.Put("mike", identity.Record{
		Platform: identity.Instagram,
		Claimed:  "mike",
		UI:       &identity.UIHint{DisplayName: "Mike Mike"},
	})

	res, err := New().Evaluate(context.Background(), set)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	i := slices.IndexFunc(res.Risk.Reasons, func(r risk.Reason) bool { return r.Code == risk.CodeRepeatedNameTokens })
	if i < 0 {
		t.Fatalf("reasons = %+v, want repeated_name_tokens", res.Risk.Reasons)
	}
	if got := res.Risk.Reasons[i].Detail; got != "repetition_score=1.00" {
		t.Errorf("detail = %q, want repetition_score=1.00", got)
	}
}

func TestEvaluateCleansDisplayNames(t *testing.T) {
	set := identity.NewSet()
	set.Put("jane", identity.Record{
		Platform: identity.Facebook,
		Claimed:  "jane",
		UI:       &identity.UIHint{DisplayName: "Jane Doe | Facebook"},
	})

	res, err := New().Evaluate(context.Background(), set)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := res.Graph.Nodes[0].DisplayNameClean; got != "Jane Doe" {
		t.Errorf("display_name_clean = %q, want %q", got, "Jane Doe")
	}
}

func TestEvaluateEmptySet(t *testing.T) {
	res, err := New().Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	checkInvariants(t, res)
	if res.Graph.Metrics.NumIdentities != 0 || res.Graph.Metrics.PublicCoverage != 0 {
		t.Errorf("metrics = %+v", res.Graph.Metrics)
	}
	if res.Decision.Action != policy.Allow {
		t.Errorf("action = %s, want ALLOW", res.Decision.Action)
	}
	if res.NextSteps == nil || len(res.NextSteps) != 0 {
		t.Errorf("next steps = %#v, want empty non-nil", res.NextSteps)
	}
}

func TestVerifyRejectsInvalidClaims(t *testing.T) {
	tests := []struct {
		name  string
		claim identity.Claim
		want  error
	}{
		{"empty", identity.Claim{Platform: identity.X, Claimed: " "}, identity.ErrEmptyClaim},
		{"platform", identity.Claim{Platform: "myspace", Claimed: "tom"}, identity.ErrUnknownPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Verify(context.Background(), []identity.Claim{tt.claim})
			if !errors.Is(err, tt.want) || res != nil {
				t.Errorf("Verify() = %v, %v; want nil, %v", res, err, tt.want)
			}
		})
	}
}

func TestVerifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New().Verify(ctx, []identity.Claim{{Platform: identity.X, Claimed: "jane"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Verify() error = %v, want context.Canceled", err)
	}
	if res == nil || res.Risk != nil {
		t.Fatalf("result = %+v, want partial result without scoring", res)
	}
	if diff := cmp.Diff([]string{"agent_tool_failed:collect_evidence:context canceled"}, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

type memAuditor struct{ entries []audit.Entry }

func (m *memAuditor) Record(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestAuditorReceivesEvaluation(t *testing.T) {
	a := &memAuditor{}
	res, err := New(WithAuditor(a)).Verify(context.Background(), []identity.Claim{
		{Platform: identity.GitHub, Claimed: "octocat"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(a.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(a.entries))
	}
	e := a.entries[0]
	if e.ID != res.ID || e.Action != string(res.Decision.Action) || e.OverallRisk != res.Risk.OverallRisk {
		t.Errorf("entry = %+v does not match result", e)
	}
}

func TestVerifyWithHTTPCollaborators(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/jane", func(w http.ResponseWriter, _ *http.Request) {
		//nolint:errcheck // test server
		w.Write([]byte(`<html><head><title>Jane</title>
<meta property="og:title" content="Jane Doe">
<meta property="og:description" content="Find me at ` + srv.URL + `/bob">
<meta property="og:image" content="/jane.png">
</head></html>`))
	})
	mux.HandleFunc("/bob", func(w http.ResponseWriter, _ *http.Request) {
		//nolint:errcheck // test server
		w.Write([]byte(`<html><head><title>Bob</title>
<meta property="og:title" content="Bob Smith">
<meta property="og:description" content="Backend engineer">
<meta property="og:image" content="/bob.png">
</head></html>`))
	})
	mux.HandleFunc("/jane.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("jane-bytes")) //nolint:errcheck // test server
	})
	mux.HandleFunc("/bob.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("bob-bytes")) //nolint:errcheck // test server
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := httpcache.NewClient(httpcache.WithPrivateHosts(true), httpcache.WithMinDelay(0))
	res, err := New(WithHTTPClient(client)).Verify(context.Background(), []identity.Claim{
		{Platform: identity.Other, Claimed: srv.URL + "/jane"},
		{Platform: identity.Other, Claimed: srv.URL + "/bob"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	checkInvariants(t, res)

	m := res.Graph.Metrics
	if m.PublicCoverage != 1 || m.CrosslinkHits != 1 || m.ConfusablePairs != 0 {
		t.Errorf("metrics = %+v", m)
	}
	jane := res.Graph.Nodes[0]
	if jane.AvatarSHA256 == "" || jane.AvatarSHA256 == res.Graph.Nodes[1].AvatarSHA256 {
		t.Errorf("avatar hashes = %q / %q", jane.AvatarSHA256, res.Graph.Nodes[1].AvatarSHA256)
	}
	if jane.ReverseLinkURL != srv.URL+"/bob" || jane.ReverseLinkError != "" || jane.ReverseFetchCached == nil {
		t.Errorf("reverse link fields = %q %q %v", jane.ReverseLinkURL, jane.ReverseLinkError, jane.ReverseFetchCached)
	}
	if res.Decision.Action != policy.Allow {
		t.Errorf("action = %s, want ALLOW", res.Decision.Action)
	}
	if diff := cmp.Diff(0.9, res.Risk.Confidence, approx); diff != "" {
		t.Errorf("confidence mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"crosslink_observed"}, stepCodes(res)); diff != "" {
		t.Errorf("next steps mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestResultJSON(t *testing.T) {
	res, err := New().Verify(context.Background(), []identity.Claim{
		{Platform: identity.X, Claimed: "@jane"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{`"per_identity":{"@jane":`, `"evidence_graph":`, `"risk":`, `"agent":{"action":`, `"next_steps":`, `"agent_trace":`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON missing %s: %s", key, data)
		}
	}
}
