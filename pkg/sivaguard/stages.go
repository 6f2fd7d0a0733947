package sivaguard

import (
	"context"

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/nextsteps"
	"github.com/codeGROOVE-dev/sivaguard/pkg/pipeline"
	"github.com/codeGROOVE-dev/sivaguard/pkg/policy"
	"github.com/codeGROOVE-dev/sivaguard/pkg/risk"
)

// bundle is the state passed between stages. Stages copy it and fill in
// their own field; nothing already set is modified.
type bundle struct {
	set      *identity.Set
	graph    *graph.Graph
	risk     *risk.Assessment
	decision *policy.Decision
	claims   []identity.Claim
	steps    []nextsteps.Step
}

func (b bundle) result() *Result {
	steps := b.steps
	if steps == nil {
		steps = []nextsteps.Step{}
	}
	return &Result{
		PerIdentity: b.set,
		Graph:       b.graph,
		Risk:        b.risk,
		Decision:    b.decision,
		NextSteps:   steps,
		Errors:      collectionErrors(b.set),
	}
}

// collectionErrors flattens per-identity errors as "<key>:<error>".
func collectionErrors(set *identity.Set) []string {
	var out []string
	for key, rec := range set.All() {
		for _, e := range rec.Errors {
			out = append(out, key+":"+e)
		}
	}
	return out
}

func (g *Guard) stages() []pipeline.Stage[bundle] {
	return []pipeline.Stage[bundle]{
		{Name: StageCollect, Run: g.collectStage, Interruptible: true},
		{Name: StageGraph, Run: g.graphStage},
		{Name: StageRisk, Run: riskStage},
		{Name: StageDecide, Run: decideStage},
		{Name: StageNextSteps, Run: g.nextStepsStage},
	}
}

func (g *Guard) collectStage(ctx context.Context, in bundle) (bundle, error) {
	set, err := g.collector.Collect(ctx, in.claims)
	if err != nil {
		return in, err
	}
	in.set = set
	return in, nil
}

func (g *Guard) graphStage(ctx context.Context, in bundle) (bundle, error) {
	opts := []graph.Option{graph.WithLogger(g.logger)}
	if g.avatars != nil {
		opts = append(opts, graph.WithAvatarHasher(g.avatars))
	}
	if g.reverse != nil {
		opts = append(opts, graph.WithReverseLinker(g.reverse))
	}
	in.graph = graph.Build(ctx, in.set, opts...)
	return in, nil
}

func riskStage(_ context.Context, in bundle) (bundle, error) {
	a := risk.Assess(in.graph.Metrics, in.set)
	in.risk = &a
	return in, nil
}

func decideStage(_ context.Context, in bundle) (bundle, error) {
	d := policy.Decide(in.graph.Metrics, in.risk.OverallRisk)
	in.decision = &d
	return in, nil
}

func (g *Guard) nextStepsStage(_ context.Context, in bundle) (bundle, error) {
	in.steps = nextsteps.Generate(in.decision.Action, in.risk.Codes(), g.maxSteps)
	return in, nil
}
