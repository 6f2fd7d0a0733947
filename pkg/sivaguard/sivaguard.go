// Package sivaguard scores a set of claimed identities for substitution and
// authenticity risk and turns the score into an action.
//
// Basic usage:
//
//	client := httpcache.NewClient(httpcache.WithCache(cache))
//	g := sivaguard.New(sivaguard.WithHTTPClient(client))
//	res, err := g.Verify(ctx, []identity.Claim{
//	    {Platform: identity.X, Claimed: "@jane_doe"},
//	    {Platform: identity.GitHub, Claimed: "https://github.com/janedoe"},
//	})
//	fmt.Println(res.Decision.Action, res.Risk.OverallRisk)
//
// Evaluate skips collection and scores an already collected identity.Set.
package sivaguard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/sivaguard/pkg/audit"
	"github.com/codeGROOVE-dev/sivaguard/pkg/avatar"
	"github.com/codeGROOVE-dev/sivaguard/pkg/collect"
	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/nextsteps"
	"github.com/codeGROOVE-dev/sivaguard/pkg/pipeline"
	"github.com/codeGROOVE-dev/sivaguard/pkg/policy"
	"github.com/codeGROOVE-dev/sivaguard/pkg/reverselink"
	"github.com/codeGROOVE-dev/sivaguard/pkg/risk"
)

// Stage names, in execution order.
const (
	StageCollect   = "collect_evidence"
	StageGraph     = "build_graph"
	StageRisk      = "score_risk"
	StageDecide    = "decide_action"
	StageNextSteps = "next_steps"
)

// Collector turns claims into the per-identity evidence set.
type Collector interface {
	Collect(ctx context.Context, claims []identity.Claim) (*identity.Set, error)
}

// Auditor persists a summary of each evaluation.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Agentic reports how much of the stage budget a run used.
type Agentic struct {
	StepsRun  int `json:"steps_run"`
	MaxStages int `json:"max_stages"`
}

// Result is the complete output of one evaluation. Fields produced by
// stages that did not run are nil.
type Result struct {
	CreatedAt   time.Time        `json:"created_at"`
	PerIdentity *identity.Set    `json:"per_identity"`
	Graph       *graph.Graph     `json:"evidence_graph,omitempty"`
	Risk        *risk.Assessment `json:"risk,omitempty"`
	Decision    *policy.Decision `json:"agent,omitempty"`
	ID          string           `json:"id"`
	NextSteps   []nextsteps.Step `json:"next_steps"`
	Trace       []pipeline.Event `json:"agent_trace"`
	Errors      []string         `json:"errors,omitempty"`
	Agentic     Agentic          `json:"agentic"`
}

// Codes returns the risk reason codes, or nil when scoring did not run.
func (r *Result) Codes() []string {
	if r.Risk == nil {
		return nil
	}
	return r.Risk.Codes()
}

// Option configures a Guard.
type Option func(*Guard)

// WithHTTPClient wires the default collector, avatar hasher, and reverse
// linker to one shared client.
func WithHTTPClient(c *httpcache.Client) Option {
	return func(g *Guard) { g.client = c }
}

// WithCollector replaces the evidence collector.
func WithCollector(c Collector) Option {
	return func(g *Guard) { g.collector = c }
}

// WithAvatarHasher replaces the avatar hasher.
func WithAvatarHasher(h graph.AvatarHasher) Option {
	return func(g *Guard) { g.avatars = h }
}

// WithReverseLinker replaces the reverse-link collaborator.
func WithReverseLinker(r graph.ReverseLinker) Option {
	return func(g *Guard) { g.reverse = r }
}

// WithAuditor records every evaluation.
func WithAuditor(a Auditor) Option {
	return func(g *Guard) { g.auditor = a }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithMaxNextSteps caps the remediation list.
func WithMaxNextSteps(n int) Option {
	return func(g *Guard) { g.maxSteps = n }
}

// WithMaxStages caps how many stages one run may execute.
func WithMaxStages(n int) Option {
	return func(g *Guard) { g.maxStages = n }
}

// WithCollectionLimits tunes the default collaborators built from the
// HTTP client.
func WithCollectionLimits(concurrency, maxExternalLinks, maxReverseLinks int) Option {
	return func(g *Guard) {
		g.concurrency = concurrency
		g.maxExternal = maxExternalLinks
		g.maxReverse = maxReverseLinks
	}
}

// Guard runs evaluations. It is safe for concurrent use; evaluations share
// nothing except the configured collaborators.
type Guard struct {
	client      *httpcache.Client
	collector   Collector
	avatars     graph.AvatarHasher
	reverse     graph.ReverseLinker
	auditor     Auditor
	logger      *slog.Logger
	now         func() time.Time
	maxSteps    int
	maxStages   int
	concurrency int
	maxExternal int
	maxReverse  int
}

// New returns a Guard. Without WithHTTPClient or explicit collaborators it
// runs offline: claims become records with UI hints only, and avatar and
// reverse-link lookups are reported as unavailable on each node.
func New(opts ...Option) *Guard {
	g := &Guard{
		logger:      slog.Default(),
		now:         time.Now,
		maxSteps:    nextsteps.DefaultMaxSteps,
		maxStages:   pipeline.DefaultMaxStages,
		concurrency: collect.DefaultConcurrency,
		maxExternal: collect.DefaultMaxExternalLinks,
		maxReverse:  reverselink.DefaultMaxLinks,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}

	if g.client != nil {
		if g.collector == nil {
			g.collector = collect.New(g.client,
				collect.WithLogger(g.logger),
				collect.WithConcurrency(g.concurrency),
				collect.WithMaxExternalLinks(g.maxExternal))
		}
		if g.avatars == nil {
			g.avatars = avatar.New(g.client, g.logger)
		}
		if g.reverse == nil {
			g.reverse = reverselink.New(g.client,
				reverselink.WithLogger(g.logger),
				reverselink.WithMaxLinks(g.maxReverse))
		}
	}
	if g.collector == nil {
		g.collector = offlineCollector{}
	}
	return g
}

// Verify collects public evidence for claims and evaluates it. Invalid
// claims are rejected before any work starts. A non-nil Result is returned
// whenever the claims were valid, even if a stage failed.
func (g *Guard) Verify(ctx context.Context, claims []identity.Claim) (*Result, error) {
	for i, c := range claims {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("identity %d: %w", i, err)
		}
	}
	return g.run(ctx, bundle{claims: claims}, true)
}

// Evaluate scores an already collected evidence set. A nil set is treated
// as empty.
func (g *Guard) Evaluate(ctx context.Context, set *identity.Set) (*Result, error) {
	if set == nil {
		set = identity.NewSet()
	}
	return g.run(ctx, bundle{set: set}, false)
}

func (g *Guard) run(ctx context.Context, in bundle, withCollect bool) (*Result, error) {
	stages := g.stages()
	if !withCollect {
		stages = stages[1:]
	}
	r := pipeline.New(stages, pipeline.WithLogger(g.logger), pipeline.WithMaxStages(g.maxStages))
	run := r.Run(ctx, in)

	res := run.State.result()
	res.ID = uuid.NewString()
	res.CreatedAt = g.now().UTC()
	res.Trace = run.Trace
	res.Errors = append(res.Errors, run.Errors...)
	res.Agentic = Agentic{StepsRun: run.StepsRun, MaxStages: run.MaxStages}

	g.record(ctx, res)
	return res, run.Err
}

func (g *Guard) record(ctx context.Context, res *Result) {
	if g.auditor == nil || res.Decision == nil || res.Risk == nil {
		return
	}
	e := audit.Entry{
		ID:               res.ID,
		CreatedAt:        res.CreatedAt,
		Action:           string(res.Decision.Action),
		Reasons:          res.Codes(),
		Errors:           res.Errors,
		Metrics:          res.Decision.Metrics,
		SubstitutionRisk: res.Risk.SubstitutionRisk,
		AuthenticityRisk: res.Risk.AuthenticityRisk,
		OverallRisk:      res.Risk.OverallRisk,
		Confidence:       res.Risk.Confidence,
	}
	if err := g.auditor.Record(context.WithoutCancel(ctx), e); err != nil {
		g.logger.WarnContext(ctx, "audit record failed", "id", res.ID, "error", err)
	}
}

// offlineCollector builds records from claims without any network access.
type offlineCollector struct{}

func (offlineCollector) Collect(_ context.Context, claims []identity.Claim) (*identity.Set, error) {
	set := identity.NewSet()
	for _, c := range claims {
		set.Put(strings.TrimSpace(c.Claimed), identity.NewRecord(c))
	}
	return set, nil
}
