// Package pipeline runs a short ordered list of named stages over an
// immutable state bundle.
//
// Each stage receives the bundle produced by the previous one and returns a
// new bundle. A stage name runs at most once per run; a repeat is traced as
// cached and leaves the bundle untouched. The runner records a trace event per stage, and stops at the first failure
// while still returning the last good bundle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxStages bounds how many stages a single run may execute.
const DefaultMaxStages = 6

// ErrStageFailed wraps the error returned by a failing stage.
var ErrStageFailed = errors.New("stage failed")

// Status is the outcome of one stage in a run.
type Status string

// Stage statuses recorded in the trace.
const (
	StatusOK       Status = "ok"
	StatusCached   Status = "cached"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// Event is one trace entry.
type Event struct {
	Stage  string `json:"stage"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Stage is a named transformation of the state bundle S.
// Interruptible stages are skipped when the context is already done; the
// rest always run so a partial bundle is still completed.
type Stage[S any] struct {
	Run           func(ctx context.Context, in S) (S, error)
	Name          string
	Interruptible bool
}

// Run is the outcome of Runner.Run.
type Run[S any] struct {
	State     S        `json:"state"`
	Err       error    `json:"-"`
	Trace     []Event  `json:"trace"`
	Errors    []string `json:"errors,omitempty"`
	StepsRun  int      `json:"steps_run"`
	MaxStages int      `json:"max_stages"`
}

// Option configures a Runner.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	maxStages int
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithMaxStages overrides DefaultMaxStages.
func WithMaxStages(n int) Option {
	return func(s *settings) { s.maxStages = n }
}

// Runner executes stages in the order they were added.
type Runner[S any] struct {
	logger    *slog.Logger
	stages    []Stage[S]
	maxStages int
}

// New creates a Runner for the given stages.
func New[S any](stages []Stage[S], opts ...Option) *Runner[S] {
	s := &settings{maxStages: DefaultMaxStages}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return &Runner[S]{
		logger:    s.logger,
		stages:    append([]Stage[S](nil), stages...),
		maxStages: s.maxStages,
	}
}

// Run executes the stages against in. It never panics on stage failure:
// the failing stage is recorded as "agent_tool_failed:<stage>:<error>"
// in Errors, Err is set, and State holds the last successful bundle.
func (r *Runner[S]) Run(ctx context.Context, in S) Run[S] {
	out := Run[S]{State: in, Trace: []Event{}, MaxStages: r.maxStages}
	done := make(map[string]bool, len(r.stages))

	for _, st := range r.stages {
		if out.StepsRun >= r.maxStages {
			r.logger.DebugContext(ctx, "stage budget exhausted", "max_stages", r.maxStages, "next", st.Name)
			break
		}

		if done[st.Name] {
			out.StepsRun++
			out.Trace = append(out.Trace, Event{Stage: st.Name, Status: StatusCached})
			continue
		}

		if st.Interruptible {
			if err := ctx.Err(); err != nil {
				r.logger.WarnContext(ctx, "pipeline canceled", "stage", st.Name, "reason", err)
				out.Trace = append(out.Trace, Event{Stage: st.Name, Status: StatusCanceled, Detail: err.Error()})
				out.fail(st.Name, err)
				return out
			}
		}

		r.logger.DebugContext(ctx, "executing stage", "stage", st.Name)
		next, err := st.Run(ctx, out.State)
		out.StepsRun++
		if err != nil {
			r.logger.ErrorContext(ctx, "stage failed", "stage", st.Name, "error", err)
			out.Trace = append(out.Trace, Event{Stage: st.Name, Status: StatusError, Detail: err.Error()})
			out.fail(st.Name, err)
			return out
		}

		done[st.Name] = true
		out.State = next
		out.Trace = append(out.Trace, Event{Stage: st.Name, Status: StatusOK})
	}
	return out
}

func (r *Run[S]) fail(stage string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("agent_tool_failed:%s:%v", stage, err))
	r.Err = fmt.Errorf("%w: %s: %w", ErrStageFailed, stage, err)
}
