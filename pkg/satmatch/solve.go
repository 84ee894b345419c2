package satmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-air/gini"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/monomatch/pkg/match"
	"github.com/gitrdm/monomatch/pkg/portgraph"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
	unknown       = 0
)

// pollInterval is how often a running solve checks for cancellation.
const pollInterval = 5 * time.Millisecond

// ErrInvalidModel means the SAT model decoded to an assignment the checker
// rejects. It indicates a bug in the encoding.
var ErrInvalidModel = errors.New("sat model is not a valid assignment")

var tracer = otel.Tracer("github.com/gitrdm/monomatch/pkg/satmatch")

// Result is the outcome of a SAT solve.
type Result struct {
	Outcome   match.Outcome
	Solutions []match.Assignment
	Vars      int
	Clauses   int
}

// First returns the first solution, or nil.
func (r *Result) First() match.Assignment {
	if r == nil || len(r.Solutions) == 0 {
		return nil
	}
	return r.Solutions[0]
}

// Option configures Solve.
type Option func(*options)

type options struct {
	domains      match.DomainMode
	maxSolutions int
	logger       *slog.Logger
}

// WithDomains selects the candidate filter used to allocate variables.
func WithDomains(mode match.DomainMode) Option {
	return func(o *options) { o.domains = mode }
}

// WithMaxSolutions enumerates up to n distinct solutions by adding a
// blocking clause after each model. n <= 0 enumerates all of them.
func WithMaxSolutions(n int) Option {
	return func(o *options) { o.maxSolutions = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Solve encodes the problem and runs gini on it. Solutions come in the
// order gini finds them, not in search order. Cancellation of ctx stops
// the solver and yields Outcome Aborted with an error wrapping
// match.ErrSearchAborted.
func Solve(ctx context.Context, pattern, target *portgraph.Graph, opts ...Option) (*Result, error) {
	o := options{maxSolutions: 1, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := tracer.Start(ctx, "satmatch.Solve",
		trace.WithAttributes(
			attribute.Int("pattern.nodes", pattern.NumNodes()),
			attribute.Int("target.nodes", target.NumNodes()),
		),
	)
	defer span.End()

	var domains *match.Snapshot
	var err error
	if o.domains == match.DomainsStructural {
		domains, err = match.StructuralDomains(pattern, target)
	} else {
		domains, err = match.InitialDomains(pattern, target)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid problem")
		return nil, err
	}

	enc := NewEncoding(pattern, target, domains)
	res := &Result{Outcome: match.NoSolution, Vars: enc.NumVars()}
	if enc.HasEmptyDomain() {
		o.logger.Debug("empty candidate set, formula not built")
		return res, nil
	}
	if pattern.NumNodes() == 0 {
		res.Outcome = match.Solved
		res.Solutions = []match.Assignment{match.NewAssignment(0)}
		return res, nil
	}

	g := gini.New()
	enc.AddClauses(g)
	res.Clauses = enc.NumClauses()
	o.logger.Debug("formula built", "vars", res.Vars, "clauses", res.Clauses)
	span.SetAttributes(attribute.Int("sat.vars", res.Vars), attribute.Int("sat.clauses", res.Clauses))

	checker := match.NewChecker(pattern, target)
	for o.maxSolutions <= 0 || len(res.Solutions) < o.maxSolutions {
		outcome, err := solve(ctx, g)
		if err != nil {
			res.Outcome = match.Aborted
			err = fmt.Errorf("%w: %w", match.ErrSearchAborted, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "search aborted")
			return res, err
		}
		if outcome != satisfiable {
			break
		}

		a := enc.Decode(g)
		if !a.IsComplete() || !checker.CheckAssignment(a) {
			err := fmt.Errorf("%w: %v", ErrInvalidModel, []int(a))
			span.RecordError(err)
			return nil, err
		}
		res.Solutions = append(res.Solutions, a)
		res.Outcome = match.Solved
		enc.Block(g, a)
	}

	res.Clauses = enc.NumClauses()
	span.SetAttributes(attribute.String("outcome", res.Outcome.String()), attribute.Int("solutions", len(res.Solutions)))
	o.logger.Debug("sat solve finished", "outcome", res.Outcome.String(), "solutions", len(res.Solutions))
	return res, nil
}

// solve runs one gini solve in the background, polling for cancellation.
func solve(ctx context.Context, g *gini.Gini) (int, error) {
	if err := ctx.Err(); err != nil {
		return unknown, context.Cause(ctx)
	}
	gs := g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if res, done := gs.Test(); done {
			return res, nil
		}
		select {
		case <-ctx.Done():
			gs.Stop()
			return unknown, context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

// Satisfiable reports whether pattern embeds in target.
func Satisfiable(ctx context.Context, pattern, target *portgraph.Graph) (bool, error) {
	res, err := Solve(ctx, pattern, target)
	if err != nil {
		return false, err
	}
	return res.Outcome == match.Solved, nil
}
