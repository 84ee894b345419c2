package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/monomatch/pkg/portgraph"
)

var (
	// ErrSearchAborted is wrapped by the error Solve returns when the search
	// stopped before exhausting the space.
	ErrSearchAborted = errors.New("search aborted")

	// ErrNodeBudget is the abort cause when SolverConfig.MaxNodes was reached.
	ErrNodeBudget = errors.New("node budget exhausted")

	// ErrNoSolution is returned by Find when the problem is infeasible.
	ErrNoSolution = errors.New("no solution")
)

var tracer = otel.Tracer("github.com/gitrdm/monomatch/pkg/match")

// Outcome is the terminal state of a search.
type Outcome int

const (
	// NoSolution means the space was exhausted without a solution.
	NoSolution Outcome = iota
	// Solved means at least one solution was found and the search ended normally.
	Solved
	// Aborted means the search was stopped by cancellation, timeout or the
	// node budget. Solutions found before the abort are kept.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case NoSolution:
		return "no-solution"
	case Solved:
		return "solved"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what Solve reports.
type Result struct {
	Outcome   Outcome
	Solutions []Assignment
	Stats     SolverStats
}

// First returns the first solution, or nil.
func (r *Result) First() Assignment {
	if r == nil || len(r.Solutions) == 0 {
		return nil
	}
	return r.Solutions[0]
}

// SolutionSink receives a private copy of every solution. Returning false
// stops the search.
type SolutionSink func(Assignment) bool

// Option configures a Solver.
type Option func(*Solver)

// WithConfig sets the search configuration. A nil config is ignored.
func WithConfig(cfg *SolverConfig) Option {
	return func(s *Solver) {
		if cfg != nil {
			c := *cfg
			s.config = &c
		}
	}
}

// WithObserver installs a trace hook.
func WithObserver(o Observer) Option {
	return func(s *Solver) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger used for search lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMonitor collects statistics into m instead of a private monitor.
func WithMonitor(m *SolverMonitor) Option {
	return func(s *Solver) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithSolutionSink delivers each solution to sink as it is found.
func WithSolutionSink(sink SolutionSink) Option {
	return func(s *Solver) { s.sink = sink }
}

// Solver searches for monomorphisms from a pattern graph into a target graph.
//
// The search assigns pattern nodes one at a time, picking the unassigned node
// with the smallest domain (lowest index on ties) and trying its candidates in
// ascending order. Every tentative assignment is validated before the search
// goes deeper, and the configured propagation narrows the remaining domains.
// Domain snapshots are copy-on-write; the assignment is a single array that is
// restored when a branch is abandoned.
//
// A Solver is not safe for concurrent use. Solve may be called repeatedly.
type Solver struct {
	pattern    *portgraph.Graph
	target     *portgraph.Graph
	config     *SolverConfig
	checker    *Checker
	propagator *Propagator
	observer   Observer
	logger     *slog.Logger
	monitor    *SolverMonitor
	sink       SolutionSink

	// per-solve state
	nodes     int
	solutions []Assignment
	stopped   bool
	abortErr  error
}

// NewSolver creates a solver for the given pattern and target.
func NewSolver(pattern, target *portgraph.Graph, opts ...Option) *Solver {
	s := &Solver{
		pattern:  pattern,
		target:   target,
		config:   DefaultSolverConfig(),
		observer: NopObserver{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.monitor == nil {
		s.monitor = NewSolverMonitor()
	}
	s.checker = NewChecker(pattern, target)
	s.propagator = NewPropagator(pattern, target, s.observer)
	return s
}

// Config returns a copy of the solver's configuration.
func (s *Solver) Config() SolverConfig { return *s.config }

// Monitor returns the statistics collector.
func (s *Solver) Monitor() *SolverMonitor { return s.monitor }

// Solve runs the search.
//
// Infeasibility is not an error: it yields Outcome NoSolution with a nil
// error. Ill-formed input yields an *InvariantError. When the search is
// aborted the result is still returned, with Outcome Aborted, alongside an
// error wrapping ErrSearchAborted and the cause.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}

	ctx, span := tracer.Start(ctx, "match.Solve",
		trace.WithAttributes(
			attribute.Int("pattern.nodes", s.pattern.NumNodes()),
			attribute.Int("pattern.edges", s.pattern.NumEdges()),
			attribute.Int("target.nodes", s.target.NumNodes()),
			attribute.Int("target.edges", s.target.NumEdges()),
			attribute.String("propagation", s.config.Propagation.String()),
			attribute.String("domains", s.config.Domains.String()),
		),
	)
	defer span.End()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	s.nodes = 0
	s.solutions = nil
	s.stopped = false
	s.abortErr = nil

	s.monitor.StartSearch()

	s.logger.Debug("search started", "pattern_nodes", s.pattern.NumNodes(), "target_nodes", s.target.NumNodes(), "config", s.config.String())

	root, err := s.initialDomains()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid problem")
		return nil, err
	}

	if root.FirstEmpty() < 0 && s.config.RootAC3 {
		s.monitor.StartPropagation()
		before := s.propagator.Removals()
		narrowed, ok := s.propagator.AC3(root)
		s.monitor.EndPropagation(s.propagator.Removals() - before)
		if ok {
			root = narrowed
		} else {
			root = nil
		}
	}

	if root != nil && root.FirstEmpty() < 0 {
		a := NewAssignment(s.pattern.NumNodes())
		if s.config.Iterative {
			s.searchIterative(ctx, a, root)
		} else {
			s.search(ctx, a, root, 0)
		}
	} else {
		s.logger.Debug("empty initial domain, search skipped")
	}

	s.monitor.FinishSearch()
	res := &Result{Solutions: s.solutions, Stats: s.monitor.GetStats()}
	switch {
	case s.abortErr != nil:
		res.Outcome = Aborted
	case len(s.solutions) > 0:
		res.Outcome = Solved
	default:
		res.Outcome = NoSolution
	}

	span.SetAttributes(
		attribute.String("outcome", res.Outcome.String()),
		attribute.Int("nodes_explored", s.nodes),
		attribute.Int("solutions", len(s.solutions)),
	)
	s.logger.Debug("search finished", "outcome", res.Outcome.String(), "nodes", s.nodes, "solutions", len(s.solutions))

	if s.abortErr != nil {
		err := fmt.Errorf("%w: %w", ErrSearchAborted, s.abortErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search aborted")
		return res, err
	}
	return res, nil
}

func (s *Solver) initialDomains() (*Snapshot, error) {
	if s.config.Domains == DomainsStructural {
		return StructuralDomains(s.pattern, s.target)
	}
	return InitialDomains(s.pattern, s.target)
}

// halted reports whether the search must unwind, latching the abort cause
// the first time the context is found done.
func (s *Solver) halted(ctx context.Context) bool {
	if s.stopped || s.abortErr != nil {
		return true
	}
	select {
	case <-ctx.Done():
		s.abortErr = context.Cause(ctx)
		return true
	default:
		return false
	}
}

// mayTry checks the abort conditions that apply before a new tentative
// assignment.
func (s *Solver) mayTry(ctx context.Context) bool {
	if s.halted(ctx) {
		return false
	}
	if s.config.MaxNodes > 0 && s.nodes >= s.config.MaxNodes {
		s.abortErr = ErrNodeBudget
		return false
	}
	return true
}

// selectVariable returns the unassigned variable with the fewest candidates,
// or -1 when the assignment is complete.
func (s *Solver) selectVariable(a Assignment, snap *Snapshot) int {
	best, bestCount := -1, 0
	for v := range a {
		if a[v] != Unassigned {
			continue
		}
		c := snap.Domain(v).Count()
		if best < 0 || c < bestCount {
			best, bestCount = v, c
		}
	}
	return best
}

// try assigns x to v, validates, and propagates. It returns the child
// snapshot or false if the branch is dead. The caller restores a[v].
func (s *Solver) try(a Assignment, snap *Snapshot, v, x int) (*Snapshot, bool) {
	s.nodes++
	s.monitor.RecordNode()

	a[v] = x
	var ok bool
	if s.config.FullCheck {
		ok = s.checker.CheckAssignment(a)
	} else {
		ok = s.checker.CheckNode(a, v)
	}
	s.observer.AssignmentTried(a, v, x, ok)
	if !ok {
		s.monitor.RecordRejection()
		return nil, false
	}

	child, _ := snap.Narrow(v, snap.Domain(v).Singleton(x))
	if s.config.Propagation == PropagationNone {
		return child, true
	}

	s.monitor.StartPropagation()
	before := s.propagator.Removals()
	switch s.config.Propagation {
	case PropagationForward:
		child, ok = s.propagator.ForwardCheck(child, a, v)
	case PropagationAC3:
		child, ok = s.propagator.AC3(child)
	}
	s.monitor.EndPropagation(s.propagator.Removals() - before)
	if !ok {
		s.monitor.RecordPrune()
		return nil, false
	}
	return child, true
}

// complete handles a full assignment.
func (s *Solver) complete(a Assignment) {
	if !s.checker.CheckAssignment(a) {
		// Unreachable while CheckNode agrees with CheckAssignment.
		s.logger.Error("complete assignment failed validation, discarded", "assignment", []int(a))
		return
	}
	sol := a.Clone()
	s.solutions = append(s.solutions, sol)
	s.monitor.RecordSolution()
	s.observer.SolutionFound(sol)

	if s.sink != nil && !s.sink(sol.Clone()) {
		s.stopped = true
	}
	if s.config.StopAfterFirst {
		s.stopped = true
	}
	if s.config.MaxSolutions > 0 && len(s.solutions) >= s.config.MaxSolutions {
		s.stopped = true
	}
}

// search is the recursive depth-first search.
func (s *Solver) search(ctx context.Context, a Assignment, snap *Snapshot, depth int) {
	if s.halted(ctx) {
		return
	}
	v := s.selectVariable(a, snap)
	if v < 0 {
		s.complete(a)
		return
	}
	s.monitor.RecordDepth(depth + 1)

	snap.Domain(v).IterateValues(func(x int) bool {
		if !s.mayTry(ctx) {
			return false
		}
		if child, ok := s.try(a, snap, v, x); ok {
			s.search(ctx, a, child, depth+1)
		}
		a[v] = Unassigned
		return !s.halted(ctx)
	})
	a[v] = Unassigned
	if !s.halted(ctx) {
		s.monitor.RecordBacktrack()
	}
}

// searchFrame is one level of the explicit search stack.
type searchFrame struct {
	snap       *Snapshot
	varID      int
	values     []int
	valueIndex int
}

// searchIterative explores the same assignments in the same order as search,
// with the recursion replaced by a stack of frames.
func (s *Solver) searchIterative(ctx context.Context, a Assignment, root *Snapshot) {
	if s.halted(ctx) {
		return
	}
	v := s.selectVariable(a, root)
	if v < 0 {
		s.complete(a)
		return
	}
	stack := []*searchFrame{{snap: root, varID: v, values: root.Domain(v).Values()}}
	s.monitor.RecordDepth(1)

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		a[frame.varID] = Unassigned

		if frame.valueIndex >= len(frame.values) {
			stack = stack[:len(stack)-1]
			if s.halted(ctx) {
				break
			}
			s.monitor.RecordBacktrack()
			continue
		}
		if !s.mayTry(ctx) {
			break
		}

		x := frame.values[frame.valueIndex]
		frame.valueIndex++

		child, ok := s.try(a, frame.snap, frame.varID, x)
		if !ok {
			continue
		}
		if s.halted(ctx) {
			break
		}
		next := s.selectVariable(a, child)
		if next < 0 {
			s.complete(a)
			if s.halted(ctx) {
				break
			}
			continue
		}
		stack = append(stack, &searchFrame{snap: child, varID: next, values: child.Domain(next).Values()})
		s.monitor.RecordDepth(len(stack))
	}

	for _, frame := range stack {
		a[frame.varID] = Unassigned
	}
}

// Find returns the first solution under the default configuration adjusted
// by opts, or ErrNoSolution.
func Find(ctx context.Context, pattern, target *portgraph.Graph, opts ...Option) (Assignment, error) {
	res, err := NewSolver(pattern, target, opts...).Solve(ctx)
	if err != nil {
		return nil, err
	}
	if res.Outcome != Solved {
		return nil, ErrNoSolution
	}
	return res.First(), nil
}
