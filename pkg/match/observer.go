package match

import (
	"context"
	"log/slog"
)

// Observer receives search events as they happen. It is a pure side
// channel: implementations must not retain or modify the slices they are
// given, and their return values never influence the search.
//
// Events:
//   - AssignmentTried: node was tentatively set to value; ok is the
//     consistency check verdict.
//   - DomainPruned: forward checking shrank node's domain from before to after.
//   - ArcRemoved: AC-3 removed value from tail's domain because no value of
//     head supports pattern edge edge.
//   - SolutionFound: a complete, validated assignment.
type Observer interface {
	AssignmentTried(a Assignment, node, value int, ok bool)
	DomainPruned(node int, before, after *Domain)
	ArcRemoved(tail, head, edge, value int)
	SolutionFound(a Assignment)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) AssignmentTried(Assignment, int, int, bool) {}
func (NopObserver) DomainPruned(int, *Domain, *Domain)        {}
func (NopObserver) ArcRemoved(int, int, int, int)             {}
func (NopObserver) SolutionFound(Assignment)                  {}

// LogObserver writes every event to a structured logger at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) enabled() bool {
	return o.Logger != nil && o.Logger.Enabled(context.Background(), slog.LevelDebug)
}

func (o LogObserver) AssignmentTried(a Assignment, node, value int, ok bool) {
	if o.enabled() {
		o.Logger.Debug("assignment tried", "node", node, "value", value, "ok", ok, "assignment", []int(a))
	}
}

func (o LogObserver) DomainPruned(node int, before, after *Domain) {
	if o.enabled() {
		o.Logger.Debug("domain pruned", "node", node, "before", before.String(), "after", after.String())
	}
}

func (o LogObserver) ArcRemoved(tail, head, edge, value int) {
	if o.enabled() {
		o.Logger.Debug("arc removal", "tail", tail, "head", head, "edge", edge, "value", value)
	}
}

func (o LogObserver) SolutionFound(a Assignment) {
	if o.Logger != nil {
		o.Logger.Info("solution found", "assignment", []int(a))
	}
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (os Observers) AssignmentTried(a Assignment, node, value int, ok bool) {
	for _, o := range os {
		o.AssignmentTried(a, node, value, ok)
	}
}

func (os Observers) DomainPruned(node int, before, after *Domain) {
	for _, o := range os {
		o.DomainPruned(node, before, after)
	}
}

func (os Observers) ArcRemoved(tail, head, edge, value int) {
	for _, o := range os {
		o.ArcRemoved(tail, head, edge, value)
	}
}

func (os Observers) SolutionFound(a Assignment) {
	for _, o := range os {
		o.SolutionFound(a)
	}
}
