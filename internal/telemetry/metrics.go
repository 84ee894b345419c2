// Package telemetry exports search counters in the Prometheus format.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gitrdm/monomatch/pkg/match"
)

// Metrics holds the monomatch collectors on a private registry, so several
// instances (one per test, say) never collide.
type Metrics struct {
	registry *prometheus.Registry

	// AssignmentsTotal counts tentative assignments by verdict.
	AssignmentsTotal *prometheus.CounterVec
	// DomainPrunesTotal counts forward-checking domain reductions.
	DomainPrunesTotal prometheus.Counter
	// ArcRemovalsTotal counts values removed by AC-3.
	ArcRemovalsTotal prometheus.Counter
	// SolutionsTotal counts reported solutions.
	SolutionsTotal prometheus.Counter
	// SolvesTotal counts finished solves by engine and outcome.
	SolvesTotal *prometheus.CounterVec
	// SolveSeconds observes solve wall time by engine.
	SolveSeconds *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monomatch_assignments_total",
				Help: "Tentative assignments tried, by consistency verdict",
			},
			[]string{"result"},
		),
		DomainPrunesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monomatch_domain_prunes_total",
			Help: "Domains narrowed by forward checking",
		}),
		ArcRemovalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monomatch_arc_removals_total",
			Help: "Domain values removed by arc consistency",
		}),
		SolutionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monomatch_solutions_total",
			Help: "Complete assignments reported by the constraint solver",
		}),
		SolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monomatch_solves_total",
				Help: "Finished solves by engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
		SolveSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monomatch_solve_seconds",
				Help:    "Wall time of a solve",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"engine"},
		),
	}
	m.registry.MustRegister(
		m.AssignmentsTotal,
		m.DomainPrunesTotal,
		m.ArcRemovalsTotal,
		m.SolutionsTotal,
		m.SolvesTotal,
		m.SolveSeconds,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSolve records one finished solve.
func (m *Metrics) ObserveSolve(engine string, outcome match.Outcome, elapsed time.Duration) {
	m.SolvesTotal.WithLabelValues(engine, outcome.String()).Inc()
	m.SolveSeconds.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// WriteFile writes the current values in the text exposition format,
// replacing path atomically.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Observer returns a match.Observer feeding the search counters. It is safe
// to share between solvers running concurrently.
func (m *Metrics) Observer() match.Observer {
	return metricsObserver{
		ok:        m.AssignmentsTotal.WithLabelValues("ok"),
		rejected:  m.AssignmentsTotal.WithLabelValues("rejected"),
		prunes:    m.DomainPrunesTotal,
		arcs:      m.ArcRemovalsTotal,
		solutions: m.SolutionsTotal,
	}
}

type metricsObserver struct {
	ok, rejected prometheus.Counter
	prunes       prometheus.Counter
	arcs         prometheus.Counter
	solutions    prometheus.Counter
}

func (o metricsObserver) AssignmentTried(_ match.Assignment, _, _ int, ok bool) {
	if ok {
		o.ok.Inc()
	} else {
		o.rejected.Inc()
	}
}

func (o metricsObserver) DomainPruned(int, *match.Domain, *match.Domain) { o.prunes.Inc() }

func (o metricsObserver) ArcRemoved(int, int, int, int) { o.arcs.Inc() }

func (o metricsObserver) SolutionFound(match.Assignment) { o.solutions.Inc() }
