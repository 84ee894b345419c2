package match

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/monomatch/pkg/portgraph"
)

// allConfigs returns every combination of the search knobs that must not
// change the solution set.
func allConfigs() map[string]*SolverConfig {
	out := make(map[string]*SolverConfig)
	for _, dom := range []DomainMode{DomainsLabel, DomainsStructural} {
		for _, root := range []bool{false, true} {
			for _, prop := range []Propagation{PropagationNone, PropagationForward, PropagationAC3} {
				for _, iter := range []bool{false, true} {
					for _, full := range []bool{false, true} {
						name := fmt.Sprintf("%s/root=%v/%s/iter=%v/full=%v", dom, root, prop, iter, full)
						out[name] = &SolverConfig{
							Domains:     dom,
							RootAC3:     root,
							Propagation: prop,
							Iterative:   iter,
							FullCheck:   full,
						}
					}
				}
			}
		}
	}
	return out
}

func TestSolve_EndToEnd(t *testing.T) {
	pattern, target := pairProblem()

	res, err := NewSolver(pattern, target).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Solved, res.Outcome)
	assert.Equal(t, []Assignment{{0, 1}}, res.Solutions)
	assert.Equal(t, Assignment{0, 1}, res.First())
}

func TestSolve_InfeasibleByLabel(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}, {2}}, []portgraph.Edge{edge(0, "a", 1, "b")})
	pattern := portgraph.MustBuild([][]int{{1}, {9}}, nil)

	for name, cfg := range allConfigs() {
		t.Run(name, func(t *testing.T) {
			obs := &recordingObserver{}
			res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(obs)).Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, NoSolution, res.Outcome)
			assert.Empty(t, res.Solutions)
			assert.Zero(t, res.Stats.NodesExplored)
			assert.Zero(t, obs.tries())
		})
	}
}

func TestSolve_InfeasibleByStructure(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}, {2}}, []portgraph.Edge{edge(0, "a", 1, "c")})
	pattern := portgraph.MustBuild([][]int{{1}, {2}}, []portgraph.Edge{edge(0, "a", 1, "b")})

	cfg := &SolverConfig{Propagation: PropagationNone}
	obs := &recordingObserver{}
	res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(obs)).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoSolution, res.Outcome)
	assert.Equal(t, []string{"try 0=0 true", "try 1=1 false"}, obs.events)
	assert.Equal(t, 2, res.Stats.NodesExplored)
	assert.Equal(t, 1, res.Stats.Rejected)

	// Root AC-3 proves it without search.
	cfg.RootAC3 = true
	res, err = NewSolver(pattern, target, WithConfig(cfg)).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoSolution, res.Outcome)
	assert.Zero(t, res.Stats.NodesExplored)
}

func TestSolve_AgreesWithBruteForce(t *testing.T) {
	configs := allConfigs()
	for seed := uint64(0); seed < 40; seed++ {
		pattern, target := randomProblem(seed, seed%4 != 0)
		want := bruteForce(pattern, target)

		for name, cfg := range configs {
			cfg := *cfg
			cfg.StopAfterFirst = false

			res, err := NewSolver(pattern, target, WithConfig(&cfg)).Solve(context.Background())
			require.NoError(t, err, "seed %d %s", seed, name)

			if diff := cmp.Diff(want, sortSolutions(res.Solutions)); diff != "" {
				t.Fatalf("seed %d %s: solutions mismatch (-brute +solver):\n%s", seed, name, diff)
			}
			if len(want) == 0 {
				assert.Equal(t, NoSolution, res.Outcome)
			} else {
				assert.Equal(t, Solved, res.Outcome)
			}

			checker := NewChecker(pattern, target)
			for _, sol := range res.Solutions {
				assert.True(t, checker.CheckAssignment(sol))
				assert.True(t, sol.IsComplete())
				for n, v := range sol {
					assert.True(t, target.HasLabel(v, pattern.Labels(n)[0]), "label preserved")
				}
			}
		}
	}
}

func TestSolve_RecursiveAndIterativeExploreSameSequence(t *testing.T) {
	for seed := uint64(0); seed < 30; seed++ {
		pattern, target := randomProblem(seed, seed%2 == 0)
		for _, prop := range []Propagation{PropagationNone, PropagationForward, PropagationAC3} {
			for _, first := range []bool{true, false} {
				cfg := &SolverConfig{Propagation: prop, StopAfterFirst: first, RootAC3: true}

				rec := &recordingObserver{}
				r1, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(rec)).Solve(context.Background())
				require.NoError(t, err)

				cfg.Iterative = true
				it := &recordingObserver{}
				r2, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(it)).Solve(context.Background())
				require.NoError(t, err)

				if diff := cmp.Diff(rec.events, it.events); diff != "" {
					t.Fatalf("seed %d %s first=%v: traces differ (-recursive +iterative):\n%s", seed, prop, first, diff)
				}
				assert.Equal(t, r1.Solutions, r2.Solutions)
				assert.Equal(t, r1.Stats.NodesExplored, r2.Stats.NodesExplored)
				assert.Equal(t, r1.Stats.Backtracks, r2.Stats.Backtracks)
				assert.Equal(t, r1.Stats.MaxDepth, r2.Stats.MaxDepth)
			}
		}
	}
}

func TestSolve_Deterministic(t *testing.T) {
	pattern, target := randomProblem(7, true)
	cfg := &SolverConfig{Propagation: PropagationAC3, RootAC3: true}

	var traces [][]string
	var results []*Result
	for i := 0; i < 3; i++ {
		obs := &recordingObserver{}
		res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(obs)).Solve(context.Background())
		require.NoError(t, err)
		traces = append(traces, obs.events)
		results = append(results, res)
	}
	assert.Equal(t, traces[0], traces[1])
	assert.Equal(t, traces[0], traces[2])
	assert.Equal(t, results[0].Solutions, results[2].Solutions)
}

func TestSolve_MRVAndValueOrder(t *testing.T) {
	// Node 1 has a single candidate, so it is assigned first even though
	// node 0 has the lower index. Node 0's candidates are tried ascending.
	target := portgraph.MustBuild([][]int{{1}, {1}, {2}}, nil)
	pattern := portgraph.MustBuild([][]int{{1}, {2}}, nil)

	obs := &recordingObserver{}
	cfg := &SolverConfig{StopAfterFirst: false}
	res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(obs)).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"try 1=2 true",
		"try 0=0 true",
		"solution [0 2]",
		"try 0=1 true",
		"solution [1 2]",
	}, obs.events)
	assert.Equal(t, []Assignment{{0, 2}, {1, 2}}, res.Solutions)
}

func TestSolve_StopPolicies(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}, {1}, {1}}, nil)
	pattern := portgraph.MustBuild([][]int{{1}}, nil)

	tests := []struct {
		name string
		cfg  SolverConfig
		sink func(*int) SolutionSink
		want []Assignment
	}{
		{
			name: "first",
			cfg:  SolverConfig{StopAfterFirst: true},
			want: []Assignment{{0}},
		},
		{
			name: "all",
			cfg:  SolverConfig{},
			want: []Assignment{{0}, {1}, {2}},
		},
		{
			name: "max solutions",
			cfg:  SolverConfig{MaxSolutions: 2},
			want: []Assignment{{0}, {1}},
		},
		{
			name: "sink stops",
			cfg:  SolverConfig{},
			sink: func(calls *int) SolutionSink {
				return func(Assignment) bool {
					*calls++
					return *calls < 2
				}
			},
			want: []Assignment{{0}, {1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithConfig(&tt.cfg)}
			calls := 0
			if tt.sink != nil {
				opts = append(opts, WithSolutionSink(tt.sink(&calls)))
			}
			res, err := NewSolver(pattern, target, opts...).Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Solved, res.Outcome)
			assert.Equal(t, tt.want, res.Solutions)
			assert.Equal(t, len(tt.want), res.Stats.SolutionsFound)
		})
	}
}

func TestSolve_SinkGetsPrivateCopy(t *testing.T) {
	pattern, target := chainProblem()
	res, err := NewSolver(pattern, target, WithSolutionSink(func(a Assignment) bool {
		a[0] = 42
		return true
	})).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Assignment{0, 1}, res.First())
}

func TestSolve_NodeBudget(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}, {1}, {1}}, nil)
	pattern := portgraph.MustBuild([][]int{{1}, {1}}, nil)

	for _, iter := range []bool{false, true} {
		t.Run(fmt.Sprintf("iterative=%v", iter), func(t *testing.T) {
			cfg := &SolverConfig{MaxNodes: 3, Iterative: iter}
			res, err := NewSolver(pattern, target, WithConfig(cfg)).Solve(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSearchAborted)
			assert.ErrorIs(t, err, ErrNodeBudget)
			require.NotNil(t, res)
			assert.Equal(t, Aborted, res.Outcome)
			assert.Equal(t, 3, res.Stats.NodesExplored)
			// 0=0, 1=0 rejected, 1=1 solution; the budget stops the rest.
			assert.Equal(t, []Assignment{{0, 1}}, res.Solutions)
		})
	}
}

func TestSolve_ContextCanceled(t *testing.T) {
	pattern, target := chainProblem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, iter := range []bool{false, true} {
		res, err := NewSolver(pattern, target, WithConfig(&SolverConfig{Iterative: iter})).Solve(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSearchAborted)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Aborted, res.Outcome)
		assert.Zero(t, res.Stats.NodesExplored)
	}
}

type slowObserver struct {
	NopObserver
	delay time.Duration
}

func (o slowObserver) AssignmentTried(Assignment, int, int, bool) { time.Sleep(o.delay) }

func TestSolve_Timeout(t *testing.T) {
	pattern, target := chainProblem()
	cfg := &SolverConfig{Timeout: time.Millisecond}

	for _, iter := range []bool{false, true} {
		cfg.Iterative = iter
		res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(slowObserver{delay: 20 * time.Millisecond})).Solve(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSearchAborted)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, Aborted, res.Outcome)
		assert.LessOrEqual(t, res.Stats.NodesExplored, 1)
	}
}

func TestSolve_CancelFromObserver(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}, {1}, {1}, {1}}, nil)
	pattern := portgraph.MustBuild([][]int{{1}, {1}, {1}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &cancelAfter{n: 2, cancel: cancel}

	res, err := NewSolver(pattern, target, WithObserver(obs), WithConfig(&SolverConfig{})).Solve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, res.Outcome)
	assert.Equal(t, 2, res.Stats.NodesExplored)
}

type cancelAfter struct {
	NopObserver
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) AssignmentTried(Assignment, int, int, bool) {
	c.n--
	if c.n == 0 {
		c.cancel()
	}
}

func TestSolve_InvariantViolation(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}}, nil)
	pattern := portgraph.MustBuild([][]int{{1, 2}}, nil)

	res, err := NewSolver(pattern, target).Solve(context.Background())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestSolve_InvalidConfig(t *testing.T) {
	pattern, target := pairProblem()
	_, err := NewSolver(pattern, target, WithConfig(&SolverConfig{MaxNodes: -1})).Solve(context.Background())
	assert.ErrorContains(t, err, "max nodes")
}

func TestSolve_EmptyPattern(t *testing.T) {
	target := portgraph.MustBuild([][]int{{1}}, nil)
	pattern := portgraph.MustBuild(nil, nil)

	res, err := NewSolver(pattern, target).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Solved, res.Outcome)
	assert.Equal(t, []Assignment{{}}, res.Solutions)
}

func TestSolve_SelfLoop(t *testing.T) {
	target := portgraph.MustBuild(
		[][]int{{1}, {1}},
		[]portgraph.Edge{edge(0, "q", 1, "d"), edge(1, "q", 1, "d")},
	)
	pattern := portgraph.MustBuild([][]int{{1}}, []portgraph.Edge{edge(0, "q", 0, "d")})

	for name, cfg := range allConfigs() {
		res, err := NewSolver(pattern, target, WithConfig(cfg)).Solve(context.Background())
		require.NoError(t, err, name)
		assert.Equal(t, Assignment{1}, res.First(), name)
	}
}

func TestSolve_StatsMatchObserver(t *testing.T) {
	pattern, target := randomProblem(11, true)
	obs := &recordingObserver{}
	mon := NewSolverMonitor()

	cfg := &SolverConfig{Propagation: PropagationForward}
	res, err := NewSolver(pattern, target, WithConfig(cfg), WithObserver(obs), WithMonitor(mon)).Solve(context.Background())
	require.NoError(t, err)

	stats := mon.GetStats()
	assert.Equal(t, obs.tries(), stats.NodesExplored)
	assert.Equal(t, res.Stats.NodesExplored, stats.NodesExplored)
	assert.Equal(t, len(res.Solutions), stats.SolutionsFound)
	assert.LessOrEqual(t, stats.MaxDepth, pattern.NumNodes())
}

func TestSolve_LogObserver(t *testing.T) {
	pattern, target := pairProblem()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := NewSolver(pattern, target, WithLogger(logger), WithObserver(LogObserver{Logger: logger})).Solve(context.Background())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "search started")
	assert.Contains(t, out, "assignment tried")
	assert.Contains(t, out, "solution found")
	assert.Contains(t, out, "outcome=solved")
}

func TestFind(t *testing.T) {
	pattern, target := chainProblem()
	a, err := Find(context.Background(), pattern, target)
	require.NoError(t, err)
	assert.Equal(t, Assignment{0, 1}, a)

	_, err = Find(context.Background(), target, pattern)
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolve_Repeatable(t *testing.T) {
	pattern, target := chainProblem()
	s := NewSolver(pattern, target, WithConfig(&SolverConfig{}))

	r1, err := s.Solve(context.Background())
	require.NoError(t, err)
	r2, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r1.Solutions, r2.Solutions)

	assert.Equal(t, r1.Stats.NodesExplored, r2.Stats.NodesExplored)
	assert.Equal(t, r1.Stats.Backtracks, r2.Stats.Backtracks)
	assert.Equal(t, r1.Stats.Removals, r2.Stats.Removals)
	assert.Equal(t, 2, r2.Stats.SolutionsFound)
	assert.Equal(t, len(r2.Solutions), s.Monitor().GetStats().SolutionsFound)
}

func TestSolverMonitor_StartSearchClearsStats(t *testing.T) {
	m := NewSolverMonitor()
	m.RecordNode()
	m.RecordSolution()
	m.RecordDepth(3)
	m.StartPropagation()
	m.EndPropagation(4)

	m.StartSearch()
	m.FinishSearch()
	got := m.GetStats()
	got.SearchTime = 0
	assert.Equal(t, SolverStats{}, got)
}

func TestParsePropagationAndDomainMode(t *testing.T) {
	for in, want := range map[string]Propagation{"none": PropagationNone, "FC": PropagationForward, "forward": PropagationForward, "ac3": PropagationAC3} {
		got, err := ParsePropagation(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePropagation("mac")
	assert.Error(t, err)

	m, err := ParseDomainMode("structural")
	require.NoError(t, err)
	assert.Equal(t, DomainsStructural, m)
	_, err = ParseDomainMode("edge")
	assert.Error(t, err)
}
