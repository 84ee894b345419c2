package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gitrdm/monomatch/internal/ctxlog"
	"github.com/gitrdm/monomatch/pkg/match"
	"github.com/gitrdm/monomatch/pkg/portgraph"
	"github.com/gitrdm/monomatch/pkg/satmatch"
)

// Report is the result of one problem file.
type Report struct {
	Index     int // position in Config.ProblemPaths
	Path      string
	RunID     string
	Engine    string
	Outcome   match.Outcome
	Solutions []match.Assignment
	Stats     *match.SolverStats // constraint engine only
	Elapsed   time.Duration
	DotPath   string
	Err       error
}

// Print writes the report: a status line, then one line per solution.
func (r *Report) Print(w io.Writer) error {
	var b strings.Builder
	switch {
	case r.Err != nil && r.Outcome != match.Aborted:
		fmt.Fprintf(&b, "%s: error: %v\n", r.Path, r.Err)
	case r.Outcome == match.Aborted:
		fmt.Fprintf(&b, "%s: aborted: %v\n", r.Path, r.Err)
	default:
		fmt.Fprintf(&b, "%s: %s\n", r.Path, r.Outcome)
	}
	for _, sol := range r.Solutions {
		fmt.Fprintf(&b, "  %v\n", []int(sol))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// solveFile never returns nil; failures are recorded in the report.
func (a *App) solveFile(ctx context.Context, index int, path string) *Report {
	r := &Report{Index: index, Path: path, RunID: uuid.NewString(), Engine: a.config.Engine, Outcome: match.NoSolution}
	ctx = ctxlog.With(ctx, "run_id", r.RunID, "problem", path)
	logger := ctxlog.FromContext(ctx)

	target, pattern, err := readProblem(path)
	if err != nil {
		logger.Error("Failed to read problem.", "error", err)
		r.Err = err
		return r
	}
	logger.Debug("Problem loaded.", "pattern_nodes", pattern.NumNodes(), "target_nodes", target.NumNodes())

	start := time.Now()
	switch a.config.Engine {
	case EngineSAT:
		err = a.solveSAT(ctx, r, pattern, target)
	default:
		err = a.solveCSP(ctx, r, pattern, target)
	}
	r.Elapsed = time.Since(start)
	r.Err = err

	if err != nil && !errors.Is(err, match.ErrSearchAborted) {
		logger.Error("Solve failed.", "error", err)
		return r
	}
	a.metrics.ObserveSolve(r.Engine, r.Outcome, r.Elapsed)
	logger.Info("Solve finished.", "outcome", r.Outcome.String(), "solutions", len(r.Solutions), "elapsed", r.Elapsed)

	if a.config.DotDir != "" && r.Outcome == match.Solved {
		if err := a.writeDOT(r, target); err != nil {
			logger.Warn("Failed to write DOT.", "error", err)
		} else {
			logger.Debug("DOT written.", "path", r.DotPath)
		}
	}
	return r
}

func readProblem(path string) (target, pattern *portgraph.Graph, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	target, pattern, err = portgraph.ReadProblem(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return target, pattern, nil
}

func (a *App) solveCSP(ctx context.Context, r *Report, pattern, target *portgraph.Graph) error {
	logger := ctxlog.FromContext(ctx)
	solver := match.NewSolver(pattern, target,
		match.WithConfig(&a.config.Solver),
		match.WithLogger(logger),
		match.WithObserver(match.Observers{
			match.LogObserver{Logger: logger},
			a.metrics.Observer(),
		}),
	)
	res, err := solver.Solve(ctx)
	if res != nil {
		r.Outcome = res.Outcome
		r.Solutions = res.Solutions
		r.Stats = &res.Stats
		logger.Debug("Search statistics.",
			"nodes", res.Stats.NodesExplored,
			"rejected", res.Stats.Rejected,
			"pruned", res.Stats.Pruned,
			"backtracks", res.Stats.Backtracks,
			"max_depth", res.Stats.MaxDepth,
			"removals", res.Stats.Removals,
		)
	}
	return err
}

func (a *App) solveSAT(ctx context.Context, r *Report, pattern, target *portgraph.Graph) error {
	cfg := a.config.Solver
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	limit := cfg.MaxSolutions
	if cfg.StopAfterFirst {
		limit = 1
	}
	res, err := satmatch.Solve(ctx, pattern, target,
		satmatch.WithDomains(cfg.Domains),
		satmatch.WithMaxSolutions(limit),
		satmatch.WithLogger(ctxlog.FromContext(ctx)),
	)
	if res != nil {
		r.Outcome = res.Outcome
		r.Solutions = res.Solutions
	}
	return err
}

// writeDOT renders the target with every used node marked by the pattern
// node placed on it. The file name is prefixed with the report index since
// problem files in different directories may share a base name.
func (a *App) writeDOT(r *Report, target *portgraph.Graph) error {
	notes := make(map[int]string)
	for n, t := range r.Solutions[0] {
		notes[t] = fmt.Sprintf("(p%d)", n)
	}
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	if err := os.MkdirAll(a.config.DotDir, 0o755); err != nil {
		return err
	}
	r.DotPath = filepath.Join(a.config.DotDir, fmt.Sprintf("%d-%s.dot", r.Index, base))
	return os.WriteFile(r.DotPath, []byte(target.AnnotatedDOT(base, notes)), 0o644)
}
