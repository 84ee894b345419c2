package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gitrdm/monomatch/internal/ctxlog"
	"github.com/gitrdm/monomatch/internal/parallel"
	"github.com/gitrdm/monomatch/internal/telemetry"
	"github.com/gitrdm/monomatch/pkg/match"
)

// ErrUnsolved is returned by Run when at least one problem was not solved.
var ErrUnsolved = errors.New("not every problem was solved")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	metrics *telemetry.Metrics
}

// NewApp returns an App printing results to outW and logging to logW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured.", "level", cfg.LogLevel, "format", cfg.LogFormat)
	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: telemetry.NewMetrics(),
	}
}

// Metrics returns the collectors fed by Run. This is primarily for testing.
func (a *App) Metrics() *telemetry.Metrics { return a.metrics }

// Run solves every configured problem and prints one report per problem, in
// the order the paths were given.
func (a *App) Run(ctx context.Context) ([]*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "problems", len(a.config.ProblemPaths), "engine", a.config.Engine)

	pool := parallel.NewWorkerPool(a.config.Workers)
	defer pool.Shutdown()

	start := time.Now()
	reports := make([]*Report, len(a.config.ProblemPaths))
	err := pool.Map(ctx, len(reports), func(i int) {
		reports[i] = a.solveFile(ctx, i, a.config.ProblemPaths[i])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule problems: %w", err)
	}
	a.logger.Info("Run finished.", "problems", len(reports), "elapsed", time.Since(start))

	unsolved := 0
	for _, r := range reports {
		if err := r.Print(a.outW); err != nil {
			return reports, fmt.Errorf("failed to write report: %w", err)
		}
		if r.Outcome != match.Solved {
			unsolved++
		}
	}

	if a.config.MetricsFile != "" {
		if err := a.metrics.WriteFile(a.config.MetricsFile); err != nil {
			return reports, fmt.Errorf("failed to write metrics: %w", err)
		}
		a.logger.Debug("Metrics written.", "path", a.config.MetricsFile)
	}

	if unsolved > 0 {
		return reports, fmt.Errorf("%w: %d of %d", ErrUnsolved, unsolved, len(reports))
	}
	return reports, nil
}
