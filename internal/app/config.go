package app

import (
	"errors"
	"fmt"

	"github.com/gitrdm/monomatch/pkg/match"
)

// Engine names.
const (
	EngineCSP = "csp"
	EngineSAT = "sat"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProblemPaths []string
	Engine       string
	Solver       match.SolverConfig

	DotDir      string // write an annotated target DOT per solved problem
	MetricsFile string // write Prometheus metrics after the run

	Workers   int
	LogFormat string
	LogLevel  string
}

// DefaultConfig returns the settings used when neither a file nor a flag
// says otherwise.
func DefaultConfig() *Config {
	return &Config{
		Engine:    EngineCSP,
		Solver:    *match.DefaultSolverConfig(),
		Workers:   1,
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.ProblemPaths) == 0 {
		return errors.New("at least one problem file is required")
	}
	switch c.Engine {
	case EngineCSP, EngineSAT:
	default:
		return fmt.Errorf("invalid engine %q: must be 'csp' or 'sat'", c.Engine)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return c.Solver.Validate()
}
