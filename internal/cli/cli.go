// Package cli turns command-line arguments into an app.Config.
//
// Settings are layered: built-in defaults, then the HCL file named by
// -config, then every flag given explicitly on the command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/gitrdm/monomatch/internal/app"
	"github.com/gitrdm/monomatch/internal/config"
	"github.com/gitrdm/monomatch/pkg/match"
)

// Set at link time, e.g.
//
//	go build -ldflags "-X github.com/gitrdm/monomatch/internal/cli.gitCommit=$(git rev-parse --short HEAD)"
var (
	gitCommit string
	buildDate string
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// environ feeds the env object of the configuration file.
func Parse(args []string, output io.Writer, environ []string) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("monomatch", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
monomatch - find port-preserving embeddings of a pattern graph in a target graph.

Usage:
  monomatch [options] PROBLEM_FILE...

Arguments:
  PROBLEM_FILE
    Text file holding the target graph followed by the pattern graph.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL configuration file.")
	engineFlag := flagSet.String("engine", app.EngineCSP, "Engine. Options: 'csp' or 'sat'.")
	propagationFlag := flagSet.String("propagation", "forward", "Propagation after each assignment. Options: 'none', 'forward', 'ac3'.")
	domainsFlag := flagSet.String("domains", "label", "Initial domain filter. Options: 'label' or 'structural'.")
	rootAC3Flag := flagSet.Bool("root-ac3", true, "Run AC-3 on the initial domains.")
	fullCheckFlag := flagSet.Bool("full-check", false, "Re-check the whole assignment at every step.")
	allFlag := flagSet.Bool("all", false, "Enumerate all solutions instead of stopping at the first.")
	maxSolutionsFlag := flagSet.Int("max-solutions", 0, "Stop after this many solutions with -all. 0 is unlimited.")
	maxNodesFlag := flagSet.Int("max-nodes", 0, "Abort after this many tentative assignments. 0 is unlimited.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Abort each solve after this long. 0 is unlimited.")
	iterativeFlag := flagSet.Bool("iterative", false, "Use the explicit-stack search.")
	dotFlag := flagSet.String("dot", "", "Directory receiving an annotated target DOT file per solved problem.")
	metricsFlag := flagSet.String("metrics-file", "", "Write Prometheus metrics to this file after the run.")
	workersFlag := flagSet.Int("workers", 1, "Number of problems solved concurrently. 0 uses every CPU.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}

	if *versionFlag {
		info := match.GetVersionInfo()
		info.GitCommit, info.BuildDate = gitCommit, buildDate
		fmt.Fprintf(output, "monomatch %s (%s)", info.Version, info.GoVersion)
		if info.GitCommit != "" {
			fmt.Fprintf(output, " commit %s", info.GitCommit)
		}
		if info.BuildDate != "" {
			fmt.Fprintf(output, " built %s", info.BuildDate)
		}
		fmt.Fprintln(output)
		return nil, true, nil
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	cfg := app.DefaultConfig()
	cfg.ProblemPaths = flagSet.Args()

	if *configFlag != "" {
		if err := applyFile(cfg, *configFlag, environ); err != nil {
			return nil, false, usageError("%v", err)
		}
	}

	var flagErr error
	flagSet.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		switch f.Name {
		case "engine":
			cfg.Engine = strings.ToLower(*engineFlag)
		case "propagation":
			cfg.Solver.Propagation, flagErr = match.ParsePropagation(*propagationFlag)
		case "domains":
			cfg.Solver.Domains, flagErr = match.ParseDomainMode(*domainsFlag)
		case "root-ac3":
			cfg.Solver.RootAC3 = *rootAC3Flag
		case "full-check":
			cfg.Solver.FullCheck = *fullCheckFlag
		case "all":
			cfg.Solver.StopAfterFirst = !*allFlag
		case "max-solutions":
			cfg.Solver.MaxSolutions = *maxSolutionsFlag
		case "max-nodes":
			cfg.Solver.MaxNodes = *maxNodesFlag
		case "timeout":
			cfg.Solver.Timeout = *timeoutFlag
		case "iterative":
			cfg.Solver.Iterative = *iterativeFlag
		case "dot":
			cfg.DotDir = *dotFlag
		case "metrics-file":
			cfg.MetricsFile = *metricsFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormatFlag)
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevelFlag)
		}
	})
	if flagErr != nil {
		return nil, false, usageError("%v", flagErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, usageError("%v", err)
	}
	return cfg, false, nil
}

func applyFile(cfg *app.Config, path string, environ []string) error {
	f, err := config.Load(path, environ)
	if err != nil {
		return err
	}
	if err := f.ApplySolver(&cfg.Solver); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if s := f.Solver; s != nil {
		cfg.Engine = config.String(s.Engine, cfg.Engine)
		cfg.Workers = config.Int(s.Workers, cfg.Workers)
	}
	if l := f.Log; l != nil {
		cfg.LogLevel = config.String(l.Level, cfg.LogLevel)
		cfg.LogFormat = config.String(l.Format, cfg.LogFormat)
	}
	if o := f.Output; o != nil {
		cfg.DotDir = config.String(o.DotDir, cfg.DotDir)
		cfg.MetricsFile = config.String(o.MetricsFile, cfg.MetricsFile)
	}
	return nil
}
