// Package config loads monomatch settings from an HCL file.
//
// A file may hold a solver block, a log block and an output block; every
// attribute is optional. Expressions may read the environment through the
// env object:
//
//	solver {
//	  propagation      = "ac3"
//	  stop_after_first = false
//	  max_nodes        = env.MONOMATCH_MAX_NODES
//	  timeout          = "30s"
//	}
//
//	log {
//	  level  = "debug"
//	  format = "json"
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gitrdm/monomatch/pkg/match"
)

// File is the decoded content of a configuration file.
type File struct {
	Solver *Solver `hcl:"solver,block"`
	Log    *Log    `hcl:"log,block"`
	Output *Output `hcl:"output,block"`
}

// Solver mirrors match.SolverConfig plus the engine choice and worker count.
type Solver struct {
	Engine         *string `hcl:"engine,optional"`
	Domains        *string `hcl:"domains,optional"`
	Propagation    *string `hcl:"propagation,optional"`
	RootAC3        *bool   `hcl:"root_ac3,optional"`
	FullCheck      *bool   `hcl:"full_check,optional"`
	StopAfterFirst *bool   `hcl:"stop_after_first,optional"`
	MaxSolutions   *int    `hcl:"max_solutions,optional"`
	MaxNodes       *int    `hcl:"max_nodes,optional"`
	Timeout        *string `hcl:"timeout,optional"`
	Iterative      *bool   `hcl:"iterative,optional"`
	Workers        *int    `hcl:"workers,optional"`
}

// Log selects the logger level and format.
type Log struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Output names optional artifacts.
type Output struct {
	DotDir      *string `hcl:"dot_dir,optional"`
	MetricsFile *string `hcl:"metrics_file,optional"`
}

// Load parses and decodes the file at path. environ is a list of KEY=VALUE
// strings (normally os.Environ()) exposed to expressions as env.KEY.
func Load(path string, environ []string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}
	return decode(file, environ)
}

// Parse is Load for in-memory source; filename is used in diagnostics.
func Parse(src []byte, filename string, environ []string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(file, environ)
}

func decode(file *hcl.File, environ []string) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(file.Body, EvalContext(environ), &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %w", diags)
	}
	return &f, nil
}

// EvalContext exposes environ as the env object.
func EvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

// ApplySolver copies every attribute present in the solver block onto cfg.
func (f *File) ApplySolver(cfg *match.SolverConfig) error {
	s := f.Solver
	if s == nil {
		return nil
	}
	if s.Domains != nil {
		m, err := match.ParseDomainMode(*s.Domains)
		if err != nil {
			return fmt.Errorf("solver.domains: %w", err)
		}
		cfg.Domains = m
	}
	if s.Propagation != nil {
		p, err := match.ParsePropagation(*s.Propagation)
		if err != nil {
			return fmt.Errorf("solver.propagation: %w", err)
		}
		cfg.Propagation = p
	}
	if s.Timeout != nil {
		d, err := time.ParseDuration(*s.Timeout)
		if err != nil {
			return fmt.Errorf("solver.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	setBool(&cfg.RootAC3, s.RootAC3)
	setBool(&cfg.FullCheck, s.FullCheck)
	setBool(&cfg.StopAfterFirst, s.StopAfterFirst)
	setBool(&cfg.Iterative, s.Iterative)
	setInt(&cfg.MaxSolutions, s.MaxSolutions)
	setInt(&cfg.MaxNodes, s.MaxNodes)
	return cfg.Validate()
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// String returns the value of p or def when p is nil.
func String(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// Int returns the value of p or def when p is nil.
func Int(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
