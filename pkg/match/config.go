package match

import (
	"fmt"
	"strings"
	"time"
)

// Propagation selects the filtering performed after each assignment.
type Propagation int

const (
	// PropagationNone relies on the consistency check alone.
	PropagationNone Propagation = iota
	// PropagationForward prunes the neighbors of the assigned variable.
	PropagationForward
	// PropagationAC3 re-establishes arc consistency over all pattern edges.
	PropagationAC3
)

func (p Propagation) String() string {
	switch p {
	case PropagationNone:
		return "none"
	case PropagationForward:
		return "forward"
	case PropagationAC3:
		return "ac3"
	default:
		return fmt.Sprintf("Propagation(%d)", int(p))
	}
}

// ParsePropagation accepts "none", "forward" (or "fc") and "ac3".
func ParsePropagation(s string) (Propagation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PropagationNone, nil
	case "forward", "fc", "forward-checking":
		return PropagationForward, nil
	case "ac3", "ac-3":
		return PropagationAC3, nil
	}
	return 0, fmt.Errorf("unknown propagation %q: must be 'none', 'forward' or 'ac3'", s)
}

// DomainMode selects how initial domains are computed.
type DomainMode int

const (
	// DomainsLabel filters target nodes by label only.
	DomainsLabel DomainMode = iota
	// DomainsStructural also requires matching port edges around each node.
	DomainsStructural
)

func (m DomainMode) String() string {
	switch m {
	case DomainsLabel:
		return "label"
	case DomainsStructural:
		return "structural"
	default:
		return fmt.Sprintf("DomainMode(%d)", int(m))
	}
}

// ParseDomainMode accepts "label" and "structural".
func ParseDomainMode(s string) (DomainMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "label", "":
		return DomainsLabel, nil
	case "structural":
		return DomainsStructural, nil
	}
	return 0, fmt.Errorf("unknown domain mode %q: must be 'label' or 'structural'", s)
}

// SolverConfig holds search parameters.
type SolverConfig struct {
	// Domains selects the initial domain filter.
	Domains DomainMode

	// RootAC3 runs AC-3 once on the initial domains before search.
	RootAC3 bool

	// Propagation is applied after every successful assignment.
	Propagation Propagation

	// FullCheck validates each tentative assignment with CheckAssignment
	// instead of the incremental CheckNode.
	FullCheck bool

	// StopAfterFirst ends the search at the first solution. When false the
	// search enumerates solutions until MaxSolutions (0 = unlimited).
	StopAfterFirst bool
	MaxSolutions   int

	// MaxNodes bounds the number of tentative assignments (0 = unlimited).
	MaxNodes int

	// Timeout bounds wall-clock search time (0 = unlimited).
	Timeout time.Duration

	// Iterative uses the explicit-stack search instead of recursion.
	// Both explore assignments in the same order.
	Iterative bool
}

// DefaultSolverConfig returns the configuration used when none is given:
// label domains, root AC-3, forward checking, first solution only.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		Domains:        DomainsLabel,
		RootAC3:        true,
		Propagation:    PropagationForward,
		StopAfterFirst: true,
	}
}

// Validate rejects negative limits.
func (c *SolverConfig) Validate() error {
	if c.MaxSolutions < 0 {
		return fmt.Errorf("max solutions must be >= 0, got %d", c.MaxSolutions)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max nodes must be >= 0, got %d", c.MaxNodes)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

func (c *SolverConfig) String() string {
	return fmt.Sprintf("SolverConfig{domains: %s, rootAC3: %v, propagation: %s, first: %v, maxSolutions: %d, maxNodes: %d, timeout: %v, iterative: %v}",
		c.Domains, c.RootAC3, c.Propagation, c.StopAfterFirst, c.MaxSolutions, c.MaxNodes, c.Timeout, c.Iterative)
}
