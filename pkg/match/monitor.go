package match

// monitor.go: search statistics

import (
	"sync"
	"time"
)

// SolverStats holds statistics about one solve.
type SolverStats struct {
	// Search statistics
	NodesExplored  int           // Tentative assignments tried
	Rejected       int           // Assignments refused by the consistency check
	Pruned         int           // Branches cut because propagation emptied a domain
	Backtracks     int           // Variables whose candidate list was exhausted
	SolutionsFound int           // Complete assignments reported
	MaxDepth       int           // Deepest search level reached
	SearchTime     time.Duration // Wall time from start to finish

	// Propagation statistics
	PropagationCount int           // Propagator invocations
	PropagationTime  time.Duration // Time spent in propagation
	Removals         int           // Domain values removed by propagation
}

// SolverMonitor collects SolverStats for one search at a time. GetStats may
// be called from another goroutine while the search runs. StartSearch
// clears the previous search's statistics.
type SolverMonitor struct {
	mu        sync.Mutex
	stats     SolverStats
	startTime time.Time
	propStart time.Time
}

// NewSolverMonitor creates a monitor whose clock starts now.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{startTime: time.Now()}
}

// GetStats returns a copy of the current statistics.
func (m *SolverMonitor) GetStats() SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// StartSearch zeroes the statistics and restarts the search clock.
func (m *SolverMonitor) StartSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = SolverStats{}
	m.propStart = time.Time{}
	m.startTime = time.Now()
}

// FinishSearch records the elapsed search time.
func (m *SolverMonitor) FinishSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime = time.Since(m.startTime)
}

// StartPropagation marks the beginning of a propagation operation
func (m *SolverMonitor) StartPropagation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.propStart = time.Now()
}

// EndPropagation marks the end of a propagation operation and adds the
// number of values it removed.
func (m *SolverMonitor) EndPropagation(removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.propStart.IsZero() {
		m.stats.PropagationTime += time.Since(m.propStart)
		m.stats.PropagationCount++
		m.propStart = time.Time{}
	}
	m.stats.Removals += removed
}

// RecordNode records a tentative assignment.
func (m *SolverMonitor) RecordNode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
}

// RecordRejection records an assignment refused by the checker.
func (m *SolverMonitor) RecordRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Rejected++
}

// RecordPrune records a branch cut by propagation.
func (m *SolverMonitor) RecordPrune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Pruned++
}

// RecordBacktrack records a backtrack operation
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordSolution records finding a solution
func (m *SolverMonitor) RecordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// RecordDepth records the current search depth
func (m *SolverMonitor) RecordDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}
