package engine

import (
	"sync"

	"axiomind/internal/reflection"
)

// DefaultInitialLambda is the capability metric's starting value.
const DefaultInitialLambda = 10.0

// State owns everything that accumulates across the system's lifetime: the
// capability metric Λ_total, its per-cycle sample history, the emergence
// history the transcendent level reads, the finished reflection cycles, and
// the reasoning path records. One mutex serializes all mutation, which is
// what makes concurrent Process and Reflect calls appear strictly ordered.
type State struct {
	mu            sync.Mutex
	lambdaTotal   float64
	lambdaHistory []float64
	emergence     []float64
	cycles        []*reflection.Cycle
	paths         []PathRecord
}

// NewState starts the accumulator at the given Λ value.
func NewState(initialLambda float64) *State {
	return &State{
		lambdaTotal:   initialLambda,
		lambdaHistory: []float64{initialLambda},
	}
}

// Snapshot returns the view a reflection cycle reads. The emergence history
// is copied so the cycle cannot observe later appends.
func (s *State) Snapshot() reflection.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]float64, len(s.emergence))
	copy(history, s.emergence)
	return reflection.Snapshot{
		CyclesCompleted:  len(s.cycles),
		LambdaTotal:      s.lambdaTotal,
		EmergenceHistory: history,
	}
}

// ApplyCycle folds a finished cycle into the accumulator: Λ grows by the
// cycle's impact, and the cycle and its emergence score join their
// append-only histories. Returns the Λ total after the update. Impacts are
// positive by construction, so Λ never decreases.
func (s *State) ApplyCycle(c *reflection.Cycle) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lambdaTotal += c.LambdaImpact
	s.lambdaHistory = append(s.lambdaHistory, s.lambdaTotal)
	s.emergence = append(s.emergence, c.Emergence)
	s.cycles = append(s.cycles, c)
	return s.lambdaTotal
}

// RecordPath appends a finished reasoning path.
func (s *State) RecordPath(p PathRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, p)
}

// LambdaTotal returns the current capability metric.
func (s *State) LambdaTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lambdaTotal
}

// LambdaHistory returns a copy of the Λ samples, one per applied cycle plus
// the initial value.
func (s *State) LambdaHistory() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.lambdaHistory))
	copy(out, s.lambdaHistory)
	return out
}

// CycleCount returns how many reflection cycles have been applied.
func (s *State) CycleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cycles)
}

// PathCount returns how many reasoning paths have been recorded.
func (s *State) PathCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Paths returns a copy of the recorded path history.
func (s *State) Paths() []PathRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PathRecord, len(s.paths))
	copy(out, s.paths)
	return out
}

// Cycles returns the applied cycles in order.
func (s *State) Cycles() []*reflection.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*reflection.Cycle, len(s.cycles))
	copy(out, s.cycles)
	return out
}

// pathAverages computes the per-path means the aggregate metrics report.
func (s *State) pathAverages() (grounding, emergence, depth, certainty float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.paths) == 0 {
		return 0, 0, 0, 0
	}
	for _, p := range s.paths {
		grounding += p.GroundingCertainty
		emergence += p.Emergence
		depth += float64(p.Depth)
		certainty += p.Certainty
	}
	n := float64(len(s.paths))
	return grounding / n, emergence / n, depth / n, certainty / n
}
