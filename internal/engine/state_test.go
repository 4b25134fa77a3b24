package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"axiomind/internal/reflection"
)

func TestStateAccumulation(t *testing.T) {
	s := NewState(10)

	total := s.ApplyCycle(&reflection.Cycle{LambdaImpact: 0.12, Emergence: 1.4})
	assert.InDelta(t, 10.12, total, 1e-12)
	total = s.ApplyCycle(&reflection.Cycle{LambdaImpact: 0.08, Emergence: 0.3})
	assert.InDelta(t, 10.20, total, 1e-12)

	assert.InDeltaSlice(t, []float64{10, 10.12, 10.2}, s.LambdaHistory(), 1e-9)
	assert.Equal(t, 2, s.CycleCount())

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.CyclesCompleted)
	assert.InDelta(t, 10.2, snap.LambdaTotal, 1e-12)
	assert.Equal(t, []float64{1.4, 0.3}, snap.EmergenceHistory)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewState(10)
	s.ApplyCycle(&reflection.Cycle{LambdaImpact: 0.1, Emergence: 1.0})

	snap := s.Snapshot()
	snap.EmergenceHistory[0] = 99

	assert.Equal(t, []float64{1.0}, s.Snapshot().EmergenceHistory)
}
