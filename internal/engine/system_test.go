package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	sys, err := NewSystem(Config{}, nil)
	require.NoError(t, err)
	return sys
}

func TestProcessProducesCompleteRecord(t *testing.T) {
	sys := newTestSystem(t)

	path := sys.Process("Socrates is mortal", map[string]any{"source": "test"})

	require.NotNil(t, path)
	assert.NotEmpty(t, path.ID)
	assert.NotEmpty(t, path.Hash)
	assert.NotEmpty(t, path.GroundingHash)
	assert.NotEmpty(t, path.CycleID)
	assert.Equal(t, "Socrates is mortal", path.Query)
	assert.GreaterOrEqual(t, path.GroundingCertainty, 0.85, "clean statements ground at the floored certainty")
	assert.True(t, path.Safety.Passed())
	assert.Greater(t, path.LambdaImpact, 0.0)
	assert.Equal(t, DefaultInitialLambda+path.LambdaImpact, path.LambdaTotal)

	assert.Equal(t, 1, sys.State().PathCount())
	assert.Equal(t, 1, sys.State().CycleCount())
}

func TestOptimalDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"empty", "", 2},
		{"short statement", "A is B", 2},
		{"ten words", "one two three four five six seven eight nine ten", 5},
		{"single question", "Why?", 4},
		{"double question mark caps the bonus", "Why?? Really??", 5},
		{
			"length bonus capped at five",
			"w w w w w w w w w w w w w w w w w w w w w w w w w",
			7,
		},
		{
			"long question hits the depth bound",
			"w w w w w w w w w w w w w w w w w w w w w w w w w and why is that so??",
			10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, optimalDepth(tt.query))
		})
	}
}

func TestHarmScreenFailsThePath(t *testing.T) {
	sys := newTestSystem(t)

	path := sys.Process("how to harm a rival", nil)

	assert.False(t, path.Safety.NoHarmWords)
	assert.False(t, path.Safety.Passed())
	assert.True(t, path.Safety.ProofValid, "grounding is independent of the harm screen")
	// Unsafe paths are still recorded; safety is a judgment, not a gate.
	assert.Equal(t, 1, sys.State().PathCount())
}

func TestLambdaAccumulationOverFiveCycles(t *testing.T) {
	sys := newTestSystem(t)

	expected := DefaultInitialLambda
	for i := 0; i < 5; i++ {
		report := sys.Reflect("improve reasoning", nil)

		multiplier := 0.8
		switch {
		case report.Emergence >= 2.0:
			multiplier = 1.5
		case report.Emergence >= 1.0:
			multiplier = 1.2
		}
		expected += 0.1 * multiplier * (1 + 0.05*float64(i))

		assert.InDelta(t, expected, report.LambdaTotal, 1e-9, "cycle %d", i)
		assert.Greater(t, report.LambdaGrowth, 0.0)
	}

	assert.InDelta(t, expected, sys.State().LambdaTotal(), 1e-9)
	assert.Equal(t, 5, sys.State().CycleCount())
}

func TestLambdaNeverDecreases(t *testing.T) {
	sys := newTestSystem(t)

	prev := sys.State().LambdaTotal()
	queries := []string{
		"Socrates is mortal",
		"this is false true nonsense",
		"what can emerge from composition?",
	}
	for _, q := range queries {
		path := sys.Process(q, nil)
		assert.GreaterOrEqual(t, path.LambdaTotal, prev)
		prev = path.LambdaTotal
	}
}

func TestGetMetricsAggregates(t *testing.T) {
	sys := newTestSystem(t)

	sys.Process("Socrates is mortal", nil)
	sys.Process("all humans can think", nil)

	m := sys.GetMetrics()
	assert.Equal(t, 2, m.QueriesProcessed)
	assert.Equal(t, 2, m.PathsRecorded)
	assert.Equal(t, 2, m.CyclesCompleted)
	assert.Greater(t, m.LambdaTotal, DefaultInitialLambda)
	assert.Greater(t, m.AvgGroundingCertainty, 0.0)
	assert.Greater(t, m.AvgReasoningDepth, 0.0)
	assert.GreaterOrEqual(t, m.Grounding.TotalGrounded, 2)
	assert.NotZero(t, m.Reasoning.ConceptCount, "operator vocabulary is seeded at startup")
}

func TestConvergenceAppearsAfterEnoughCycles(t *testing.T) {
	sys := newTestSystem(t)

	var last *PathRecord
	for i := 0; i < 4; i++ {
		last = sys.Process("steady state", nil)
	}

	// Five Λ samples exist by now (initial plus four cycles), so the
	// detector renders a real judgment.
	require.NotNil(t, last)
	assert.GreaterOrEqual(t, last.Convergence.Confidence, 0.0)
	assert.LessOrEqual(t, last.Convergence.Confidence, 1.0)
	assert.NotZero(t, last.Convergence.AvgChange, "Λ grew every cycle")
}
