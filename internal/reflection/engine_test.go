package reflection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"axiomind/internal/concept"
	"axiomind/internal/reasoning"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	graph, err := concept.NewKernel()
	require.NoError(t, err)
	return NewEngine(reasoning.NewEngine(graph, reasoning.Config{}), zap.NewNop())
}

func TestReflectRunsAllFourLevels(t *testing.T) {
	e := newTestEngine(t)

	cycle := e.Reflect("the system is running", nil, Snapshot{LambdaTotal: 10})

	require.NotNil(t, cycle)
	assert.NotEmpty(t, cycle.ID)
	assert.NotEmpty(t, cycle.Hash)

	levels := cycle.LevelResults()
	for i, want := range Sequence {
		assert.Equal(t, want, levels[i].Level, "levels must appear in pipeline order")
		assert.NotEmpty(t, levels[i].Insights)
	}
}

func TestReflectProposesAndAppliesImprovements(t *testing.T) {
	e := newTestEngine(t)

	// The action pattern weighs 0.6, below the certainty threshold, so all
	// three proposal kinds fire.
	cycle := e.Reflect("the system is running", nil, Snapshot{})

	kinds := make(map[ProposalKind]bool)
	for _, p := range cycle.Regenerative.Proposals {
		kinds[p.Kind] = true
	}
	assert.True(t, kinds[ProposalIncreaseDepth])
	assert.True(t, kinds[ProposalImproveCertainty])
	assert.True(t, kinds[ProposalOptimizePatterns])

	require.Len(t, cycle.ImprovementLog, len(cycle.Regenerative.Proposals))
	for _, entry := range cycle.ImprovementLog {
		assert.Empty(t, entry.Err)
		assert.NotEmpty(t, entry.Result)
		assert.False(t, entry.Timestamp.IsZero())
	}

	// The depth handler actually moved the baseline.
	assert.Equal(t, 3, e.Baselines().ReasoningDepth)
}

func TestDepthProposalCappedAtTen(t *testing.T) {
	e := newTestEngine(t)
	e.mu.Lock()
	e.baselines.ReasoningDepth = 10
	e.mu.Unlock()

	cycle := e.Reflect("anything", nil, Snapshot{})

	require.NotEmpty(t, cycle.Regenerative.Proposals)
	depth := cycle.Regenerative.Proposals[0]
	assert.Equal(t, ProposalIncreaseDepth, depth.Kind)
	assert.Equal(t, 10, depth.ToDepth)
	assert.Equal(t, 10, e.Baselines().ReasoningDepth)
}

func TestApplyImprovementsCapturesFailures(t *testing.T) {
	e := newTestEngine(t)

	log := e.applyImprovements([]Proposal{
		{Kind: ProposalIncreaseDepth, ToDepth: 11},
		{Kind: ProposalKind("bogus")},
	})

	require.Len(t, log, 2)
	assert.NotEmpty(t, log[0].Err, "over-bound depth must fail in the handler")
	assert.NotEmpty(t, log[1].Err, "unknown kind has no handler")
}

func TestTranscendentBreakthrough(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name             string
		history          []float64
		wantBreakthrough bool
	}{
		{"fewer than five samples", []float64{5, 5, 5, 5}, false},
		{"five high samples", []float64{3, 3, 3, 3, 3}, true},
		{"five low samples", []float64{0.5, 0.5, 0.5, 0.5, 0.5}, false},
		{"window reads the suffix", []float64{0, 0, 0, 4, 4, 4, 4, 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.transcendentLevel(Snapshot{EmergenceHistory: tt.history})
			assert.Equal(t, tt.wantBreakthrough, res.Breakthrough)
			if tt.wantBreakthrough {
				require.NotNil(t, res.Framework)
				assert.Contains(t, res.Insights[0], "New framework created")
				assert.Equal(t, 0.8, res.Certainty)
			} else {
				assert.Nil(t, res.Framework)
				assert.Equal(t, 0.5, res.Certainty)
			}
		})
	}
}

func TestCycleEmergenceFormula(t *testing.T) {
	levels := [4]LevelResult{
		{Level: LevelReflexive, Certainty: 0.9, Insights: []string{"a new idea", "plain"}},
		{Level: LevelRecursive, Certainty: 0.8, Insights: []string{"create a structure"}},
		{Level: LevelRegenerative, Certainty: 0.7, Insights: []string{"nothing novel"}},
		{Level: LevelTranscendent, Certainty: 0.5, Insights: []string{"steady"}},
	}

	// Two unique marker insights, two levels above the threshold, five
	// insights in total.
	want := math.Log2(3) * 2 * math.Sqrt(5)
	assert.InDelta(t, want, cycleEmergence(levels), 1e-9)

	none := [4]LevelResult{
		{Level: LevelReflexive, Insights: []string{"plain"}},
	}
	assert.Zero(t, cycleEmergence(none))
}

func TestCycleEmergenceUncapped(t *testing.T) {
	var insights []string
	for i := 0; i < 40; i++ {
		insights = append(insights, "new idea number "+string(rune('a'+i)))
	}
	levels := [4]LevelResult{
		{Level: LevelReflexive, Certainty: 0.9, Insights: insights},
		{Level: LevelRecursive, Certainty: 0.9, Insights: insights},
		{Level: LevelRegenerative, Certainty: 0.9, Insights: []string{"x"}},
		{Level: LevelTranscendent, Certainty: 0.9, Insights: []string{"y"}},
	}

	got := cycleEmergence(levels)
	assert.Greater(t, got, 5.0, "reflection-layer emergence has no cap")
}

func TestLambdaImpactTable(t *testing.T) {
	tests := []struct {
		name      string
		emergence float64
		cycles    int
		want      float64
	}{
		{"low emergence", 0.0, 0, 0.1 * 0.8},
		{"medium emergence", 1.0, 0, 0.1 * 1.2},
		{"high emergence", 2.0, 0, 0.1 * 1.5},
		{"depth multiplier", 0.0, 4, 0.1 * 0.8 * 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lambdaImpact(tt.emergence, tt.cycles)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.Greater(t, got, 0.0, "every impact is positive")
		})
	}
}
