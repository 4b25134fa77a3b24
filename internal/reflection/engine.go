package reflection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"axiomind/internal/reasoning"
)

const (
	// maxReasoningDepth bounds the depth-increase proposal.
	maxReasoningDepth = 10

	// baseGrowth is the Λ growth target per cycle before multipliers.
	baseGrowth = 0.1

	// emergenceTarget is the rolling-average threshold for breakthrough.
	emergenceTarget = 2.0

	// certaintyThreshold gates the improve-certainty proposal and counts
	// toward the cycle depth factor.
	certaintyThreshold = 0.7

	// emergenceWindow is the rolling-history length for the transcendent
	// level.
	emergenceWindow = 5
)

// Markers that flag an insight as novel for the cycle emergence score.
var noveltyMarkers = []string{"new", "create"}

// Baselines are the engine's tunable performance targets. Improvement
// handlers mutate these.
type Baselines struct {
	ReasoningDepth     int     `json:"reasoning_depth"`
	CertaintyThreshold float64 `json:"certainty_threshold"`
	EmergenceTarget    float64 `json:"emergence_target"`
	LambdaGrowthTarget float64 `json:"lambda_growth_target"`
}

// DefaultBaselines returns the starting tunables.
func DefaultBaselines() Baselines {
	return Baselines{
		ReasoningDepth:     2,
		CertaintyThreshold: certaintyThreshold,
		EmergenceTarget:    emergenceTarget,
		LambdaGrowthTarget: baseGrowth,
	}
}

// Snapshot is the accumulated state a cycle reads: it is supplied by the
// state owner, never held here, so the reflection engine itself stays free
// of cross-cycle mutable state apart from its tunables.
type Snapshot struct {
	CyclesCompleted  int
	LambdaTotal      float64
	EmergenceHistory []float64
}

// Cycle is one complete reflection run. Immutable once returned.
type Cycle struct {
	ID             string                `json:"cycle_id"`
	LevelReached   Level                 `json:"level"`
	Reflexive      ReflexiveResult       `json:"reflexive"`
	Recursive      RecursiveResult       `json:"recursive"`
	Regenerative   RegenerativeResult    `json:"regenerative"`
	Transcendent   TranscendentResult    `json:"transcendent"`
	Emergence      float64               `json:"emergence_score"`
	LambdaImpact   float64               `json:"lambda_impact"`
	Duration       time.Duration         `json:"duration"`
	ImprovementLog []ImprovementLogEntry `json:"improvement_log"`
	Hash           string                `json:"hash"`
}

// LevelResults returns the four level results in pipeline order.
func (c *Cycle) LevelResults() [4]LevelResult {
	return [4]LevelResult{
		c.Reflexive.LevelResult,
		c.Recursive.LevelResult,
		c.Regenerative.LevelResult,
		c.Transcendent.LevelResult,
	}
}

// Engine runs reflection cycles over a reasoning engine.
type Engine struct {
	reasoner *reasoning.Engine
	logger   *zap.Logger
	handlers map[ProposalKind]Handler
	now      func() time.Time

	mu                   sync.Mutex
	baselines            Baselines
	certaintyAdjustments int
	optimizedPatterns    []string
}

// NewEngine builds a reflection engine. A nil logger is replaced with a
// no-op logger.
func NewEngine(reasoner *reasoning.Engine, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		reasoner:  reasoner,
		logger:    logger,
		now:       time.Now,
		baselines: DefaultBaselines(),
	}
	e.handlers = e.defaultHandlers()
	return e
}

// Baselines returns a copy of the current tunables.
func (e *Engine) Baselines() Baselines {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baselines
}

// Reflect runs the four levels strictly in order against the given state
// snapshot and returns the finished cycle. The caller owns applying the
// cycle's Λ impact and appending it to history. Reflect never fails: handler
// errors end up in the improvement log.
func (e *Engine) Reflect(query string, context map[string]any, snap Snapshot) *Cycle {
	start := e.now()

	reflexive := e.reflexiveLevel(query, context, snap)
	recursive := e.recursiveLevel(query, reflexive)
	regenerative := e.regenerativeLevel(recursive)
	transcendent := e.transcendentLevel(snap)

	levels := [4]LevelResult{
		reflexive.LevelResult,
		recursive.LevelResult,
		regenerative.LevelResult,
		transcendent.LevelResult,
	}
	emergenceScore := cycleEmergence(levels)
	impact := lambdaImpact(emergenceScore, snap.CyclesCompleted)

	levelReached := LevelRegenerative
	if transcendent.Breakthrough {
		levelReached = LevelTranscendent
	}

	cycle := &Cycle{
		ID:           uuid.NewString(),
		LevelReached: levelReached,
		Reflexive:    reflexive,
		Recursive:    recursive,
		Regenerative: regenerative,
		Transcendent: transcendent,
		Emergence:    emergenceScore,
		LambdaImpact: impact,
	}
	cycle.ImprovementLog = e.applyImprovements(regenerative.Proposals)
	cycle.Duration = e.now().Sub(start)
	cycle.Hash = hashCycle(cycle)

	e.logger.Debug("reflection cycle complete",
		zap.String("cycle_id", cycle.ID),
		zap.Stringer("level", cycle.LevelReached),
		zap.Float64("emergence", cycle.Emergence),
		zap.Float64("lambda_impact", cycle.LambdaImpact),
		zap.Int("improvements", len(cycle.ImprovementLog)))

	return cycle
}

// reflexiveLevel asks the reasoning engine what the system is doing, at
// depth 1, and collects its insight strings.
func (e *Engine) reflexiveLevel(query string, context map[string]any, snap Snapshot) ReflexiveResult {
	analysis := e.reasoner.ReasonAbout(
		fmt.Sprintf("Analyze what I'm doing: %s", query),
		map[string]any{"analysis_type": "self_analysis"},
		1,
	)

	insights := []string{
		fmt.Sprintf("Processing query: %s", query),
		fmt.Sprintf("Context keys: %d", len(context)),
		fmt.Sprintf("Current state: cycles=%d lambda=%.3f", snap.CyclesCompleted, snap.LambdaTotal),
	}
	insights = append(insights, analysis.Insights()...)

	return ReflexiveResult{
		LevelResult: LevelResult{
			Level:     LevelReflexive,
			Insights:  insights,
			Certainty: analysis.Certainty,
		},
		Analysis: analysis,
	}
}

// recursiveLevel analyzes the thinking patterns of the reflexive pass. A
// pattern type is a fixed point when one more refinement pass (the same
// meta-query at depth+1) leaves it unchanged.
func (e *Engine) recursiveLevel(query string, reflexive ReflexiveResult) RecursiveResult {
	analysis := reflexive.Analysis

	patternTypes := make([]string, 0, len(analysis.Base.Patterns))
	weights := make(map[string]float64, len(analysis.Base.Patterns))
	for _, p := range analysis.Base.Patterns {
		patternTypes = append(patternTypes, p.Type)
		weights[p.Type] = p.Certainty
	}

	deeper := e.reasoner.ReasonAbout(
		fmt.Sprintf("Analyze what I'm doing: %s", query),
		map[string]any{"analysis_type": "self_analysis"},
		analysis.DepthUsed+1,
	)
	deeperTypes := make(map[string]bool, len(deeper.Base.Patterns))
	for _, p := range deeper.Base.Patterns {
		deeperTypes[p.Type] = true
	}

	var fixedPoints, inefficient []string
	for _, pt := range patternTypes {
		if deeperTypes[pt] {
			fixedPoints = append(fixedPoints, pt)
		}
		if weights[pt] < e.Baselines().CertaintyThreshold {
			inefficient = append(inefficient, pt)
		}
	}

	cert := 0.6
	if len(patternTypes) > 0 {
		var sum float64
		for _, pt := range patternTypes {
			sum += weights[pt]
		}
		cert = sum / float64(len(patternTypes))
	}

	return RecursiveResult{
		LevelResult: LevelResult{
			Level: LevelRecursive,
			Insights: []string{
				fmt.Sprintf("Thinking patterns: %v", patternTypes),
				fmt.Sprintf("Recursive depth: %d", analysis.DepthUsed),
				fmt.Sprintf("Fixed points found: %d", len(fixedPoints)),
			},
			Certainty: cert,
		},
		PatternTypes:   patternTypes,
		RecursionDepth: analysis.DepthUsed,
		FixedPoints:    fixedPoints,
		Inefficient:    inefficient,
	}
}

// regenerativeLevel proposes up to three improvements, deterministically.
func (e *Engine) regenerativeLevel(recursive RecursiveResult) RegenerativeResult {
	baselines := e.Baselines()

	currentDepth := baselines.ReasoningDepth
	targetDepth := currentDepth + 1
	if targetDepth > maxReasoningDepth {
		targetDepth = maxReasoningDepth
	}
	proposals := []Proposal{{
		Kind:      ProposalIncreaseDepth,
		Impact:    0.15,
		FromDepth: currentDepth,
		ToDepth:   targetDepth,
	}}

	if recursive.Certainty < baselines.CertaintyThreshold {
		proposals = append(proposals, Proposal{
			Kind:    ProposalImproveCertainty,
			Impact:  0.1,
			Current: recursive.Certainty,
			Target:  baselines.CertaintyThreshold,
		})
	}

	if len(recursive.Inefficient) > 0 {
		proposals = append(proposals, Proposal{
			Kind:     ProposalOptimizePatterns,
			Impact:   0.2,
			Patterns: recursive.Inefficient,
		})
	}

	var gain float64
	insights := make([]string, 0, len(proposals))
	for _, p := range proposals {
		gain += p.Impact
		insights = append(insights, fmt.Sprintf("Proposed improvement: %s (impact %.2f)", p.Kind, p.Impact))
	}

	return RegenerativeResult{
		LevelResult: LevelResult{
			Level:     LevelRegenerative,
			Insights:  insights,
			Certainty: 0.7,
		},
		Proposals:     proposals,
		PotentialGain: gain,
	}
}

// transcendentLevel checks the rolling emergence average against the
// breakthrough target. Fewer than five prior samples means no breakthrough.
func (e *Engine) transcendentLevel(snap Snapshot) TranscendentResult {
	target := e.Baselines().EmergenceTarget

	var avg float64
	if len(snap.EmergenceHistory) >= emergenceWindow {
		window := snap.EmergenceHistory[len(snap.EmergenceHistory)-emergenceWindow:]
		var sum float64
		for _, v := range window {
			sum += v
		}
		avg = sum / float64(len(window))
	}

	if avg >= target {
		framework := &Framework{
			Name:        fmt.Sprintf("recursive_framework_%d", snap.CyclesCompleted+1),
			Description: "Framework synthesized from sustained emergence above target",
		}
		return TranscendentResult{
			LevelResult: LevelResult{
				Level: LevelTranscendent,
				Insights: []string{
					fmt.Sprintf("New framework created: %s", framework.Name),
					fmt.Sprintf("Emergence threshold met: %.2f >= %.2f", avg, target),
					"Transcendent capability achieved",
				},
				Certainty: 0.8,
			},
			Breakthrough: true,
			AvgEmergence: avg,
			Framework:    framework,
		}
	}

	return TranscendentResult{
		LevelResult: LevelResult{
			Level: LevelTranscendent,
			Insights: []string{
				fmt.Sprintf("Emergence insufficient: %.2f < %.2f", avg, target),
				"Continue recursive refinement",
			},
			Certainty: 0.5,
		},
		Breakthrough: false,
		AvgEmergence: avg,
	}
}

// cycleEmergence scores novelty across all four levels: distinct hashes of
// marker-bearing insights, scaled by the number of confident levels and the
// square root of the total insight count. Uncapped, unlike the
// reasoning-layer formula.
func cycleEmergence(levels [4]LevelResult) float64 {
	unique := make(map[string]bool)
	totalInsights := 0
	depthFactor := 0

	for _, level := range levels {
		totalInsights += len(level.Insights)
		if level.Certainty > certaintyThreshold {
			depthFactor++
		}
		for _, insight := range level.Insights {
			lower := strings.ToLower(insight)
			for _, marker := range noveltyMarkers {
				if strings.Contains(lower, marker) {
					sum := sha256.Sum256([]byte(insight))
					unique[hex.EncodeToString(sum[:8])] = true
					break
				}
			}
		}
	}

	if len(unique) == 0 {
		return 0
	}
	return math.Log2(1+float64(len(unique))) * float64(depthFactor) * math.Sqrt(float64(totalInsights))
}

// lambdaImpact converts a cycle's emergence into capability growth. Every
// branch of the multiplier table is positive, which is what keeps Λ_total
// non-decreasing.
func lambdaImpact(emergence float64, cyclesCompleted int) float64 {
	multiplier := 0.8
	switch {
	case emergence >= 2.0:
		multiplier = 1.5
	case emergence >= 1.0:
		multiplier = 1.2
	}
	depthMultiplier := 1.0 + 0.05*float64(cyclesCompleted)
	return baseGrowth * multiplier * depthMultiplier
}

// hashCycle digests the cycle's identity: id, level reached, and the
// reflection and improvement counts.
func hashCycle(c *Cycle) string {
	content := fmt.Sprintf("%s|%d|%d|%d",
		c.ID, int(c.LevelReached), len(c.LevelResults()), len(c.Regenerative.Proposals))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
