// Package reflection implements the four-level self-reflection engine (R3).
// Every cycle runs Reflexive, Recursive, Regenerative and Transcendent in
// that order, with no skipping and no backward transitions, then folds the
// outcome into a non-decreasing capability metric.
package reflection

import (
	"axiomind/internal/reasoning"
)

// Level identifies one stage of the fixed reflection sequence.
type Level int

const (
	LevelReflexive    Level = iota + 1 // what am I doing?
	LevelRecursive                     // how am I thinking about it?
	LevelRegenerative                  // how can I improve?
	LevelTranscendent                  // can I build a new framework?
)

// Sequence is the only legal level ordering.
var Sequence = [4]Level{LevelReflexive, LevelRecursive, LevelRegenerative, LevelTranscendent}

func (l Level) String() string {
	switch l {
	case LevelReflexive:
		return "reflexive"
	case LevelRecursive:
		return "recursive"
	case LevelRegenerative:
		return "regenerative"
	case LevelTranscendent:
		return "transcendent"
	default:
		return "unknown"
	}
}

// LevelResult is the part every level produces: insight strings and a
// certainty score.
type LevelResult struct {
	Level     Level    `json:"level"`
	Insights  []string `json:"insights"`
	Certainty float64  `json:"certainty"`
}

// ReflexiveResult wraps the depth-1 self-analysis of the incoming query.
type ReflexiveResult struct {
	LevelResult
	Analysis *reasoning.Result `json:"analysis"`
}

// RecursiveResult describes the thinking patterns observed in the reflexive
// pass. FixedPoints are pattern types unchanged by one more refinement pass;
// Inefficient are pattern types whose fixed certainty weight is below the
// certainty threshold.
type RecursiveResult struct {
	LevelResult
	PatternTypes   []string `json:"pattern_types"`
	RecursionDepth int      `json:"recursion_depth"`
	FixedPoints    []string `json:"fixed_points"`
	Inefficient    []string `json:"inefficient_patterns"`
}

// RegenerativeResult carries the improvement proposals for this cycle.
type RegenerativeResult struct {
	LevelResult
	Proposals     []Proposal `json:"improvements"`
	PotentialGain float64    `json:"potential_gain"`
}

// Framework names a new thinking framework synthesized on breakthrough.
type Framework struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TranscendentResult records whether the rolling emergence history cleared
// the breakthrough threshold.
type TranscendentResult struct {
	LevelResult
	Breakthrough bool       `json:"breakthrough"`
	AvgEmergence float64    `json:"avg_emergence"`
	Framework    *Framework `json:"framework,omitempty"`
}
