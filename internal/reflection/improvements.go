package reflection

import (
	"fmt"
	"time"
)

// ProposalKind is the closed set of improvement kinds the regenerative level
// can emit. Proposals are pure data; execution goes through the engine's
// static handler table.
type ProposalKind string

const (
	ProposalIncreaseDepth    ProposalKind = "increase_reasoning_depth"
	ProposalImproveCertainty ProposalKind = "improve_certainty"
	ProposalOptimizePatterns ProposalKind = "optimize_patterns"
)

// Proposal is one improvement suggestion. Only the fields relevant to its
// kind are populated.
type Proposal struct {
	Kind      ProposalKind `json:"type"`
	Impact    float64      `json:"impact"`
	FromDepth int          `json:"from_depth,omitempty"`
	ToDepth   int          `json:"to_depth,omitempty"`
	Current   float64      `json:"current,omitempty"`
	Target    float64      `json:"target,omitempty"`
	Patterns  []string     `json:"patterns,omitempty"`
}

// Handler executes one proposal kind against the engine's tunables. The
// returned string describes the applied change.
type Handler func(p Proposal) (string, error)

// ImprovementLogEntry records one handler invocation. Failures are captured
// here and never propagate out of a reflection cycle.
type ImprovementLogEntry struct {
	Kind      ProposalKind `json:"improvement"`
	Result    string       `json:"result,omitempty"`
	Err       string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// defaultHandlers builds the static dispatch table over the engine's
// baselines.
func (e *Engine) defaultHandlers() map[ProposalKind]Handler {
	return map[ProposalKind]Handler{
		ProposalIncreaseDepth: func(p Proposal) (string, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if p.ToDepth > maxReasoningDepth {
				return "", fmt.Errorf("target depth %d exceeds bound %d", p.ToDepth, maxReasoningDepth)
			}
			e.baselines.ReasoningDepth = p.ToDepth
			return fmt.Sprintf("reasoning depth raised to %d", p.ToDepth), nil
		},
		ProposalImproveCertainty: func(p Proposal) (string, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.certaintyAdjustments++
			return fmt.Sprintf("certainty tuning scheduled: %.2f -> %.2f", p.Current, p.Target), nil
		},
		ProposalOptimizePatterns: func(p Proposal) (string, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.optimizedPatterns = append(e.optimizedPatterns, p.Patterns...)
			return fmt.Sprintf("flagged %d pattern(s) for optimization", len(p.Patterns)), nil
		},
	}
}

// applyImprovements dispatches every proposal through the handler table and
// returns the log. A missing handler or a handler error is logged, not
// raised.
func (e *Engine) applyImprovements(proposals []Proposal) []ImprovementLogEntry {
	log := make([]ImprovementLogEntry, 0, len(proposals))
	for _, p := range proposals {
		entry := ImprovementLogEntry{Kind: p.Kind, Timestamp: e.now()}
		handler, ok := e.handlers[p.Kind]
		if !ok {
			entry.Err = fmt.Sprintf("no handler registered for %s", p.Kind)
			log = append(log, entry)
			continue
		}
		result, err := handler(p)
		if err != nil {
			entry.Err = err.Error()
		} else {
			entry.Result = result
		}
		log = append(log, entry)
	}
	return log
}
