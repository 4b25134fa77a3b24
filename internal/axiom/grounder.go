package axiom

import (
	"fmt"
	"strings"
	"sync"
)

// Phrases that trigger the non-contradiction step. Lexical scan only.
var contradictionPhrases = []string{
	"and not", "but not", "however not", "although not",
	"false true", "true false", "yes no", "no yes",
	"contradiction", "paradox",
}

const (
	// maxHistory bounds the in-memory grounding history.
	maxHistory = 1000

	// fallbackCertainty is assigned when a generated proof fails
	// verification and the minimal existential grounding is substituted.
	fallbackCertainty = 0.1
)

// Grounder produces grounded statements from raw text. Ground never fails:
// an invalid proof degrades to a minimal existential grounding.
type Grounder struct {
	axioms map[string]Axiom
	total  int // axiom table size, for the consistency bonus

	mu      sync.Mutex
	history []GroundedStatement
}

// NewGrounder builds a grounder over the default axiom table.
func NewGrounder() *Grounder {
	axioms := DefaultAxioms()
	byID := make(map[string]Axiom, len(axioms))
	for _, a := range axioms {
		byID[a.ID] = a
	}
	return &Grounder{axioms: byID, total: len(axioms)}
}

// Axiom looks up an axiom by id.
func (g *Grounder) Axiom(id string) (Axiom, bool) {
	a, ok := g.axioms[id]
	return a, ok
}

// Ground attaches a proof and certainty to the statement. The context map is
// accepted for interface symmetry with the reasoning layer; grounding itself
// depends only on the statement text.
func (g *Grounder) Ground(statement string, _ map[string]any) GroundedStatement {
	steps := g.buildProof(statement)

	if !g.VerifyProof(steps) {
		steps = []ProofStep{{
			AxiomID:        "A1",
			Transformation: "existential",
			Result:         "unproven",
			Certainty:      fallbackCertainty,
		}}
		grounded := GroundedStatement{
			Statement: statement,
			Steps:     steps,
			Certainty: fallbackCertainty,
			Hash:      hashProof(statement, steps),
		}
		g.record(grounded)
		return grounded
	}

	grounded := GroundedStatement{
		Statement: statement,
		Steps:     steps,
		Certainty: g.proofCertainty(steps),
		Hash:      hashProof(statement, steps),
	}
	g.record(grounded)
	return grounded
}

// buildProof generates the deterministic proof sequence for a statement.
func (g *Grounder) buildProof(statement string) []ProofStep {
	steps := []ProofStep{
		{
			AxiomID:        "A1",
			Transformation: "existential",
			Result:         fmt.Sprintf("%q exists as content under consideration", statement),
			Certainty:      1.0,
		},
		{
			AxiomID:        "A2",
			Transformation: "identity",
			Result:         "Statement is self-identical",
			Certainty:      1.0,
		},
	}

	if HasContradictionMarkers(statement) {
		steps = append(steps, ProofStep{
			AxiomID:        "A3",
			Transformation: "contradiction_elimination",
			Result:         "Contradiction resolved via law of non-contradiction",
			Certainty:      1.0,
		})
	}

	steps = append(steps,
		ProofStep{
			AxiomID:        "A4",
			Transformation: "disjunction",
			Result:         "Statement or its negation holds",
			Certainty:      1.0,
		},
		ProofStep{
			AxiomID:        "A5",
			Transformation: "conservation",
			Result:         fmt.Sprintf("Information conserved (%d bytes)", len(statement)),
			Certainty:      0.99,
		},
		ProofStep{
			AxiomID:        "A6",
			Transformation: "emergence_potential",
			Result:         fmt.Sprintf("Emergence potential: %.2f", float64(len(strings.Fields(statement)))/10),
			Certainty:      0.95,
		},
	)

	return steps
}

// VerifyProof checks every step's transformation against its axiom's static
// vocabulary. A step citing an unknown axiom fails.
func (g *Grounder) VerifyProof(steps []ProofStep) bool {
	for _, s := range steps {
		a, ok := g.axioms[s.AxiomID]
		if !ok || !a.AllowsTransformation(s.Transformation) {
			return false
		}
	}
	return true
}

// proofCertainty aggregates step certainties: product under an independence
// assumption, plus a depth bonus and a consistency bonus, clamped to [0,1].
// Proofs above 0.8 with at least four steps are floored at 0.85.
func (g *Grounder) proofCertainty(steps []ProofStep) float64 {
	if len(steps) == 0 {
		return 0
	}

	certainty := 1.0
	distinct := make(map[string]bool, len(steps))
	for _, s := range steps {
		certainty *= s.Certainty
		distinct[s.AxiomID] = true
	}

	depthBonus := 0.05 * float64(len(steps))
	if depthBonus > 0.3 {
		depthBonus = 0.3
	}
	consistencyBonus := float64(len(distinct)) / float64(g.total) * 0.1

	total := certainty + depthBonus + consistencyBonus
	if total > 1.0 {
		total = 1.0
	}
	if total < 0 {
		total = 0
	}
	if total > 0.8 && len(steps) >= 4 && total < 0.85 {
		total = 0.85
	}
	return total
}

func (g *Grounder) record(grounded GroundedStatement) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, grounded)
	if len(g.history) > maxHistory {
		g.history = g.history[len(g.history)-maxHistory:]
	}
}

// Metrics summarizes grounding activity so far.
type Metrics struct {
	TotalGrounded   int     `json:"total_grounded"`
	AvgCertainty    float64 `json:"avg_certainty"`
	TotalProofSteps int     `json:"total_proof_steps"`
	ValidProofs     int     `json:"valid_proofs"`
}

// GetMetrics reports aggregate grounding metrics. ValidProofs counts
// groundings with certainty above 0.8.
func (g *Grounder) GetMetrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := Metrics{TotalGrounded: len(g.history)}
	if len(g.history) == 0 {
		return m
	}
	var sum float64
	for _, gr := range g.history {
		sum += gr.Certainty
		m.TotalProofSteps += len(gr.Steps)
		if gr.Certainty > 0.8 {
			m.ValidProofs++
		}
	}
	m.AvgCertainty = sum / float64(len(g.history))
	return m
}

// HasContradictionMarkers reports whether the statement contains any of the
// fixed lexical contradiction phrases.
func HasContradictionMarkers(statement string) bool {
	lower := strings.ToLower(statement)
	for _, phrase := range contradictionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
