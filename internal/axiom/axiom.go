// Package axiom implements axiomatic grounding: every statement entering the
// engine is attached to a proof built from a fixed table of foundational
// axioms, with a certainty score derived from the proof structure.
package axiom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Axiom is a foundational statement with an assigned base certainty.
// The table is fixed at startup and never mutated.
type Axiom struct {
	ID              string   `json:"id"`
	Statement       string   `json:"statement"`
	Certainty       float64  `json:"certainty"`
	Category        string   `json:"category"`
	Transformations []string `json:"transformations"`
}

// AllowsTransformation reports whether the transformation kind is part of
// this axiom's static vocabulary.
func (a Axiom) AllowsTransformation(kind string) bool {
	for _, t := range a.Transformations {
		if t == kind {
			return true
		}
	}
	return false
}

// DefaultAxioms returns the six foundational axioms in table order.
func DefaultAxioms() []Axiom {
	return []Axiom{
		{
			ID:              "A1",
			Statement:       "Conscious experience exists",
			Certainty:       1.0,
			Category:        "ontological",
			Transformations: []string{"existential", "instantiation"},
		},
		{
			ID:              "A2",
			Statement:       "A = A (Identity)",
			Certainty:       1.0,
			Category:        "logical",
			Transformations: []string{"identity", "reflexive", "symmetric", "transitive"},
		},
		{
			ID:              "A3",
			Statement:       "Not (A and not-A)",
			Certainty:       1.0,
			Category:        "logical",
			Transformations: []string{"negation", "contradiction_elimination"},
		},
		{
			ID:              "A4",
			Statement:       "Either A or not-A",
			Certainty:       1.0,
			Category:        "logical",
			Transformations: []string{"disjunction", "choice", "partition"},
		},
		{
			ID:              "A5",
			Statement:       "Information is conserved",
			Certainty:       0.99,
			Category:        "physical",
			Transformations: []string{"conservation", "invariance", "symmetry"},
		},
		{
			ID:              "A6",
			Statement:       "Emergence exists",
			Certainty:       0.95,
			Category:        "systemic",
			Transformations: []string{"composition", "hierarchy", "emergence_detection", "emergence_potential"},
		},
	}
}

// ProofStep is one inference citing an axiom. Steps are produced only by the
// Grounder and are immutable afterwards.
type ProofStep struct {
	AxiomID        string  `json:"axiom"`
	Transformation string  `json:"transformation"`
	Result         string  `json:"result"`
	Certainty      float64 `json:"certainty"`
}

// GroundedStatement is a statement together with its ordered proof and the
// aggregate certainty. The hash is a deterministic digest over the statement
// and the ordered step contents; identical inputs hash identically.
type GroundedStatement struct {
	Statement string      `json:"statement"`
	Steps     []ProofStep `json:"proof_steps"`
	Certainty float64     `json:"certainty"`
	Hash      string      `json:"hash"`
}

// AxiomsUsed returns the distinct axiom ids cited by the proof, in first-use
// order.
func (g GroundedStatement) AxiomsUsed() []string {
	seen := make(map[string]bool, len(g.Steps))
	var used []string
	for _, s := range g.Steps {
		if !seen[s.AxiomID] {
			seen[s.AxiomID] = true
			used = append(used, s.AxiomID)
		}
	}
	return used
}

// hashProof digests the statement plus the ordered step contents. Wall-clock
// fields never participate, so two constructions from the same inputs are
// hash-identical.
func hashProof(statement string, steps []ProofStep) string {
	var b strings.Builder
	b.WriteString(statement)
	for _, s := range steps {
		fmt.Fprintf(&b, "|%s:%s:%s", s.AxiomID, s.Transformation, s.Result)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
