// Package concept provides the concept graph backing the reasoning engine.
// The graph is held in a Google Mangle fact store: concepts and their links
// are plain facts, and multi-hop implications are derived by a Datalog rule
// rather than hand-written traversal.
package concept

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// schema declares the graph predicates. implied/2 is derived: a concept
// implies everything reachable in exactly two hops.
const schema = `
Decl concept(Name).
Decl related(From, To).
Decl implied(From, To).

implied(X, Z) :- related(X, Y), related(Y, Z).
`

// defaultOperators seed the graph so queries over bare logical vocabulary
// resolve as known concepts.
var defaultOperators = []string{
	"AND", "OR", "NOT", "IMPLIES", "IFF",
	"FORALL", "EXISTS", "EQUALS", "NOT_EQUALS",
}

// Kernel is the Mangle-backed concept graph. Facts are inserted through the
// typed predicate index and rules re-evaluated after every mutation, so
// derived implications are always current when read.
type Kernel struct {
	mu             sync.RWMutex
	store          factstore.ConcurrentFactStore
	baseStore      factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
	concepts       map[string]bool
}

// NewKernel compiles the graph schema and seeds the default operator
// concepts.
func NewKernel() (*Kernel, error) {
	unit, err := parse.Unit(strings.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("parse concept schema: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze concept schema: %w", err)
	}

	baseStore := factstore.NewSimpleInMemoryStore()
	k := &Kernel{
		store:          factstore.NewConcurrentFactStore(baseStore),
		baseStore:      baseStore,
		programInfo:    programInfo,
		predicateIndex: make(map[string]ast.PredicateSym, len(programInfo.Decls)),
		concepts:       make(map[string]bool),
	}
	for sym := range programInfo.Decls {
		k.predicateIndex[sym.Symbol] = sym
	}

	for _, op := range defaultOperators {
		if err := k.AddConcept(op); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// AddConcept registers a concept node.
func (k *Kernel) AddConcept(name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.insertLocked("concept", name); err != nil {
		return err
	}
	k.concepts[name] = true
	return k.evalLocked()
}

// AddRelation links two concepts, registering either end if unknown.
func (k *Kernel) AddRelation(from, to string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, name := range []string{from, to} {
		if !k.concepts[name] {
			if err := k.insertLocked("concept", name); err != nil {
				return err
			}
			k.concepts[name] = true
		}
	}
	if err := k.insertLocked("related", from, to); err != nil {
		return err
	}
	return k.evalLocked()
}

// Known reports whether the concept has been registered.
func (k *Kernel) Known(name string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.concepts[name]
}

// Related returns the direct (one-hop) neighbors of a concept.
func (k *Kernel) Related(name string) []string {
	return k.secondArgs("related", name)
}

// Implied returns the Datalog-derived two-hop implications of a concept.
func (k *Kernel) Implied(name string) []string {
	return k.secondArgs("implied", name)
}

// ConceptCount returns the number of registered concepts.
func (k *Kernel) ConceptCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.concepts)
}

// secondArgs scans the predicate's facts and collects the second argument of
// every fact whose first argument matches name.
func (k *Kernel) secondArgs(predicate, name string) []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	sym, ok := k.predicateIndex[predicate]
	if !ok {
		return nil
	}
	var out []string
	_ = k.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		if len(atom.Args) != 2 {
			return nil
		}
		from, ok := constantString(atom.Args[0])
		if !ok || from != name {
			return nil
		}
		if to, ok := constantString(atom.Args[1]); ok {
			out = append(out, to)
		}
		return nil
	})
	return out
}

func (k *Kernel) insertLocked(predicate string, args ...string) error {
	sym, ok := k.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("predicate %s is not declared in the concept schema", predicate)
	}
	if len(args) != sym.Arity {
		return fmt.Errorf("predicate %s expects %d args, got %d", predicate, sym.Arity, len(args))
	}
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		terms[i] = ast.String(a)
	}
	k.store.Add(ast.Atom{Predicate: sym, Args: terms})
	return nil
}

func (k *Kernel) evalLocked() error {
	if _, err := mengine.EvalProgramWithStats(k.programInfo, k.store); err != nil {
		return fmt.Errorf("evaluate concept rules: %w", err)
	}
	return nil
}

func constantString(term ast.BaseTerm) (string, bool) {
	c, ok := term.(ast.Constant)
	if !ok {
		return "", false
	}
	switch c.Type {
	case ast.StringType, ast.NameType:
		return c.Symbol, true
	default:
		return "", false
	}
}
