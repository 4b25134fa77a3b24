package reasoning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"axiomind/internal/concept"
)

// Lexical markers scanned over the stringified component set. Matching the
// grounding layer's style, but with the token-pair forms used here.
var contradictionMarkers = []string{
	"not and", "and not", "but not", "however not",
	"false true", "true false", "yes no", "no yes",
}

const (
	// DefaultMaxDepth bounds recursive refinement.
	DefaultMaxDepth = 10

	// emergenceCap caps the reasoning-layer emergence score. The
	// reflection layer uses its own uncapped formula.
	emergenceCap = 5.0

	// maxImplications bounds graph exploration per refinement.
	maxImplications = 5
)

// Inference is one direct conclusion from base reasoning.
type Inference struct {
	Kind    string   `json:"kind"` // entity_known, relation_valid
	Subject string   `json:"subject"`
	Related []string `json:"related,omitempty"`
}

// Pattern is a recognized reasoning structure with a fixed certainty weight.
type Pattern struct {
	Type        string  `json:"type"` // implication, quantified, action
	Certainty   float64 `json:"certainty"`
	Description string  `json:"description"`
}

// BaseResult holds the outcome of the non-recursive reasoning pass.
type BaseResult struct {
	Inferences      []Inference `json:"direct_inferences"`
	Contradictions  []string    `json:"contradictions"`
	Unknowns        []string    `json:"unknowns"`
	Patterns        []Pattern   `json:"patterns_found"`
	NeedsRefinement bool        `json:"needs_refinement"`
}

// Refinement is one synthesized record from the recursive pass.
type Refinement struct {
	Kind    string `json:"kind"` // hypothesis, resolution, implication
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// RefinementResult is the refinement subtree of a reasoning result.
// MaxDepthReached is a sentinel, not an error: the budget ran out while
// unresolved work remained.
type RefinementResult struct {
	Refinements     []Refinement `json:"refinements"`
	Depth           int          `json:"depth"`
	NovelInsights   []Refinement `json:"novel_insights"`
	MaxDepthReached bool         `json:"max_depth_reached,omitempty"`
}

// Result is an immutable reasoning outcome. Hash is reproducible from the
// base and refined content alone.
type Result struct {
	Query      string            `json:"query"`
	Components Components        `json:"components"`
	Base       BaseResult        `json:"base_result"`
	Refined    *RefinementResult `json:"refined,omitempty"`
	DepthUsed  int               `json:"depth_used"`
	Certainty  float64           `json:"certainty"`
	Emergence  float64           `json:"emergence"`
	Hash       string            `json:"hash"`
}

// Insights renders the result's notable content as strings for the
// reflection layer.
func (r *Result) Insights() []string {
	var out []string
	for _, inf := range r.Base.Inferences {
		out = append(out, fmt.Sprintf("%s: %s", inf.Kind, inf.Subject))
	}
	for _, p := range r.Base.Patterns {
		out = append(out, p.Description)
	}
	if r.Refined != nil {
		for _, n := range r.Refined.NovelInsights {
			out = append(out, n.Content)
		}
	}
	return out
}

// Stats reports engine activity.
type Stats struct {
	QueriesProcessed int     `json:"queries_processed"`
	CacheHits        int     `json:"cache_hits"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	CacheSize        int     `json:"cache_size"`
	ConceptCount     int     `json:"concept_count"`
	AvgDepth         float64 `json:"avg_depth"`
}

// Config configures the engine.
type Config struct {
	MaxDepth  int
	Extractor ComponentExtractor
}

// Engine performs recursive reasoning over a concept graph, memoizing
// results by normalized (query, context, depth).
type Engine struct {
	graph     *concept.Kernel
	extractor ComponentExtractor
	maxDepth  int

	mu         sync.Mutex
	cache      map[string]*Result
	queries    int
	cacheHits  int
	totalDepth int
}

// NewEngine builds an engine over the given concept graph. Zero-value config
// fields get defaults (depth 10, lexical extractor).
func NewEngine(graph *concept.Kernel, cfg Config) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Extractor == nil {
		cfg.Extractor = LexicalExtractor{}
	}
	return &Engine{
		graph:     graph,
		extractor: cfg.Extractor,
		maxDepth:  cfg.MaxDepth,
		cache:     make(map[string]*Result),
	}
}

// Graph exposes the underlying concept kernel.
func (e *Engine) Graph() *concept.Kernel { return e.graph }

// MaxDepth returns the configured recursion bound.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// ReasonAbout reasons over the query at the given depth. Results are
// memoized: repeated calls with identical arguments return the cached
// result. The call never fails; depth is clamped to [1, MaxDepth].
func (e *Engine) ReasonAbout(query string, context map[string]any, depth int) *Result {
	if depth < 1 {
		depth = 1
	}
	if depth > e.maxDepth {
		depth = e.maxDepth
	}

	key := cacheKey(query, context, depth)

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.cacheHits++
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	result := e.reason(query, depth)

	e.mu.Lock()
	e.cache[key] = result
	e.queries++
	e.totalDepth += depth
	e.mu.Unlock()

	return result
}

// GetStats returns activity counters and cache occupancy.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		QueriesProcessed: e.queries,
		CacheHits:        e.cacheHits,
		CacheSize:        len(e.cache),
		ConceptCount:     e.graph.ConceptCount(),
	}
	if total := e.queries + e.cacheHits; total > 0 {
		s.CacheHitRate = float64(e.cacheHits) / float64(total)
	}
	if e.queries > 0 {
		s.AvgDepth = float64(e.totalDepth) / float64(e.queries)
	}
	return s
}

func (e *Engine) reason(query string, depth int) *Result {
	components := e.extractor.Extract(query)
	base := e.baseReasoning(query, components)

	var refined *RefinementResult
	if base.NeedsRefinement && depth > 1 {
		refined = e.refine(base, depth-1)
	}

	result := &Result{
		Query:      query,
		Components: components,
		Base:       base,
		Refined:    refined,
		DepthUsed:  depth,
		Certainty:  certainty(base, refined),
		Emergence:  emergence(base, refined, depth),
	}
	result.Hash = hashResult(base, refined)
	return result
}

func (e *Engine) baseReasoning(query string, components Components) BaseResult {
	var base BaseResult

	for _, entity := range components.Entities {
		if e.graph.Known(entity) {
			base.Inferences = append(base.Inferences, Inference{
				Kind:    "entity_known",
				Subject: entity,
				Related: e.graph.Related(entity),
			})
		} else {
			base.Unknowns = append(base.Unknowns, entity)
		}
	}

	for _, relation := range components.Relations {
		if relationWords[relation] {
			base.Inferences = append(base.Inferences, Inference{
				Kind:    "relation_valid",
				Subject: relation,
			})
		} else {
			base.Contradictions = append(base.Contradictions,
				fmt.Sprintf("invalid relation %q", relation))
		}
	}

	if scanContradictions(components) {
		base.Contradictions = append(base.Contradictions, "logical contradiction detected")
	}

	base.Patterns = findPatterns(query, components)
	base.NeedsRefinement = len(base.Unknowns) > 0 ||
		len(base.Contradictions) > 0 ||
		len(base.Patterns) == 0

	return base
}

// refine resolves unknowns and contradictions pass by pass until the budget
// is exhausted or a pass leaves nothing unresolved, then explores graph
// implications from the known entities.
func (e *Engine) refine(base BaseResult, budget int) *RefinementResult {
	res := &RefinementResult{}

	unknowns := base.Unknowns
	contradictions := base.Contradictions
	for len(unknowns) > 0 || len(contradictions) > 0 {
		if res.Depth >= budget {
			res.MaxDepthReached = true
			break
		}
		res.Depth++

		for _, unknown := range unknowns {
			res.Refinements = append(res.Refinements, Refinement{
				Kind:    "hypothesis",
				Subject: unknown,
				Content: fmt.Sprintf("Hypothesis: %s is a new concept pending classification", unknown),
			})
		}
		for _, contradiction := range contradictions {
			res.Refinements = append(res.Refinements, Refinement{
				Kind:    "resolution",
				Subject: contradiction,
				Content: fmt.Sprintf("Resolution: %s resolved by scope separation", contradiction),
			})
		}
		// Synthesized hypotheses and resolutions close the open items;
		// a further pass has nothing left to work on.
		unknowns, contradictions = nil, nil
	}

	res.Refinements = append(res.Refinements, e.exploreImplications(base)...)
	res.NovelInsights = novelInsights(res.Refinements)
	return res
}

// exploreImplications walks one hop plus the rule-derived two-hop
// implications from each known entity, bounded to keep refinement cheap.
func (e *Engine) exploreImplications(base BaseResult) []Refinement {
	var out []Refinement
	for _, inf := range base.Inferences {
		if inf.Kind != "entity_known" {
			continue
		}
		targets := append([]string{}, inf.Related...)
		targets = append(targets, e.graph.Implied(inf.Subject)...)
		for _, target := range targets {
			if len(out) >= maxImplications {
				return out
			}
			out = append(out, Refinement{
				Kind:    "implication",
				Subject: inf.Subject,
				Content: fmt.Sprintf("Implication: %s relates to %s", inf.Subject, target),
			})
		}
	}
	return out
}

// novelInsights deduplicates refinements by a digest of their content.
func novelInsights(refinements []Refinement) []Refinement {
	seen := make(map[string]bool, len(refinements))
	var novel []Refinement
	for _, r := range refinements {
		sum := sha256.Sum256([]byte(r.Content))
		digest := hex.EncodeToString(sum[:8])
		if !seen[digest] {
			seen[digest] = true
			novel = append(novel, r)
		}
	}
	return novel
}

func scanContradictions(components Components) bool {
	joined := components.tokens()
	for _, marker := range contradictionMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

func findPatterns(query string, components Components) []Pattern {
	var patterns []Pattern

	lower := " " + strings.ToLower(query) + " "
	if strings.Contains(lower, " if ") && strings.Contains(lower, " then ") {
		patterns = append(patterns, Pattern{
			Type:        "implication",
			Certainty:   0.8,
			Description: "If-then logical structure",
		})
	}
	if len(components.Quantifiers) > 0 {
		patterns = append(patterns, Pattern{
			Type:        "quantified",
			Certainty:   0.7,
			Description: fmt.Sprintf("Quantified with %v", components.Quantifiers),
		})
	}
	if len(components.Actions) > 0 {
		limit := len(components.Actions)
		if limit > 2 {
			limit = 2
		}
		patterns = append(patterns, Pattern{
			Type:        "action",
			Certainty:   0.6,
			Description: fmt.Sprintf("Action-oriented: %v", components.Actions[:limit]),
		})
	}
	return patterns
}

// certainty scores the result: a 0.7 base, penalties for unknowns and
// contradictions, bonuses for refinements and patterns, clamped to
// [0.1, 1.0].
func certainty(base BaseResult, refined *RefinementResult) float64 {
	c := 0.7
	c -= 0.1 * float64(len(base.Unknowns))
	c -= 0.2 * float64(len(base.Contradictions))

	if refined != nil {
		bonus := 0.05 * float64(len(refined.Refinements))
		if bonus > 0.3 {
			bonus = 0.3
		}
		c += bonus
	}
	c += 0.05 * float64(len(base.Patterns))

	if c < 0.1 {
		c = 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// emergence estimates novelty: log2(1+unique insights) scaled by depth and
// the square root of structural complexity, capped at 5.0. No refinement or
// no novel insights means zero.
func emergence(base BaseResult, refined *RefinementResult, depth int) float64 {
	if refined == nil || len(refined.NovelInsights) == 0 {
		return 0
	}

	unique := float64(len(refined.NovelInsights))
	depthFactor := 1.0 + 0.1*float64(depth)
	complexity := float64(len(base.Patterns) + len(base.Inferences))
	if complexity < 1 {
		complexity = 1
	}

	score := math.Log2(1+unique) * depthFactor * math.Sqrt(complexity)
	if score > emergenceCap {
		score = emergenceCap
	}
	return score
}

// cacheKey derives the memoization key from full normalized content, so
// distinct (query, context, depth) triples can never collide.
func cacheKey(query string, context map[string]any, depth int) string {
	normalized := strings.Join(strings.Fields(query), " ")
	ctxJSON := canonicalContext(context)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", normalized, ctxJSON, depth)))
	return hex.EncodeToString(sum[:])
}

// canonicalContext serializes the context with sorted keys so semantically
// identical maps normalize identically.
func canonicalContext(context map[string]any) string {
	if len(context) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := json.Marshal(context[k])
		if err != nil {
			v = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", context[k])))
		}
		fmt.Fprintf(&b, "%q:%s", k, v)
	}
	b.WriteByte('}')
	return b.String()
}

func hashResult(base BaseResult, refined *RefinementResult) string {
	payload, err := json.Marshal(struct {
		Base    BaseResult        `json:"base"`
		Refined *RefinementResult `json:"refined"`
	}{base, refined})
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v|%+v", base, refined))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
