// Package engine wires the grounding, reasoning, reflection, and convergence
// layers into one system and owns the state that accumulates across calls.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"axiomind/internal/axiom"
	"axiomind/internal/concept"
	"axiomind/internal/convergence"
	"axiomind/internal/reasoning"
	"axiomind/internal/reflection"
)

const (
	// maxPaths bounds the recorded path history for the safety screen.
	maxPaths = 1000

	// baseDepth is the floor of the derived reasoning depth.
	baseDepth = 2
)

// Words that fail the lexical harm screen.
var harmWords = []string{"harm", "hurt", "kill", "steal"}

// SafetyChecks is the per-path safety screen. All four must hold for the
// path to count as safe.
type SafetyChecks struct {
	ProofValid       bool `json:"proof_valid"`
	NoContradictions bool `json:"no_contradictions"`
	NoHarmWords      bool `json:"no_harm_words"`
	PathsBounded     bool `json:"paths_bounded"`
}

// Passed reports whether every check held.
func (c SafetyChecks) Passed() bool {
	return c.ProofValid && c.NoContradictions && c.NoHarmWords && c.PathsBounded
}

// PathRecord is the complete trace of one processed query.
type PathRecord struct {
	ID                 string             `json:"path_id"`
	Query              string             `json:"query"`
	GroundingCertainty float64            `json:"grounding_certainty"`
	GroundingHash      string             `json:"grounding_hash"`
	Depth              int                `json:"reasoning_depth"`
	Certainty          float64            `json:"certainty"`
	Emergence          float64            `json:"emergence"`
	CycleID            string             `json:"cycle_id"`
	LambdaImpact       float64            `json:"lambda_impact"`
	LambdaTotal        float64            `json:"lambda_total"`
	Safety             SafetyChecks       `json:"safety"`
	Convergence        convergence.Status `json:"convergence"`
	Duration           time.Duration      `json:"duration"`
	Timestamp          time.Time          `json:"timestamp"`
	Hash               string             `json:"hash"`
}

// ReflectionReport is what a standalone Reflect call returns: the cycle plus
// the state it produced.
type ReflectionReport struct {
	Cycle        *reflection.Cycle `json:"cycle"`
	LambdaTotal  float64           `json:"lambda_total"`
	LambdaGrowth float64           `json:"lambda_growth"`
	Emergence    float64           `json:"emergence"`
	Improvements int               `json:"improvements_applied"`
}

// Metrics is the system-wide aggregate view.
type Metrics struct {
	LambdaTotal           float64            `json:"lambda_total"`
	QueriesProcessed      int                `json:"queries_processed"`
	CyclesCompleted       int                `json:"cycles_completed"`
	PathsRecorded         int                `json:"paths_recorded"`
	AvgGroundingCertainty float64            `json:"avg_grounding_certainty"`
	AvgEmergence          float64            `json:"avg_emergence"`
	AvgReasoningDepth     float64            `json:"avg_reasoning_depth"`
	AvgCertainty          float64            `json:"avg_certainty"`
	Grounding             axiom.Metrics      `json:"grounding"`
	Reasoning             reasoning.Stats    `json:"reasoning"`
	Convergence           convergence.Status `json:"convergence"`
}

// Config tunes the system.
type Config struct {
	MaxReasoningDepth int
	InitialLambda     float64
}

// System is the full pipeline: ground, reason, reflect, converge.
type System struct {
	grounder  *axiom.Grounder
	graph     *concept.Kernel
	reasoner  *reasoning.Engine
	reflector *reflection.Engine
	state     *State
	logger    *zap.Logger
	now       func() time.Time
}

// NewSystem builds the pipeline. Kernel construction is the only fallible
// step. A nil logger is replaced with a no-op logger.
func NewSystem(cfg Config, logger *zap.Logger) (*System, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InitialLambda <= 0 {
		cfg.InitialLambda = DefaultInitialLambda
	}

	graph, err := concept.NewKernel()
	if err != nil {
		return nil, fmt.Errorf("building concept kernel: %w", err)
	}
	reasoner := reasoning.NewEngine(graph, reasoning.Config{MaxDepth: cfg.MaxReasoningDepth})

	return &System{
		grounder:  axiom.NewGrounder(),
		graph:     graph,
		reasoner:  reasoner,
		reflector: reflection.NewEngine(reasoner, logger),
		state:     NewState(cfg.InitialLambda),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Grounder exposes the grounding layer.
func (s *System) Grounder() *axiom.Grounder { return s.grounder }

// Reasoner exposes the reasoning layer.
func (s *System) Reasoner() *reasoning.Engine { return s.reasoner }

// Graph exposes the concept kernel for mutation.
func (s *System) Graph() *concept.Kernel { return s.graph }

// State exposes the accumulator.
func (s *System) State() *State { return s.state }

// Process runs the full pipeline over one query: ground the statement,
// reason at a depth derived from query complexity, run a reflection cycle
// against the current state, fold the cycle's Λ impact in, screen the path
// for safety, and record the finished trace. Process never fails.
func (s *System) Process(query string, context map[string]any) *PathRecord {
	start := s.now()

	grounded := s.grounder.Ground(query, context)
	depth := optimalDepth(query)
	reasoned := s.reasoner.ReasonAbout(query, context, depth)

	cycle := s.reflector.Reflect(query, context, s.state.Snapshot())
	lambdaTotal := s.state.ApplyCycle(cycle)

	path := PathRecord{
		ID:                 uuid.NewString(),
		Query:              query,
		GroundingCertainty: grounded.Certainty,
		GroundingHash:      grounded.Hash,
		Depth:              reasoned.DepthUsed,
		Certainty:          reasoned.Certainty,
		Emergence:          reasoned.Emergence,
		CycleID:            cycle.ID,
		LambdaImpact:       cycle.LambdaImpact,
		LambdaTotal:        lambdaTotal,
		Convergence:        convergence.Detect(s.state.LambdaHistory()),
		Timestamp:          start,
	}
	path.Safety = SafetyChecks{
		ProofValid:       s.grounder.VerifyProof(grounded.Steps),
		NoContradictions: len(reasoned.Base.Contradictions) == 0,
		NoHarmWords:      !containsHarmWords(query),
		PathsBounded:     s.state.PathCount() < maxPaths,
	}
	path.Duration = s.now().Sub(start)
	path.Hash = hashPath(&path, grounded.Hash, reasoned.Hash)

	s.state.RecordPath(path)

	s.logger.Debug("query processed",
		zap.String("path_id", path.ID),
		zap.Int("depth", path.Depth),
		zap.Float64("certainty", path.Certainty),
		zap.Float64("lambda_total", path.LambdaTotal),
		zap.Bool("safe", path.Safety.Passed()))

	return &path
}

// Reflect runs one reflection cycle outside the query pipeline and folds it
// into the state.
func (s *System) Reflect(query string, context map[string]any) *ReflectionReport {
	before := s.state.LambdaTotal()
	cycle := s.reflector.Reflect(query, context, s.state.Snapshot())
	after := s.state.ApplyCycle(cycle)

	return &ReflectionReport{
		Cycle:        cycle,
		LambdaTotal:  after,
		LambdaGrowth: after - before,
		Emergence:    cycle.Emergence,
		Improvements: len(cycle.ImprovementLog),
	}
}

// GetMetrics assembles the aggregate view across all layers.
func (s *System) GetMetrics() Metrics {
	avgGrounding, avgEmergence, avgDepth, avgCertainty := s.state.pathAverages()
	return Metrics{
		LambdaTotal:           s.state.LambdaTotal(),
		QueriesProcessed:      s.state.PathCount(),
		CyclesCompleted:       s.state.CycleCount(),
		PathsRecorded:         s.state.PathCount(),
		AvgGroundingCertainty: avgGrounding,
		AvgEmergence:          avgEmergence,
		AvgReasoningDepth:     avgDepth,
		AvgCertainty:          avgCertainty,
		Grounding:             s.grounder.GetMetrics(),
		Reasoning:             s.reasoner.GetStats(),
		Convergence:           convergence.Detect(s.state.LambdaHistory()),
	}
}

// optimalDepth derives a reasoning depth from query complexity: a base of 2,
// up to 5 more for length, up to 3 more when the query asks a question,
// capped at the engine's depth bound.
func optimalDepth(query string) int {
	words := len(strings.Fields(query))

	lengthBonus := int(float64(words) / 10.0 * 3.0)
	if lengthBonus > 5 {
		lengthBonus = 5
	}

	questionBonus := 2 * strings.Count(query, "?")
	if questionBonus > 3 {
		questionBonus = 3
	}

	depth := baseDepth + lengthBonus + questionBonus
	if depth > reasoning.DefaultMaxDepth {
		depth = reasoning.DefaultMaxDepth
	}
	return depth
}

func containsHarmWords(query string) bool {
	lower := strings.ToLower(query)
	for _, w := range harmWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// hashPath digests the path identity together with the grounding and
// reasoning content hashes.
func hashPath(p *PathRecord, groundingHash, reasoningHash string) string {
	content := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		p.ID, p.Query, groundingHash, reasoningHash, p.CycleID, p.Depth)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
