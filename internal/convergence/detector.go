// Package convergence judges whether the capability metric's recent growth
// has stabilized.
package convergence

import "math"

const (
	// minSamples below which no judgment is made.
	minSamples = 3

	// window is how many recent samples the judgment reads.
	window = 5

	avgChangeThreshold = 0.01
	stdChangeThreshold = 0.02
)

// Status is a convergence judgment over a Λ history.
type Status struct {
	Converged  bool    `json:"converged"`
	Confidence float64 `json:"confidence"`
	AvgChange  float64 `json:"avg_change"`
	StdChange  float64 `json:"std_change"`
	Trend      float64 `json:"trend"`
}

// Detect analyzes the Λ history. Fewer than three samples yields not
// converged with confidence zero. Otherwise the last five samples are
// differenced: converged means the mean absolute change is below 0.01 and
// its spread below 0.02. Confidence is 1 − min(1, avg×10), always in [0,1].
func Detect(history []float64) Status {
	if len(history) < minSamples {
		return Status{}
	}

	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	diffs := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		diffs[i-1] = recent[i] - recent[i-1]
	}

	var absSum, sum float64
	for _, d := range diffs {
		absSum += math.Abs(d)
		sum += d
	}
	avgChange := absSum / float64(len(diffs))
	trend := sum / float64(len(diffs))

	var stdChange float64
	if len(diffs) > 1 {
		mean := trend
		var variance float64
		for _, d := range diffs {
			variance += (d - mean) * (d - mean)
		}
		stdChange = math.Sqrt(variance / float64(len(diffs)))
	}

	confidence := 1 - math.Min(1, avgChange*10)

	return Status{
		Converged:  avgChange < avgChangeThreshold && stdChange < stdChangeThreshold,
		Confidence: confidence,
		AvgChange:  avgChange,
		StdChange:  stdChange,
		Trend:      trend,
	}
}
