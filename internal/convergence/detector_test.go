package convergence

import (
	"math"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name           string
		history        []float64
		wantConverged  bool
		wantConfidence float64 // -1 means only check the [0,1] bound
	}{
		{
			name:           "empty history",
			history:        nil,
			wantConverged:  false,
			wantConfidence: 0,
		},
		{
			name:           "two samples",
			history:        []float64{10, 10.5},
			wantConverged:  false,
			wantConfidence: 0,
		},
		{
			name:           "flat history converged",
			history:        []float64{10, 10, 10, 10, 10},
			wantConverged:  true,
			wantConfidence: 1,
		},
		{
			name:           "steady growth not converged",
			history:        []float64{10, 10.5, 11, 11.5, 12},
			wantConverged:  false,
			wantConfidence: -1,
		},
		{
			name:           "tiny drift converged",
			history:        []float64{10, 10.001, 10.002, 10.003, 10.004},
			wantConverged:  true,
			wantConfidence: -1,
		},
		{
			name:           "only the last five samples count",
			history:        []float64{0, 5, 1, 8, 10, 10, 10, 10, 10},
			wantConverged:  true,
			wantConfidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.history)
			if got.Converged != tt.wantConverged {
				t.Errorf("Converged = %v, want %v (%+v)", got.Converged, tt.wantConverged, got)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("Confidence %v out of [0,1]", got.Confidence)
			}
			if tt.wantConfidence >= 0 && math.Abs(got.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestDetectThreeSamples(t *testing.T) {
	// Exactly the minimum: judgment is made.
	got := Detect([]float64{10, 10, 10})
	if !got.Converged {
		t.Errorf("flat three-sample history should converge, got %+v", got)
	}
	if got.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", got.Confidence)
	}
}

func TestDetectTrendSign(t *testing.T) {
	up := Detect([]float64{10, 11, 12, 13, 14})
	if up.Trend <= 0 {
		t.Errorf("rising history should have positive trend, got %v", up.Trend)
	}
	down := Detect([]float64{14, 13, 12, 11, 10})
	if down.Trend >= 0 {
		t.Errorf("falling history should have negative trend, got %v", down.Trend)
	}
}
