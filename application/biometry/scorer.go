package biometry

import (
	"math"

	"github.com/montanaflynn/stats"
)

// CosineScorer scores descriptor similarity by cosine of the angle between
// two descriptor vectors, clamped into [0,1].
type CosineScorer struct {
	// AllowDissimilarity maps cosine from [-1,1] onto [0,1] instead of
	// clamping negatives to 0.
	AllowDissimilarity bool
}

func (cs *CosineScorer) Score(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, NewValidationError("descriptors must be non-empty")
	}
	if len(a) != len(b) {
		return 0, NewValidationError("descriptor length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, NewValidationError("descriptors must not be zero vectors")
	}

	cosine := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cs.AllowDissimilarity {
		return clamp01((cosine + 1) / 2), nil
	}
	return clamp01(cosine), nil
}

// DescriptorQuality estimates how informative a raw descriptor is. A healthy
// embedding has spread across components; a flat or spiky vector is a sign of
// a bad capture. Deterministic, used at registration only.
func DescriptorQuality(descriptor []float64) float64 {
	if len(descriptor) == 0 {
		return 0
	}

	variance, err := stats.PopulationVariance(descriptor)
	if err != nil {
		return 0
	}
	stdDev := math.Sqrt(variance)
	mean, _ := stats.Mean(descriptor)

	// Spread component: descriptors from well-lit, in-focus captures land in
	// a variance band rather than collapsing to near-constant values.
	spread := clamp01(variance / 0.1)

	// Consistency component: fraction of components within 3 standard
	// deviations of the mean. Outlier-heavy vectors score low.
	within := 0
	for _, v := range descriptor {
		if math.Abs(v-mean) <= 3*stdDev {
			within++
		}
	}
	consistency := float64(within) / float64(len(descriptor))

	return clamp01(spread*0.5 + consistency*0.5)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
