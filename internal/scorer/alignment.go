package scorer

import (
	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
)

// AlignmentBonus rewards agreement across independently sourced numeric
// evaluations of the same subject. Values are expected on a common 0..10
// scale. With fewer than two distinct sources the signal is undefined and
// the second return is false; an undefined signal must be excluded from
// composition, never treated as zero.
func AlignmentBonus(ratings []model.Rating, varianceScale float64) (float64, bool) {
	if varianceScale <= 0 {
		varianceScale = 4.0
	}

	// One value per distinct source; duplicates from the same origin are not
	// independent evidence.
	bySource := make(map[string]float64)
	for _, r := range ratings {
		id := registry.Normalize(r.SourceID)
		if id == "" {
			continue
		}
		if _, ok := bySource[id]; !ok {
			bySource[id] = r.Value
		}
	}
	if len(bySource) < 2 {
		return 0, false
	}

	var sum float64
	for _, v := range bySource {
		sum += v
	}
	mean := sum / float64(len(bySource))

	var variance float64
	for _, v := range bySource {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(bySource))

	bonus := clamp(1-variance/varianceScale, 0, 1)
	return round2(bonus), true
}
