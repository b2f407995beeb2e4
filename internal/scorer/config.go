// Package scorer implements the provenance-aware confidence composition for
// catalog subjects.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/reelindex/catalog-trust/internal/config"
)

// DefaultScorerConfig returns a config.ScorerConfig with the constants the
// composition was calibrated against.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		CoreBaseline:    0.40,
		MinimalBaseline: 0.20,

		CompletenessWeight: 0.35,
		SourceWeight:       0.15,
		AlignmentWeight:    0.05,

		SourceCountBonuses: []float64{0.04, 0.07, 0.10},

		PosterBonus:   0.05,
		SynopsisBonus: 0.05,

		MinSynopsisLength: 120,

		CoreCap:      0.40,
		ImportantCap: 0.30,
		ExtendedCap:  0.30,

		AlignmentVarianceScale: 4.0,

		FloorScore:   0.15,
		CeilingScore: 1.0,

		VerifiedCutoff:   0.80,
		HighCutoff:       0.60,
		MediumCutoff:     0.40,
		LowCutoff:        0.20,
		VerifiedTier1Min: 2,

		Decay: config.DecayConfig{
			Bands:      config.DefaultDecayBands,
			MaxPenalty: 0.20,
			Damping:    0.5,
		},
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	weights := map[string]float64{
		"core_baseline":       c.CoreBaseline,
		"minimal_baseline":    c.MinimalBaseline,
		"completeness_weight": c.CompletenessWeight,
		"source_weight":       c.SourceWeight,
		"alignment_weight":    c.AlignmentWeight,
		"poster_bonus":        c.PosterBonus,
		"synopsis_bonus":      c.SynopsisBonus,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.MinimalBaseline > c.CoreBaseline {
		errs = append(errs, "minimal_baseline must be <= core_baseline")
	}

	// The clamp range is the one invariant that must never widen: no subject
	// is ever zero-trust or absolute-trust.
	if c.FloorScore <= 0 {
		errs = append(errs, "floor_score must be > 0")
	}
	if c.CeilingScore > 1.0 {
		errs = append(errs, "ceiling_score must be <= 1.0")
	}
	if c.FloorScore >= c.CeilingScore {
		errs = append(errs, "floor_score must be < ceiling_score")
	}

	// Completeness caps span the 0..1 completeness range.
	capSum := c.CoreCap + c.ImportantCap + c.ExtendedCap
	if math.Abs(capSum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("completeness caps should sum to 1.0, got %.2f", capSum))
	}

	// Badge cutoffs must be strictly ordered so badges stay monotonic in score.
	if !(c.VerifiedCutoff > c.HighCutoff && c.HighCutoff > c.MediumCutoff && c.MediumCutoff > c.LowCutoff) {
		errs = append(errs, "badge cutoffs must be strictly decreasing (verified > high > medium > low)")
	}
	if c.VerifiedTier1Min < 1 {
		errs = append(errs, "verified_tier1_min must be >= 1")
	}

	if len(c.SourceCountBonuses) == 0 {
		errs = append(errs, "source_count_bonuses must not be empty")
	}
	for i := 1; i < len(c.SourceCountBonuses); i++ {
		if c.SourceCountBonuses[i] < c.SourceCountBonuses[i-1] {
			errs = append(errs, "source_count_bonuses must be non-decreasing")
			break
		}
	}

	if c.Decay.MaxPenalty < 0 || c.Decay.MaxPenalty >= 1 {
		errs = append(errs, "decay.max_penalty must be in [0, 1)")
	}
	if c.Decay.Damping < 0 || c.Decay.Damping > 1 {
		errs = append(errs, "decay.damping must be in [0, 1]")
	}
	for i := 1; i < len(c.Decay.Bands); i++ {
		if c.Decay.Bands[i].UpToDays <= c.Decay.Bands[i-1].UpToDays {
			errs = append(errs, "decay.bands must have strictly increasing up_to_days")
			break
		}
		if c.Decay.Bands[i].Penalty < c.Decay.Bands[i-1].Penalty {
			errs = append(errs, "decay.bands penalties must be non-decreasing")
			break
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// round2 rounds to two decimal places, the persistence precision for scores.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// clamp bounds x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}
