package scorer

import (
	"fmt"
	"strings"
	"time"

	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
)

// Composer combines completeness, source quality, temporal decay, and
// cross-field alignment into a clamped confidence score, a trust badge, and
// an explainable breakdown. Composition is pure: the same subject and clock
// always produce the same result.
type Composer struct {
	cfg    config.ScorerConfig
	reg    *registry.SourceRegistry
	schema []SchemaField
}

// NewComposer creates a Composer over the given registry and constants.
func NewComposer(cfg config.ScorerConfig, reg *registry.SourceRegistry) *Composer {
	return &Composer{
		cfg:    cfg,
		reg:    reg,
		schema: DefaultSchema(cfg.MinSynopsisLength),
	}
}

// Result is the composed trust assessment for one subject.
type Result struct {
	Score     float64
	Badge     model.TrustBadge
	Breakdown model.ConfidenceBreakdown
}

// Compose scores a subject as of the given instant.
func (c *Composer) Compose(s *model.Subject, now time.Time) Result {
	profile := AggregateSources(s, c.reg)
	completeness := Completeness(s, c.schema, c.cfg.CoreCap, c.cfg.ImportantCap, c.cfg.ExtendedCap)
	ageDays := AgeDays(s.UpdatedAt, now)
	penalty := AgePenalty(ageDays, c.cfg.Decay)
	align, alignDefined := AlignmentBonus(s.Ratings, c.cfg.AlignmentVarianceScale)

	var score float64
	if profile.DistinctCount > 0 {
		if CoreComplete(s, c.schema) {
			score = c.cfg.CoreBaseline
		} else {
			score = c.cfg.MinimalBaseline
		}
		score += completeness * c.cfg.CompletenessWeight
		score += profile.TopWeightAverage * c.cfg.SourceWeight
		score += countBonus(profile.DistinctCount, c.cfg.SourceCountBonuses)
		if s.PosterURL != "" && s.PosterVerified {
			score += c.cfg.PosterBonus
		}
		if len(strings.TrimSpace(s.Synopsis)) >= c.cfg.MinSynopsisLength {
			score += c.cfg.SynopsisBonus
		}
		if alignDefined {
			score += align * c.cfg.AlignmentWeight
		}
		score -= penalty * c.cfg.Decay.Damping
	}
	// A subject without a single recorded or inferred source has no
	// provenance to trust; it sits at the floor until evidence arrives.

	score = round2(clamp(score, c.cfg.FloorScore, c.cfg.CeilingScore))

	breakdown := model.ConfidenceBreakdown{
		SourceCount:       profile.DistinctCount,
		SourceTierCounts:  profile.TierCounts,
		SourceWeightAvg:   profile.WeightedAverage,
		FieldCompleteness: completeness,
		DataAgeDays:       ageDays,
		Explanation:       explanation(profile, completeness),
	}
	if alignDefined {
		a := align
		breakdown.AlignmentBonus = &a
	}

	return Result{
		Score:     score,
		Badge:     c.badgeFor(score, profile.TierCounts.Tier1),
		Breakdown: breakdown,
	}
}

// badgeFor assigns the trust badge. Ordered ladder, first match wins; the
// top badge additionally requires enough tier-1 sources so that a single
// very-high-weight source can never reach top trust alone.
func (c *Composer) badgeFor(score float64, tier1Count int) model.TrustBadge {
	switch {
	case score >= c.cfg.VerifiedCutoff && tier1Count >= c.cfg.VerifiedTier1Min:
		return model.BadgeVerified
	case score >= c.cfg.HighCutoff:
		return model.BadgeHigh
	case score >= c.cfg.MediumCutoff:
		return model.BadgeMedium
	case score >= c.cfg.LowCutoff:
		return model.BadgeLow
	default:
		return model.BadgeUnverified
	}
}

// countBonus returns the diminishing bonus for distinct source count.
// bonuses[i] applies to count i+1; the last entry covers all higher counts.
func countBonus(count int, bonuses []float64) float64 {
	if count <= 0 || len(bonuses) == 0 {
		return 0
	}
	if count > len(bonuses) {
		count = len(bonuses)
	}
	return bonuses[count-1]
}

// explanation assembles the dominant contributing narrative: a source-tier
// sentence and a completeness sentence. It is end-user transparency, not a
// log dump.
func explanation(profile SourceProfile, completeness float64) string {
	var sb strings.Builder

	switch {
	case profile.DistinctCount == 0:
		sb.WriteString("No data sources recorded.")
	case profile.TierCounts.Tier1 > 0:
		sb.WriteString(fmt.Sprintf("Backed by %s", plural(profile.TierCounts.Tier1, "authoritative source")))
		if rest := profile.DistinctCount - profile.TierCounts.Tier1; rest > 0 {
			sb.WriteString(fmt.Sprintf(" and %s", plural(rest, "supporting source")))
		}
		sb.WriteString(".")
	case profile.TierCounts.Tier2 > 0:
		sb.WriteString(fmt.Sprintf("Backed by %s.", plural(profile.DistinctCount, "secondary source")))
	default:
		sb.WriteString(fmt.Sprintf("Backed only by %s.", plural(profile.DistinctCount, "low-trust source")))
	}

	sb.WriteString(fmt.Sprintf(" Record fields are %d%% complete.", int(completeness*100)))
	return sb.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
