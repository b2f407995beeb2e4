// Package consensus turns weighted candidate signals for a categorical field
// into an accepted value, or an explicit insufficient-evidence outcome. The
// deriver is deliberately conservative: it would rather leave a field null
// than fabricate a classification.
package consensus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
)

// Deriver evaluates classification signals against the consensus threshold
// and ambiguity margin.
type Deriver struct {
	cfg  config.ConsensusConfig
	reg  *registry.SourceRegistry
	fold cases.Caser
}

// NewDeriver creates a Deriver.
func NewDeriver(cfg config.ConsensusConfig, reg *registry.SourceRegistry) *Deriver {
	return &Deriver{
		cfg: cfg,
		reg: reg,
		// Case-fold candidate labels so "action" and "Action" pool their
		// weight instead of splitting it.
		fold: cases.Fold(),
	}
}

// ValidateConfig checks consensus gating constants.
func ValidateConfig(c config.ConsensusConfig) error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return eris.Errorf("consensus: threshold must be in (0, 1] (got %.2f)", c.Threshold)
	}
	if c.AmbiguityMargin < 0 || c.AmbiguityMargin >= c.Threshold {
		return eris.Errorf("consensus: ambiguity_margin must be in [0, threshold) (got %.2f)", c.AmbiguityMargin)
	}
	return nil
}

// candidate accumulates the signals proposing one (case-folded) value.
type candidate struct {
	spelling  string
	maxWeight float64
	weight    float64
	sources   map[string]struct{}
}

// Derive evaluates the signals for one categorical field. Signals for other
// fields are ignored. The returned outcome always carries the full candidate
// table when the field was not filled, so rejections stay auditable.
func (d *Deriver) Derive(field string, signals []model.Signal) model.ClassificationOutcome {
	outcome := model.ClassificationOutcome{Field: field, Tier: model.TierNone}

	grouped := make(map[string]*candidate)
	var totalWeight float64
	for _, sig := range signals {
		if sig.Field != field || sig.Weight <= 0 {
			continue
		}
		value := strings.TrimSpace(sig.Value)
		if value == "" {
			continue
		}
		key := d.fold.String(value)
		c, ok := grouped[key]
		if !ok {
			c = &candidate{sources: make(map[string]struct{})}
			grouped[key] = c
		}
		c.weight += sig.Weight
		totalWeight += sig.Weight
		c.sources[registry.Normalize(sig.SourceID)] = struct{}{}
		// The heaviest signal's spelling represents the candidate.
		if sig.Weight > c.maxWeight {
			c.maxWeight = sig.Weight
			c.spelling = value
		}
	}

	if len(grouped) == 0 {
		outcome.AmbiguityReason = model.ReasonNoSignals
		return outcome
	}

	candidates := make([]model.Candidate, 0, len(grouped))
	for _, c := range grouped {
		candidates = append(candidates, model.Candidate{
			Value:   c.spelling,
			Weight:  c.weight,
			Sources: sortedKeys(c.sources),
		})
	}
	// Weight-descending, value ascending on ties: decisions must be
	// byte-identical between dry and real runs.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		return candidates[i].Value < candidates[j].Value
	})
	outcome.Candidates = candidates

	if totalWeight < d.cfg.Threshold {
		outcome.AmbiguityReason = model.ReasonBelowThreshold
		outcome.Ambiguous = len(candidates) >= 2
		return outcome
	}

	leading := candidates[0]
	var runnerUp float64
	if len(candidates) > 1 {
		runnerUp = candidates[1].Weight
	}
	if leading.Weight-runnerUp < d.cfg.AmbiguityMargin {
		outcome.Ambiguous = true
		outcome.AmbiguityReason = model.ReasonMarginTooNarrow
		return outcome
	}

	tier := d.tierFor(leading.Sources)
	if tier == model.TierNone {
		// A single weak signal never produces a guess.
		outcome.AmbiguityReason = model.ReasonContributorsWeak
		return outcome
	}

	value := leading.Value
	outcome.Value = &value
	outcome.Tier = tier
	outcome.ContributingSources = leading.Sources
	return outcome
}

// tierFor rates the winning candidate's evidence. High trust needs either
// two authoritative contributors, or one authoritative contributor
// corroborated by a second independent source. A lone tier-1 signal is
// medium; so are multiple tier-2 signals. Anything weaker does not fill.
func (d *Deriver) tierFor(sources []string) model.ConfidenceTier {
	var tier1, tier2 int
	for _, id := range sources {
		switch d.reg.Lookup(id).Tier {
		case 1:
			tier1++
		case 2:
			tier2++
		}
	}
	switch {
	case tier1 >= 2, tier1 >= 1 && len(sources) >= 2:
		return model.TierHigh
	case tier1 == 1, tier2 >= 2:
		return model.TierMedium
	default:
		return model.TierNone
	}
}

// Describe renders a short human summary of a rejection for logs and audit.
func Describe(o model.ClassificationOutcome) string {
	switch o.AmbiguityReason {
	case model.ReasonNoSignals:
		return "no signals recorded"
	case model.ReasonBelowThreshold:
		return fmt.Sprintf("cumulative weight below consensus threshold (%d candidates)", len(o.Candidates))
	case model.ReasonMarginTooNarrow:
		if len(o.Candidates) >= 2 {
			return fmt.Sprintf("margin between %q and %q too narrow", o.Candidates[0].Value, o.Candidates[1].Value)
		}
		return "margin too narrow"
	case model.ReasonContributorsWeak:
		return "contributing sources too weak to classify"
	default:
		return ""
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
