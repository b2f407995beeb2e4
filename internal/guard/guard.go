// Package guard enforces the non-destructive merge policy on writes back to
// the record store: higher-confidence data is never overwritten by
// lower-confidence data, and nothing is ever blanked.
package guard

import (
	"go.uber.org/zap"

	"github.com/reelindex/catalog-trust/internal/model"
)

// SkipReason codes why a proposed write was rejected. A rejected write is a
// normal, logged outcome, not an error.
type SkipReason string

// Skip reasons.
const (
	SkipNone          SkipReason = ""
	SkipNullValue     SkipReason = "null_value"
	SkipLowerTier     SkipReason = "lower_tier"
	SkipAlreadySet    SkipReason = "already_set"
	SkipUnchangedTier SkipReason = "unchanged"
)

// Decision is the per-field verdict for one proposed update.
type Decision struct {
	Field    string
	Apply    bool
	TierRise bool
	Reason   SkipReason
}

// FieldState is the currently persisted value and tier of a field.
type FieldState struct {
	Value *string
	Tier  model.ConfidenceTier
}

// Evaluate reconciles one proposed update against the persisted state.
// Rules: a non-null field is never replaced by null; a set field is never
// replaced by a value of lower or equal confidence tier; a null field may
// always be filled, at any tier, tagged so consumers can discount it.
func Evaluate(current FieldState, incoming model.FieldUpdate) Decision {
	d := Decision{Field: incoming.Field}

	if incoming.Value == nil {
		d.Reason = SkipNullValue
		return d
	}

	if current.Value == nil {
		d.Apply = true
		return d
	}

	// Same value: only the tier can move, and only upward.
	if *current.Value == *incoming.Value {
		if incoming.Tier.Rank() > current.Tier.Rank() {
			d.Apply = true
			d.TierRise = true
			return d
		}
		d.Reason = SkipUnchangedTier
		return d
	}

	// Different value: a strictly higher tier is required to displace it.
	if incoming.Tier.Rank() > current.Tier.Rank() {
		d.Apply = true
		return d
	}
	if incoming.Tier.Rank() < current.Tier.Rank() {
		d.Reason = SkipLowerTier
		return d
	}
	d.Reason = SkipAlreadySet
	return d
}

// Filter evaluates a set of proposed updates against a subject and returns
// the updates that may be applied plus the per-field decisions. Rejections
// never block the rest of the subject's update.
func Filter(subject *model.Subject, updates []model.FieldUpdate) ([]model.FieldUpdate, []Decision) {
	applied := make([]model.FieldUpdate, 0, len(updates))
	decisions := make([]Decision, 0, len(updates))

	for _, u := range updates {
		value, tier := subject.CategoricalValue(u.Field)
		d := Evaluate(FieldState{Value: value, Tier: tier}, u)
		decisions = append(decisions, d)

		if d.Apply {
			applied = append(applied, u)
			continue
		}
		zap.L().Debug("guard: write rejected",
			zap.String("subject_id", subject.ID),
			zap.String("field", u.Field),
			zap.String("reason", string(d.Reason)),
		)
	}
	return applied, decisions
}
