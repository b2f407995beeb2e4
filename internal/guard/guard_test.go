package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelindex/catalog-trust/internal/model"
)

func strptr(s string) *string { return &s }

func TestEvaluate_NullIncomingNeverBlanks(t *testing.T) {
	d := Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierMedium},
		model.FieldUpdate{Field: "genre", Value: nil, Tier: model.TierHigh},
	)
	assert.False(t, d.Apply)
	assert.Equal(t, SkipNullValue, d.Reason)
}

func TestEvaluate_NullFieldFillsAtAnyTier(t *testing.T) {
	d := Evaluate(
		FieldState{Value: nil},
		model.FieldUpdate{Field: "genre", Value: strptr("Horror"), Tier: model.TierMedium},
	)
	assert.True(t, d.Apply)
	assert.Equal(t, SkipNone, d.Reason)
}

func TestEvaluate_SameValueTierRaise(t *testing.T) {
	d := Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierMedium},
		model.FieldUpdate{Field: "genre", Value: strptr("Horror"), Tier: model.TierHigh},
	)
	assert.True(t, d.Apply)
	assert.True(t, d.TierRise)
}

func TestEvaluate_SameValueSameTierSkips(t *testing.T) {
	d := Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierHigh},
		model.FieldUpdate{Field: "genre", Value: strptr("Horror"), Tier: model.TierHigh},
	)
	assert.False(t, d.Apply)
	assert.Equal(t, SkipUnchangedTier, d.Reason)
}

func TestEvaluate_DifferentValueNeedsStrictlyHigherTier(t *testing.T) {
	// Lower tier loses.
	d := Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierHigh},
		model.FieldUpdate{Field: "genre", Value: strptr("Thriller"), Tier: model.TierMedium},
	)
	assert.False(t, d.Apply)
	assert.Equal(t, SkipLowerTier, d.Reason)

	// Equal tier is a standoff; the incumbent wins.
	d = Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierMedium},
		model.FieldUpdate{Field: "genre", Value: strptr("Thriller"), Tier: model.TierMedium},
	)
	assert.False(t, d.Apply)
	assert.Equal(t, SkipAlreadySet, d.Reason)

	// Strictly higher tier displaces.
	d = Evaluate(
		FieldState{Value: strptr("Horror"), Tier: model.TierMedium},
		model.FieldUpdate{Field: "genre", Value: strptr("Thriller"), Tier: model.TierHigh},
	)
	assert.True(t, d.Apply)
}

func TestEvaluate_UntaggedExistingValueTreatedAsNoTier(t *testing.T) {
	// Manually entered data carries no tier; any tiered consensus may
	// displace it.
	d := Evaluate(
		FieldState{Value: strptr("Horrer"), Tier: model.TierNone},
		model.FieldUpdate{Field: "genre", Value: strptr("Horror"), Tier: model.TierMedium},
	)
	assert.True(t, d.Apply)
}

func TestFilter(t *testing.T) {
	subj := &model.Subject{
		ID:            "tt0002",
		Genre:         "Horror",
		ContentRating: "",
		FieldTiers:    map[string]model.ConfidenceTier{model.FieldGenre: model.TierHigh},
	}
	updates := []model.FieldUpdate{
		{Field: model.FieldGenre, Value: strptr("Thriller"), Tier: model.TierMedium},
		{Field: model.FieldContentRating, Value: strptr("R"), Tier: model.TierMedium},
	}

	applied, decisions := Filter(subj, updates)
	require.Len(t, applied, 1)
	assert.Equal(t, model.FieldContentRating, applied[0].Field)

	require.Len(t, decisions, 2)
	assert.False(t, decisions[0].Apply)
	assert.Equal(t, SkipLowerTier, decisions[0].Reason)
	assert.True(t, decisions[1].Apply)
}
