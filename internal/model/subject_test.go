package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceTierRank(t *testing.T) {
	assert.Greater(t, TierHigh.Rank(), TierMedium.Rank())
	assert.Greater(t, TierMedium.Rank(), TierNone.Rank())
	assert.Equal(t, 0, ConfidenceTier("bogus").Rank())
}

func TestCategoricalValue(t *testing.T) {
	s := &Subject{
		Genre:      "Horror",
		FieldTiers: map[string]ConfidenceTier{FieldGenre: TierHigh},
	}

	v, tier := s.CategoricalValue(FieldGenre)
	assert.Equal(t, "Horror", *v)
	assert.Equal(t, TierHigh, tier)

	v, tier = s.CategoricalValue(FieldContentRating)
	assert.Nil(t, v)
	assert.Equal(t, TierNone, tier)

	// A populated field without a recorded tier reports TierNone.
	s.FieldTiers = nil
	v, tier = s.CategoricalValue(FieldGenre)
	assert.NotNil(t, v)
	assert.Equal(t, TierNone, tier)

	v, _ = s.CategoricalValue("runtime_minutes")
	assert.Nil(t, v)
}

func TestClassificationOutcomeAccepted(t *testing.T) {
	v := "Horror"
	assert.True(t, ClassificationOutcome{Value: &v, Tier: TierHigh}.Accepted())
	assert.False(t, ClassificationOutcome{Value: nil, Tier: TierHigh}.Accepted())
	assert.False(t, ClassificationOutcome{Value: &v, Tier: TierNone}.Accepted())
}
