package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelindex/catalog-trust/internal/model"
)

func TestAlignmentBonus_UndefinedBelowTwoSources(t *testing.T) {
	_, ok := AlignmentBonus(nil, 4.0)
	assert.False(t, ok)

	_, ok = AlignmentBonus([]model.Rating{{SourceID: "imdb", Value: 7.0}}, 4.0)
	assert.False(t, ok)

	// Two ratings from the same origin are not independent evidence.
	_, ok = AlignmentBonus([]model.Rating{
		{SourceID: "imdb", Value: 7.0},
		{SourceID: "IMDb", Value: 9.0},
	}, 4.0)
	assert.False(t, ok)
}

func TestAlignmentBonus_PerfectAgreement(t *testing.T) {
	got, ok := AlignmentBonus([]model.Rating{
		{SourceID: "imdb", Value: 8.0},
		{SourceID: "tmdb", Value: 8.0},
	}, 4.0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)
}

func TestAlignmentBonus_CloseAgreement(t *testing.T) {
	got, ok := AlignmentBonus([]model.Rating{
		{SourceID: "imdb", Value: 7.8},
		{SourceID: "tmdb", Value: 7.5},
	}, 4.0)
	assert.True(t, ok)
	assert.Equal(t, 0.99, got)
}

func TestAlignmentBonus_StrongDisagreementClampsToZero(t *testing.T) {
	got, ok := AlignmentBonus([]model.Rating{
		{SourceID: "imdb", Value: 1.0},
		{SourceID: "fan-wiki", Value: 9.5},
	}, 4.0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, got)
}

func TestAlignmentBonus_FirstValuePerSourceWins(t *testing.T) {
	a, _ := AlignmentBonus([]model.Rating{
		{SourceID: "imdb", Value: 8.0},
		{SourceID: "imdb", Value: 2.0},
		{SourceID: "tmdb", Value: 8.0},
	}, 4.0)
	assert.Equal(t, 1.0, a)
}
