package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
)

func TestAggregateSources_DedupesExplicitAndInferred(t *testing.T) {
	reg := registry.Default()
	s := &model.Subject{
		SourceIDs: []string{"IMDb ", "imdb"},
		IMDbID:    "tt0099999",
	}

	profile := AggregateSources(s, reg)
	assert.Equal(t, 1, profile.DistinctCount)
	assert.Equal(t, []string{"imdb"}, profile.SourceIDs)
	assert.Equal(t, 1, profile.TierCounts.Tier1)
}

func TestAggregateSources_InfersFromForeignIDs(t *testing.T) {
	reg := registry.Default()
	s := &model.Subject{
		TMDbID:      "12345",
		WikidataQID: "Q42",
	}

	profile := AggregateSources(s, reg)
	assert.Equal(t, 2, profile.DistinctCount)
	assert.Equal(t, []string{"tmdb", "wikidata"}, profile.SourceIDs)
	assert.Equal(t, 1, profile.TierCounts.Tier1)
	assert.Equal(t, 1, profile.TierCounts.Tier2)
}

func TestAggregateSources_UnknownSourceGetsDefaultEntry(t *testing.T) {
	reg := registry.Default()
	s := &model.Subject{SourceIDs: []string{"mystery-blog"}}

	profile := AggregateSources(s, reg)
	assert.Equal(t, 1, profile.DistinctCount)
	assert.Equal(t, 1, profile.TierCounts.Tier3)
	assert.Equal(t, registry.DefaultEntry.Weight, profile.WeightedAverage)
}

func TestAggregateSources_NoSources(t *testing.T) {
	reg := registry.Default()
	profile := AggregateSources(&model.Subject{}, reg)

	assert.Equal(t, 0, profile.DistinctCount)
	assert.Empty(t, profile.SourceIDs)
	// Conservative default, not zero.
	assert.Equal(t, registry.DefaultEntry.Weight, profile.WeightedAverage)
}

func TestAggregateSources_WeightedAverage(t *testing.T) {
	reg := registry.Default()
	s := &model.Subject{SourceIDs: []string{"imdb", "wikipedia", "tmdb"}}

	profile := AggregateSources(s, reg)
	// (0.95 + 0.90 + 0.75) / 3 rounded to two decimals.
	assert.Equal(t, 0.87, profile.WeightedAverage)
}

func TestAggregateSources_TopWeightIgnoresWeakTail(t *testing.T) {
	reg := registry.Default()
	strong := AggregateSources(&model.Subject{SourceIDs: []string{"imdb", "wikipedia", "tmdb"}}, reg)
	withTail := AggregateSources(&model.Subject{SourceIDs: []string{"imdb", "wikipedia", "tmdb", "fan-wiki"}}, reg)

	// The plain mean dilutes; the top-weight mean does not.
	assert.Equal(t, 0.75, withTail.WeightedAverage)
	assert.Equal(t, 0.87, withTail.TopWeightAverage)
	assert.Equal(t, strong.TopWeightAverage, withTail.TopWeightAverage)
}

func TestAggregateSources_DeterministicOrder(t *testing.T) {
	reg := registry.Default()
	a := AggregateSources(&model.Subject{SourceIDs: []string{"tmdb", "imdb", "omdb"}}, reg)
	b := AggregateSources(&model.Subject{SourceIDs: []string{"omdb", "tmdb", "imdb"}}, reg)
	assert.Equal(t, a.SourceIDs, b.SourceIDs)
}
