package scorer

import (
	"sort"

	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
)

// topWeightSources bounds how many weights feed TopWeightAverage.
const topWeightSources = 3

// SourceProfile summarizes the distinct data origins behind a subject.
type SourceProfile struct {
	DistinctCount   int
	TierCounts      model.TierCounts
	WeightedAverage float64
	// TopWeightAverage is the mean of the heaviest weights only. The
	// composer scores on this term so that one more weak endorsement can
	// never drag down a record already backed by strong sources.
	TopWeightAverage float64
	SourceIDs        []string
}

// AggregateSources unions a subject's explicit source list with sources
// inferred from foreign identifiers, deduplicates, and weighs the result via
// the registry. It never fails: a subject with no sources at all reports the
// registry's conservative default weight instead of zero.
func AggregateSources(s *model.Subject, reg *registry.SourceRegistry) SourceProfile {
	seen := make(map[string]struct{})
	var ids []string

	add := func(id string) {
		norm := registry.Normalize(id)
		if norm == "" {
			return
		}
		if _, ok := seen[norm]; ok {
			return
		}
		seen[norm] = struct{}{}
		ids = append(ids, norm)
	}

	for _, id := range s.SourceIDs {
		add(id)
	}
	for _, id := range inferredSources(s) {
		add(id)
	}
	// Deterministic order keeps breakdowns byte-identical across runs.
	sort.Strings(ids)

	profile := SourceProfile{
		DistinctCount: len(ids),
		TierCounts:    reg.CountTiers(ids),
		SourceIDs:     ids,
	}

	if len(ids) == 0 {
		profile.WeightedAverage = registry.DefaultEntry.Weight
		profile.TopWeightAverage = registry.DefaultEntry.Weight
		return profile
	}

	weights := make([]float64, 0, len(ids))
	var sum float64
	for _, id := range ids {
		w := reg.Lookup(id).Weight
		weights = append(weights, w)
		sum += w
	}
	profile.WeightedAverage = round2(sum / float64(len(ids)))

	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))
	top := weights
	if len(top) > topWeightSources {
		top = top[:topWeightSources]
	}
	var topSum float64
	for _, w := range top {
		topSum += w
	}
	profile.TopWeightAverage = round2(topSum / float64(len(top)))
	return profile
}

// inferredSources maps foreign identifiers to the catalogs that issued them.
// An external id on the record means that catalog was consulted even when
// enrichment forgot to log it.
func inferredSources(s *model.Subject) []string {
	var ids []string
	if s.IMDbID != "" {
		ids = append(ids, "imdb")
	}
	if s.TMDbID != "" {
		ids = append(ids, "tmdb")
	}
	if s.WikidataQID != "" {
		ids = append(ids, "wikidata")
	}
	return ids
}
