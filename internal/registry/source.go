// Package registry provides the data-driven source reliability table used by
// both the confidence composer and the classification deriver.
package registry

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/reelindex/catalog-trust/internal/model"
)

// Entry describes the reliability of a single data origin.
type Entry struct {
	Tier   int     `yaml:"tier" json:"tier"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// DefaultEntry is assigned to any source the registry has never heard of.
// Unknown origins are low-trust, never fatal.
var DefaultEntry = Entry{Tier: 3, Weight: 0.3}

// SourceRegistry maps source ids to reliability entries. Lookups never fail.
type SourceRegistry struct {
	entries map[string]Entry
}

// Default returns a registry seeded with the sources the catalog is known to
// consult. Deployments override or extend it via Load.
func Default() *SourceRegistry {
	return &SourceRegistry{entries: map[string]Entry{
		"imdb":          {Tier: 1, Weight: 0.95},
		"wikipedia":     {Tier: 1, Weight: 0.90},
		"wikidata":      {Tier: 1, Weight: 0.90},
		"tmdb":          {Tier: 2, Weight: 0.75},
		"omdb":          {Tier: 2, Weight: 0.70},
		"studio-press":  {Tier: 2, Weight: 0.65},
		"fan-wiki":      {Tier: 3, Weight: 0.40},
		"text-analysis": {Tier: 3, Weight: 0.35},
		"inferred":      {Tier: 3, Weight: 0.30},
	}}
}

// Load reads a registry from a YAML file of the form:
//
//	sources:
//	  imdb: {tier: 1, weight: 0.95}
//
// Entries with an out-of-range tier or weight are rejected so that a typo in
// the table cannot silently distort every score in the batch.
func Load(path string) (*SourceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	var wrapper struct {
		Sources map[string]Entry `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "registry: parse config")
	}

	entries := make(map[string]Entry, len(wrapper.Sources))
	for id, e := range wrapper.Sources {
		if e.Tier < 1 || e.Tier > 3 {
			return nil, eris.Errorf("registry: source %q tier must be 1..3 (got %d)", id, e.Tier)
		}
		if e.Weight < 0 || e.Weight > 1 {
			return nil, eris.Errorf("registry: source %q weight must be 0..1 (got %.2f)", id, e.Weight)
		}
		entries[Normalize(id)] = e
	}
	return &SourceRegistry{entries: entries}, nil
}

// Normalize canonicalizes a source id for lookup.
func Normalize(sourceID string) string {
	return strings.ToLower(strings.TrimSpace(sourceID))
}

// Lookup resolves a source id to its reliability entry. Unknown ids resolve
// to DefaultEntry.
func (r *SourceRegistry) Lookup(sourceID string) Entry {
	if e, ok := r.entries[Normalize(sourceID)]; ok {
		return e
	}
	return DefaultEntry
}

// Known reports whether the registry has an explicit entry for the source.
func (r *SourceRegistry) Known(sourceID string) bool {
	_, ok := r.entries[Normalize(sourceID)]
	return ok
}

// Len returns the number of explicit entries.
func (r *SourceRegistry) Len() int {
	return len(r.entries)
}

// Each visits every explicit entry. Iteration order is not defined.
func (r *SourceRegistry) Each(fn func(id string, e Entry)) {
	for id, e := range r.entries {
		fn(id, e)
	}
}

// CountTiers tallies the given source ids by tier via the registry.
func (r *SourceRegistry) CountTiers(sourceIDs []string) model.TierCounts {
	var tc model.TierCounts
	for _, id := range sourceIDs {
		switch r.Lookup(id).Tier {
		case 1:
			tc.Tier1++
		case 2:
			tc.Tier2++
		default:
			tc.Tier3++
		}
	}
	return tc
}
