// Package model defines the canonical record types shared by the scoring,
// consensus, and persistence layers.
package model

import (
	"strings"
	"time"
)

// Rating is an independently sourced numeric evaluation of a subject,
// normalized upstream to a 0..10 scale.
type Rating struct {
	SourceID string  `json:"source_id"`
	Value    float64 `json:"value"`
}

// Subject is a catalog record assembled from external data sources. One
// canonical type is used everywhere; callers that need fewer columns take
// projections rather than defining their own row shapes.
type Subject struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Director  string `json:"director"`
	LeadActor string `json:"lead_actor"`

	PosterURL      string   `json:"poster_url,omitempty"`
	PosterVerified bool     `json:"poster_verified,omitempty"`
	Synopsis       string   `json:"synopsis,omitempty"`
	Genre          string   `json:"genre,omitempty"`
	ContentRating  string   `json:"content_rating,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	RuntimeMinutes int      `json:"runtime_minutes,omitempty"`
	Country        string   `json:"country,omitempty"`
	Language       string   `json:"language,omitempty"`

	// Foreign identifiers. Their presence implies the owning catalog was
	// consulted even when it is missing from SourceIDs.
	IMDbID      string `json:"imdb_id,omitempty"`
	TMDbID      string `json:"tmdb_id,omitempty"`
	WikidataQID string `json:"wikidata_qid,omitempty"`

	SourceIDs []string `json:"source_ids,omitempty"`
	Ratings   []Rating `json:"ratings,omitempty"`

	// Output fields owned by the trust engine.
	ConfidenceScore *float64                  `json:"confidence_score,omitempty"`
	Breakdown       *ConfidenceBreakdown      `json:"confidence_breakdown,omitempty"`
	TrustBadge      TrustBadge                `json:"trust_badge,omitempty"`
	FieldTiers      map[string]ConfidenceTier `json:"field_tiers,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CategoricalValue returns the current value and tier of a classifiable
// field. A missing or blank value reports nil with TierNone.
func (s *Subject) CategoricalValue(field string) (*string, ConfidenceTier) {
	var v string
	switch field {
	case FieldGenre:
		v = s.Genre
	case FieldContentRating:
		v = s.ContentRating
	default:
		return nil, TierNone
	}
	if strings.TrimSpace(v) == "" {
		return nil, TierNone
	}
	tier := TierNone
	if t, ok := s.FieldTiers[field]; ok {
		tier = t
	}
	return &v, tier
}

// Classifiable field keys handled by the consensus deriver.
const (
	FieldGenre         = "genre"
	FieldContentRating = "content_rating"
)

// TierCounts breaks a subject's sources down by reliability class.
type TierCounts struct {
	Tier1 int `json:"tier1"`
	Tier2 int `json:"tier2"`
	Tier3 int `json:"tier3"`
}

// ConfidenceBreakdown explains how a confidence score was composed. It is
// owned exclusively by the composer and replaced whole on recomputation.
type ConfidenceBreakdown struct {
	SourceCount       int        `json:"source_count"`
	SourceTierCounts  TierCounts `json:"source_tier_counts"`
	SourceWeightAvg   float64    `json:"source_weight_avg"`
	FieldCompleteness float64    `json:"field_completeness"`
	DataAgeDays       int        `json:"data_age_days"`
	AlignmentBonus    *float64   `json:"alignment_bonus,omitempty"`
	Explanation       string     `json:"explanation"`
}
