package scorer

import (
	"strings"

	"github.com/reelindex/catalog-trust/internal/model"
)

// SchemaTier partitions subject fields by importance. Each tier contributes
// a capped share of the 0..1 completeness range, so excellent identity data
// is not drowned out by thin peripheral metadata.
type SchemaTier int

// Schema tiers.
const (
	SchemaCore SchemaTier = iota
	SchemaImportant
	SchemaExtended
)

// SchemaField binds a field key to its tier and a credit function returning
// 0 (absent), 0.5 (present but below the quality gate), or 1 (present).
type SchemaField struct {
	Key    string
	Tier   SchemaTier
	Credit func(s *model.Subject) float64
}

// DefaultSchema returns the authoritative field partition shared by the
// completeness evaluator and the classification deriver. Free-text fields
// get half credit below minSynopsisLen.
func DefaultSchema(minSynopsisLen int) []SchemaField {
	return []SchemaField{
		// Core identity.
		{Key: "title", Tier: SchemaCore, Credit: stringCredit(func(s *model.Subject) string { return s.Title })},
		{Key: "year", Tier: SchemaCore, Credit: func(s *model.Subject) float64 { return boolCredit(s.Year > 0) }},
		{Key: "director", Tier: SchemaCore, Credit: stringCredit(func(s *model.Subject) string { return s.Director })},
		{Key: "lead_actor", Tier: SchemaCore, Credit: stringCredit(func(s *model.Subject) string { return s.LeadActor })},

		// Important metadata.
		{Key: "poster_url", Tier: SchemaImportant, Credit: stringCredit(func(s *model.Subject) string { return s.PosterURL })},
		{Key: "synopsis", Tier: SchemaImportant, Credit: textCredit(func(s *model.Subject) string { return s.Synopsis }, minSynopsisLen)},
		{Key: model.FieldGenre, Tier: SchemaImportant, Credit: stringCredit(func(s *model.Subject) string { return s.Genre })},
		{Key: model.FieldContentRating, Tier: SchemaImportant, Credit: stringCredit(func(s *model.Subject) string { return s.ContentRating })},

		// Extended metadata.
		{Key: "tags", Tier: SchemaExtended, Credit: func(s *model.Subject) float64 { return boolCredit(len(s.Tags) > 0) }},
		{Key: "runtime_minutes", Tier: SchemaExtended, Credit: func(s *model.Subject) float64 { return boolCredit(s.RuntimeMinutes > 0) }},
		{Key: "country", Tier: SchemaExtended, Credit: stringCredit(func(s *model.Subject) string { return s.Country })},
		{Key: "language", Tier: SchemaExtended, Credit: stringCredit(func(s *model.Subject) string { return s.Language })},
		{Key: "ratings", Tier: SchemaExtended, Credit: func(s *model.Subject) float64 { return boolCredit(len(s.Ratings) > 0) }},
	}
}

// Completeness scores how much of the schema is populated, weighted by tier
// caps and rounded to two decimals.
func Completeness(s *model.Subject, schema []SchemaField, coreCap, importantCap, extendedCap float64) float64 {
	var sums, counts [3]float64
	for _, f := range schema {
		sums[f.Tier] += f.Credit(s)
		counts[f.Tier]++
	}

	caps := [3]float64{coreCap, importantCap, extendedCap}
	var total float64
	for tier := range sums {
		if counts[tier] == 0 {
			continue
		}
		total += sums[tier] / counts[tier] * caps[tier]
	}
	return round2(total)
}

// CoreComplete reports whether every core identity field has full credit.
func CoreComplete(s *model.Subject, schema []SchemaField) bool {
	for _, f := range schema {
		if f.Tier == SchemaCore && f.Credit(s) < 1 {
			return false
		}
	}
	return true
}

func stringCredit(get func(s *model.Subject) string) func(s *model.Subject) float64 {
	return func(s *model.Subject) float64 {
		return boolCredit(strings.TrimSpace(get(s)) != "")
	}
}

// textCredit grants half credit for free text below the minimum length.
func textCredit(get func(s *model.Subject) string, minLen int) func(s *model.Subject) float64 {
	return func(s *model.Subject) float64 {
		text := strings.TrimSpace(get(s))
		switch {
		case text == "":
			return 0
		case len(text) < minLen:
			return 0.5
		default:
			return 1
		}
	}
}

func boolCredit(present bool) float64 {
	if present {
		return 1
	}
	return 0
}
