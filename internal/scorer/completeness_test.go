package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelindex/catalog-trust/internal/model"
)

func fullSubject() *model.Subject {
	return &model.Subject{
		ID:             "tt0001",
		Title:          "The Long Night",
		Year:           1974,
		Director:       "R. Calloway",
		LeadActor:      "M. Reyes",
		PosterURL:      "https://img.example.com/tt0001.jpg",
		PosterVerified: true,
		Synopsis:       strings.Repeat("A slow-burn thriller set in a coastal town. ", 4),
		Genre:          "Thriller",
		ContentRating:  "PG-13",
		Tags:           []string{"noir", "coastal"},
		RuntimeMinutes: 112,
		Country:        "US",
		Language:       "en",
		SourceIDs:      []string{"imdb", "wikipedia", "tmdb"},
		Ratings: []model.Rating{
			{SourceID: "imdb", Value: 7.8},
			{SourceID: "tmdb", Value: 7.5},
		},
	}
}

func TestCompleteness_FullRecord(t *testing.T) {
	schema := DefaultSchema(120)
	got := Completeness(fullSubject(), schema, 0.40, 0.30, 0.30)
	assert.Equal(t, 1.0, got)
}

func TestCompleteness_EmptyRecord(t *testing.T) {
	schema := DefaultSchema(120)
	got := Completeness(&model.Subject{}, schema, 0.40, 0.30, 0.30)
	assert.Equal(t, 0.0, got)
}

func TestCompleteness_CoreOnly(t *testing.T) {
	schema := DefaultSchema(120)
	s := &model.Subject{Title: "T", Year: 1980, Director: "D", LeadActor: "A"}
	got := Completeness(s, schema, 0.40, 0.30, 0.30)
	assert.Equal(t, 0.40, got)
}

func TestCompleteness_ShortSynopsisHalfCredit(t *testing.T) {
	schema := DefaultSchema(120)

	short := &model.Subject{Synopsis: "Too short to count fully."}
	long := &model.Subject{Synopsis: strings.Repeat("Plenty of descriptive prose here. ", 5)}

	// One of four important fields: half credit 0.5/4*0.30, full credit 1/4*0.30.
	assert.Equal(t, 0.04, Completeness(short, schema, 0.40, 0.30, 0.30))
	assert.Equal(t, 0.08, Completeness(long, schema, 0.40, 0.30, 0.30))
}

func TestCompleteness_WhitespaceIsAbsent(t *testing.T) {
	schema := DefaultSchema(120)
	s := &model.Subject{Title: "   ", Director: "\t"}
	assert.Equal(t, 0.0, Completeness(s, schema, 0.40, 0.30, 0.30))
}

func TestCoreComplete(t *testing.T) {
	schema := DefaultSchema(120)

	assert.True(t, CoreComplete(fullSubject(), schema))
	assert.True(t, CoreComplete(&model.Subject{Title: "T", Year: 1980, Director: "D", LeadActor: "A"}, schema))
	assert.False(t, CoreComplete(&model.Subject{Title: "T", Year: 1980, Director: "D"}, schema))
	assert.False(t, CoreComplete(&model.Subject{Title: "T", Director: "D", LeadActor: "A"}, schema))
}
