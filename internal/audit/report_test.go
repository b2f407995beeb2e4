package audit

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/reelindex/catalog-trust/internal/model"
)

var reportTime = time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)

func sampleReport() *Report {
	r := NewReport("run-42", false, reportTime)
	r.Summary = Summary{
		Scored:              10,
		FilledHigh:          3,
		FilledMedium:        2,
		SkippedAmbiguous:    1,
		SkippedInsufficient: 2,
	}
	r.AddCase(Case{
		SubjectID: "tt0003",
		Title:     "Glass Orchard",
		Field:     "genre",
		Reason:    `margin between "Drama" and "Romance" too narrow`,
		Candidates: []model.Candidate{
			{Value: "Drama", Weight: 0.75, Sources: []string{"tmdb"}},
			{Value: "Romance", Weight: 0.70, Sources: []string{"omdb"}},
		},
	})
	return r
}

func TestNewReport_CarriesFixedLimitations(t *testing.T) {
	r := NewReport("run-1", true, reportTime)

	assert.Equal(t, "run-1", r.RunID)
	assert.True(t, r.DryRun)
	assert.Equal(t, KnownLimitations, r.Limitations)
	assert.Len(t, r.Limitations, 4)
}

func TestManualReviewCount(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 1, r.ManualReviewCount())
}

func TestFileName(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, "trust-audit-20260825-093000.json", r.FileName())
}

func TestWriteAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()

	path, err := r.WriteJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, r.FileName()), path)

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, loaded.RunID)
	assert.Equal(t, r.Summary, loaded.Summary)
	require.Len(t, loaded.Cases, 1)
	assert.Equal(t, "Glass Orchard", loaded.Cases[0].Title)
	assert.Equal(t, KnownLimitations, loaded.Limitations)
}

func TestWriteJSON_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	_, err := sampleReport().WriteJSON(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestLatestJSON(t *testing.T) {
	dir := t.TempDir()

	older := NewReport("run-a", false, reportTime.Add(-time.Hour))
	newer := NewReport("run-b", false, reportTime)
	_, err := older.WriteJSON(dir)
	require.NoError(t, err)
	newest, err := newer.WriteJSON(dir)
	require.NoError(t, err)

	got, err := LatestJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, newest, got)
}

func TestLatestJSON_EmptyDir(t *testing.T) {
	_, err := LatestJSON(t.TempDir())
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "Glass Orchard")
	assert.Contains(t, out, "manual review")
	assert.Contains(t, out, "Known limitations:")
}

func TestRender_DryRunMarked(t *testing.T) {
	var buf bytes.Buffer
	NewReport("run-dry", true, reportTime).Render(&buf)
	assert.Contains(t, buf.String(), "dry run")
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().Markdown(&buf)

	out := buf.String()
	assert.Contains(t, out, "# Trust audit run-42")
	assert.Contains(t, out, "| genre |")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteCSV(&buf))

	out := buf.String()
	assert.Contains(t, out, "Subject,Title,Field,Reason,Candidates")
	assert.Contains(t, out, "tt0003")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.xlsx")
	require.NoError(t, sampleReport().WriteXLSX(path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Contains(t, f.Sheet, "Summary")
	assert.Contains(t, f.Sheet, "Cases")
}
