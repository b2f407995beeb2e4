// Package audit aggregates ambiguous and low-confidence outcomes from a
// batch run into a reviewable document. It is the designated escape hatch to
// human review instead of silent guessing.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/reelindex/catalog-trust/internal/model"
)

// Summary counts batch outcomes by kind.
type Summary struct {
	Scored               int `json:"scored"`
	FilledHigh           int `json:"filled_high"`
	FilledMedium         int `json:"filled_medium"`
	SkippedAmbiguous     int `json:"skipped_ambiguous"`
	SkippedInsufficient  int `json:"skipped_insufficient_evidence"`
	SkippedAuthoritative int `json:"skipped_already_authoritative"`
	FailedIO             int `json:"failed_io"`
}

// Case is one ambiguous or low-confidence classification held for review,
// with every candidate and weight preserved.
type Case struct {
	SubjectID  string            `json:"subject_id"`
	Title      string            `json:"title"`
	Field      string            `json:"field"`
	Reason     string            `json:"reason"`
	Candidates []model.Candidate `json:"candidates,omitempty"`
}

// Report is the audit document for one run.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	DryRun      bool      `json:"dry_run"`
	Summary     Summary   `json:"summary"`
	Cases       []Case    `json:"cases"`
	Limitations []string  `json:"limitations"`
}

// KnownLimitations is the fixed disclosure section attached to every report.
var KnownLimitations = []string{
	"Signals are taken at face value; the engine does not verify that upstream enrichment attributed the correct source.",
	"Completeness measures presence, not correctness: a populated field with a wrong value scores the same as a right one.",
	"Alignment is computed from normalized ratings only; a subject with a single rating carries no alignment signal either way.",
	"Temporal decay keys off the record's update time, not the age of the underlying facts.",
}

// NewReport creates an empty report for a run.
func NewReport(runID string, dryRun bool, generatedAt time.Time) *Report {
	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		DryRun:      dryRun,
		Limitations: KnownLimitations,
	}
}

// AddCase appends a review case.
func (r *Report) AddCase(c Case) {
	r.Cases = append(r.Cases, c)
}

// ManualReviewCount is the number of rows a human needs to look at.
func (r *Report) ManualReviewCount() int {
	return len(r.Cases)
}

// FileName returns the timestamped base name for this report.
func (r *Report) FileName() string {
	return fmt.Sprintf("trust-audit-%s.json", r.GeneratedAt.Format("20060102-150405"))
}

// WriteJSON persists the report under dir, creating it if needed, and
// returns the written path.
func (r *Report) WriteJSON(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "audit: create report dir %s", dir)
	}
	path := filepath.Join(dir, r.FileName())

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "audit: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "audit: write %s", path)
	}
	return path, nil
}

// LoadJSON reads a report previously written by WriteJSON.
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: read %s", path)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "audit: parse %s", path)
	}
	return &r, nil
}

// LatestJSON returns the most recently generated report path in dir.
func LatestJSON(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "trust-audit-*.json"))
	if err != nil {
		return "", eris.Wrapf(err, "audit: glob %s", dir)
	}
	if len(matches) == 0 {
		return "", eris.Errorf("audit: no reports found in %s", dir)
	}
	latest := matches[0]
	for _, m := range matches[1:] {
		if m > latest {
			latest = m
		}
	}
	return latest, nil
}
