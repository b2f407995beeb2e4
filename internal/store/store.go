// Package store persists subjects, signals, and run records. Two backends
// implement the same interface: SQLite for local runs, Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/reelindex/catalog-trust/internal/audit"
	"github.com/reelindex/catalog-trust/internal/model"
)

// SubjectFilter selects the batch working set. Zero values mean "no filter".
type SubjectFilter struct {
	// Genre restricts to subjects currently carrying this genre.
	Genre string
	// Decade restricts by release decade, e.g. 1970 covers 1970-1979.
	Decade int
	// StaleBefore widens "needs scoring" from score-is-null to
	// score-is-null-or-updated-before-this.
	StaleBefore time.Time
	// Rescore includes every subject regardless of current score state.
	Rescore bool
	Limit   int
}

// SubjectUpdate is the atomic per-subject write produced by one run: the
// recomputed trust outputs plus any guard-approved field fills. It is
// applied as a single unit, never partially.
type SubjectUpdate struct {
	SubjectID  string
	Score      float64
	Badge      model.TrustBadge
	Breakdown  model.ConfidenceBreakdown
	Fields     []model.FieldUpdate
	FieldTiers map[string]model.ConfidenceTier
	UpdatedAt  time.Time
}

// RunRecord summarizes a finished batch run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Summary    audit.Summary
	ReportPath string
}

// Store defines the persistence interface for the trust engine.
type Store interface {
	// Ping verifies the backend is reachable. The batch aborts only when
	// this precondition fails.
	Ping(ctx context.Context) error

	// Subjects
	ListSubjects(ctx context.Context, filter SubjectFilter) ([]model.Subject, error)
	UpsertSubject(ctx context.Context, subject model.Subject) error
	ApplyUpdate(ctx context.Context, update SubjectUpdate) error

	// Signals
	ListSignals(ctx context.Context, subjectID string) ([]model.Signal, error)
	AddSignal(ctx context.Context, signal model.Signal) error
	// AddSignals loads a whole batch in one round trip; imports go through
	// here instead of AddSignal.
	AddSignals(ctx context.Context, signals []model.Signal) error

	// Runs
	SaveRun(ctx context.Context, run RunRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// classifiableColumns whitelists the categorical fields the guard may write,
// mapping field keys to their column names.
var classifiableColumns = map[string]string{
	model.FieldGenre:         "genre",
	model.FieldContentRating: "content_rating",
}
