// Package engine coordinates a batch scoring run. All run state lives on a
// coordinator constructed per run invocation; there are no package-level
// counters, so runs are parallel- and test-isolated.
package engine

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelindex/catalog-trust/internal/audit"
	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/consensus"
	"github.com/reelindex/catalog-trust/internal/guard"
	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/probe"
	"github.com/reelindex/catalog-trust/internal/scorer"
	"github.com/reelindex/catalog-trust/internal/store"
)

// Options are the per-invocation knobs of a run.
type Options struct {
	Limit         int
	DryRun        bool
	Verbose       bool
	Genre         string
	Decade        int
	Rescore       bool
	VerifyPosters bool
}

// Engine runs the scoring pipeline over a batch of subjects.
type Engine struct {
	store    store.Store
	composer *scorer.Composer
	deriver  *consensus.Deriver
	prober   *probe.Prober
	cfg      config.EngineConfig
	auditDir string
	now      func() time.Time
}

// New creates an Engine. The prober may be nil when poster verification is
// not wanted.
func New(st store.Store, composer *scorer.Composer, deriver *consensus.Deriver, prober *probe.Prober, cfg config.EngineConfig, auditDir string) *Engine {
	return &Engine{
		store:    st,
		composer: composer,
		deriver:  deriver,
		prober:   prober,
		cfg:      cfg,
		auditDir: auditDir,
		now:      time.Now,
	}
}

// RunResult reports the outcome of one batch run.
type RunResult struct {
	RunID      string
	Subjects   int
	Summary    audit.Summary
	Report     *audit.Report
	ReportPath string
}

// subjectResult carries one subject's computed outcome back to the reducer.
type subjectResult struct {
	counts audit.Summary
	cases  []audit.Case
}

// Run executes one batch. The store being unreachable at start is the only
// condition that aborts; per-subject I/O failures are counted and retried
// naturally on the next scheduled run.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunResult, error) {
	runID := uuid.New().String()
	started := e.now().UTC()
	log := zap.L().With(zap.String("run_id", runID))

	if err := e.store.Ping(ctx); err != nil {
		return nil, eris.Wrap(err, "engine: record store unreachable")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.BatchSize
	}
	filter := store.SubjectFilter{
		Genre:   opts.Genre,
		Decade:  opts.Decade,
		Rescore: opts.Rescore,
		Limit:   limit,
	}
	if e.cfg.StaleAfterHours > 0 {
		filter.StaleBefore = started.Add(-time.Duration(e.cfg.StaleAfterHours) * time.Hour)
	}

	subjects, err := e.store.ListSubjects(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list subjects")
	}
	log.Info("batch loaded",
		zap.Int("subjects", len(subjects)),
		zap.Bool("dry_run", opts.DryRun),
	)

	var verified map[string]bool
	if opts.VerifyPosters && e.prober != nil {
		verified = e.prober.VerifyPosters(ctx, subjects)
	}

	// Per-subject scoring is pure and independent; results land in an
	// index-addressed slice so workers share nothing.
	results := make([]*subjectResult, len(subjects))
	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range subjects {
		i := i
		g.Go(func() error {
			results[i] = e.processSubject(gctx, subjects[i], verified, opts, started)
			return nil
		})
	}
	_ = g.Wait()

	report := audit.NewReport(runID, opts.DryRun, started)
	var summary audit.Summary
	for _, r := range results {
		if r == nil {
			continue
		}
		mergeSummary(&summary, r.counts)
		for _, c := range r.cases {
			report.AddCase(c)
		}
	}
	report.Summary = summary

	reportPath, err := report.WriteJSON(e.auditDir)
	if err != nil {
		log.Warn("audit report not written", zap.Error(err))
		reportPath = ""
	}

	finished := e.now().UTC()
	if !opts.DryRun {
		if err := e.store.SaveRun(ctx, store.RunRecord{
			ID:         runID,
			StartedAt:  started,
			FinishedAt: finished,
			DryRun:     opts.DryRun,
			Summary:    summary,
			ReportPath: reportPath,
		}); err != nil {
			log.Warn("run record not saved", zap.Error(err))
		}
	}

	log.Info("run complete",
		zap.Int("subjects", len(subjects)),
		zap.Int("scored", summary.Scored),
		zap.Int("filled_high", summary.FilledHigh),
		zap.Int("filled_medium", summary.FilledMedium),
		zap.Int("skipped_ambiguous", summary.SkippedAmbiguous),
		zap.Int("skipped_insufficient", summary.SkippedInsufficient),
		zap.Int("skipped_authoritative", summary.SkippedAuthoritative),
		zap.Int("failed_io", summary.FailedIO),
		zap.Int("manual_review", report.ManualReviewCount()),
	)

	return &RunResult{
		RunID:      runID,
		Subjects:   len(subjects),
		Summary:    summary,
		Report:     report,
		ReportPath: reportPath,
	}, nil
}

// processSubject scores one subject, derives classifications for its
// categorical fields, reconciles them through the update policy guard, and
// writes the result as one unit unless the run is dry.
func (e *Engine) processSubject(ctx context.Context, subj model.Subject, verified map[string]bool, opts Options, now time.Time) *subjectResult {
	r := &subjectResult{}
	log := zap.L().With(zap.String("subject_id", subj.ID))

	if v, ok := verified[subj.ID]; ok {
		subj.PosterVerified = v
	}

	composed := e.composer.Compose(&subj, now)

	signals, err := e.store.ListSignals(ctx, subj.ID)
	if err != nil {
		r.counts.FailedIO++
		log.Warn("signals unavailable, subject deferred to next run", zap.Error(err))
		return r
	}

	var proposals []model.FieldUpdate
	for _, field := range e.cfg.Fields {
		current, _ := subj.CategoricalValue(field)
		outcome := e.deriver.Derive(field, signals)

		if outcome.Accepted() {
			proposals = append(proposals, model.FieldUpdate{
				Field: field,
				Value: outcome.Value,
				Tier:  outcome.Tier,
			})
			continue
		}

		// A field that is already populated and attracted no usable
		// consensus is simply left alone.
		if outcome.AmbiguityReason == model.ReasonNoSignals {
			if current == nil {
				r.counts.SkippedInsufficient++
			}
			continue
		}

		if outcome.AmbiguityReason == model.ReasonMarginTooNarrow {
			r.counts.SkippedAmbiguous++
		} else {
			r.counts.SkippedInsufficient++
		}
		r.cases = append(r.cases, audit.Case{
			SubjectID:  subj.ID,
			Title:      subj.Title,
			Field:      field,
			Reason:     consensus.Describe(outcome),
			Candidates: outcome.Candidates,
		})
	}

	applied, decisions := guard.Filter(&subj, proposals)

	tiers := maps.Clone(subj.FieldTiers)
	if tiers == nil {
		tiers = make(map[string]model.ConfidenceTier)
	}
	for _, u := range applied {
		tiers[u.Field] = u.Tier
		switch u.Tier {
		case model.TierHigh:
			r.counts.FilledHigh++
		default:
			r.counts.FilledMedium++
		}
	}
	for _, d := range decisions {
		if !d.Apply && d.Reason != guard.SkipNullValue {
			r.counts.SkippedAuthoritative++
		}
	}

	if opts.Verbose {
		log.Info("subject scored",
			zap.Float64("score", composed.Score),
			zap.String("badge", string(composed.Badge)),
			zap.Int("sources", composed.Breakdown.SourceCount),
			zap.Float64("completeness", composed.Breakdown.FieldCompleteness),
			zap.Int("fields_filled", len(applied)),
		)
	}

	if opts.DryRun {
		r.counts.Scored++
		return r
	}

	if err := e.store.ApplyUpdate(ctx, store.SubjectUpdate{
		SubjectID:  subj.ID,
		Score:      composed.Score,
		Badge:      composed.Badge,
		Breakdown:  composed.Breakdown,
		Fields:     applied,
		FieldTiers: tiers,
		UpdatedAt:  now,
	}); err != nil {
		r.counts.FailedIO++
		log.Warn("subject write failed, retried on next run", zap.Error(err))
		return r
	}
	r.counts.Scored++
	return r
}

func mergeSummary(dst *audit.Summary, src audit.Summary) {
	dst.Scored += src.Scored
	dst.FilledHigh += src.FilledHigh
	dst.FilledMedium += src.FilledMedium
	dst.SkippedAmbiguous += src.SkippedAmbiguous
	dst.SkippedInsufficient += src.SkippedInsufficient
	dst.SkippedAuthoritative += src.SkippedAuthoritative
	dst.FailedIO += src.FailedIO
}
