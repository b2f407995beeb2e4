package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelindex/catalog-trust/internal/audit"
	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/consensus"
	"github.com/reelindex/catalog-trust/internal/model"
	"github.com/reelindex/catalog-trust/internal/registry"
	"github.com/reelindex/catalog-trust/internal/scorer"
	"github.com/reelindex/catalog-trust/internal/store"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu       sync.Mutex
	subjects []model.Subject
	signals  map[string][]model.Signal
	updates  []store.SubjectUpdate
	runs     []store.RunRecord

	pingErr  error
	applyErr map[string]error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListSubjects(_ context.Context, filter store.SubjectFilter) ([]model.Subject, error) {
	out := make([]model.Subject, len(f.subjects))
	copy(out, f.subjects)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpsertSubject(_ context.Context, s model.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, s)
	return nil
}

func (f *fakeStore) ApplyUpdate(_ context.Context, u store.SubjectUpdate) error {
	if err := f.applyErr[u.SubjectID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeStore) ListSignals(_ context.Context, subjectID string) ([]model.Signal, error) {
	return f.signals[subjectID], nil
}

func (f *fakeStore) AddSignal(_ context.Context, s model.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals[s.SubjectID] = append(f.signals[s.SubjectID], s)
	return nil
}

func (f *fakeStore) AddSignals(_ context.Context, sigs []model.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range sigs {
		f.signals[s.SubjectID] = append(f.signals[s.SubjectID], s)
	}
	return nil
}

func (f *fakeStore) SaveRun(_ context.Context, r store.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func sig(id, field, value, source string, weight float64) model.Signal {
	return model.Signal{SubjectID: id, Field: field, Value: value, SourceID: source, Weight: weight}
}

func newTestEngine(st store.Store, auditDir string) *Engine {
	reg := registry.Default()
	cfg := config.EngineConfig{
		BatchSize:   50,
		Concurrency: 2,
		Fields:      []string{model.FieldGenre, model.FieldContentRating},
	}
	return New(st,
		scorer.NewComposer(scorer.DefaultScorerConfig(), reg),
		consensus.NewDeriver(config.ConsensusConfig{Threshold: 0.65, AmbiguityMargin: 0.10}, reg),
		nil, cfg, auditDir)
}

func batchFixture() *fakeStore {
	return &fakeStore{
		subjects: []model.Subject{
			// Clear consensus: genre fills at high tier.
			{ID: "m1", Title: "First", Year: 1970, Director: "D", LeadActor: "A", SourceIDs: []string{"imdb"}},
			// Two close candidates: held for review.
			{ID: "m2", Title: "Second", Year: 1980, Director: "D", LeadActor: "A", SourceIDs: []string{"tmdb"}},
			// Already classified at high tier: consensus must not displace it.
			{ID: "m3", Title: "Third", Year: 1990, Director: "D", LeadActor: "A", SourceIDs: []string{"imdb"},
				Genre:      "Drama",
				FieldTiers: map[string]model.ConfidenceTier{model.FieldGenre: model.TierHigh}},
			// Store write fails for this one.
			{ID: "m4", Title: "Fourth", Year: 2000, Director: "D", LeadActor: "A", SourceIDs: []string{"imdb"}},
		},
		signals: map[string][]model.Signal{
			"m1": {
				sig("m1", "genre", "Horror", "imdb", 0.95),
				sig("m1", "genre", "Horror", "tmdb", 0.75),
			},
			"m2": {
				sig("m2", "genre", "Action", "tmdb", 0.40),
				sig("m2", "genre", "Adventure", "omdb", 0.35),
			},
			"m3": {
				sig("m3", "genre", "Romance", "imdb", 0.95),
			},
		},
		applyErr: map[string]error{"m4": eris.New("disk full")},
	}
}

func TestRun_UnreachableStoreAborts(t *testing.T) {
	st := &fakeStore{pingErr: eris.New("connection refused")}
	eng := newTestEngine(st, t.TempDir())

	_, err := eng.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestRun_BatchOutcomes(t *testing.T) {
	st := batchFixture()
	eng := newTestEngine(st, t.TempDir())

	res, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Subjects)
	assert.Equal(t, audit.Summary{
		Scored:       3,
		FilledHigh:   1,
		FilledMedium: 0,
		// m2's genre is held for review.
		SkippedAmbiguous: 1,
		// content_rating has no signals on any subject, and m4 has no
		// genre signals either.
		SkippedInsufficient: 5,
		// m3's Romance proposal loses to the incumbent high-tier Drama.
		SkippedAuthoritative: 1,
		FailedIO:             1,
	}, res.Summary)

	// One write per successfully scored subject.
	require.Len(t, st.updates, 3)
	byID := make(map[string]store.SubjectUpdate, len(st.updates))
	for _, u := range st.updates {
		byID[u.SubjectID] = u
	}

	m1 := byID["m1"]
	require.Len(t, m1.Fields, 1)
	assert.Equal(t, "Horror", *m1.Fields[0].Value)
	assert.Equal(t, model.TierHigh, m1.Fields[0].Tier)
	assert.Equal(t, model.TierHigh, m1.FieldTiers[model.FieldGenre])

	m3 := byID["m3"]
	assert.Empty(t, m3.Fields)
	assert.Equal(t, model.TierHigh, m3.FieldTiers[model.FieldGenre])

	// Audit report carries the ambiguous case and the run was recorded.
	require.Len(t, res.Report.Cases, 1)
	assert.Equal(t, "m2", res.Report.Cases[0].SubjectID)
	assert.Len(t, st.runs, 1)
	assert.NotEmpty(t, res.ReportPath)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	st := batchFixture()
	eng := newTestEngine(st, t.TempDir())

	res, err := eng.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, st.updates)
	assert.Empty(t, st.runs)
	assert.True(t, res.Report.DryRun)

	// Decisions are identical to a real run; only the write step differs,
	// so the would-have-failed write never happens.
	assert.Equal(t, 4, res.Summary.Scored)
	assert.Equal(t, 0, res.Summary.FailedIO)
	assert.Equal(t, 1, res.Summary.SkippedAmbiguous)
	require.Len(t, res.Report.Cases, 1)
	assert.Equal(t, "m2", res.Report.Cases[0].SubjectID)
}

func TestRun_LimitRestrictsBatch(t *testing.T) {
	st := batchFixture()
	eng := newTestEngine(st, t.TempDir())

	res, err := eng.Run(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Subjects)
}
