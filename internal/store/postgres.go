package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reelindex/catalog-trust/internal/db"
	"github.com/reelindex/catalog-trust/internal/model"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; tests pass a pgxmock pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS subjects (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	year                 INTEGER NOT NULL DEFAULT 0,
	director             TEXT NOT NULL DEFAULT '',
	lead_actor           TEXT NOT NULL DEFAULT '',
	poster_url           TEXT NOT NULL DEFAULT '',
	poster_verified      BOOLEAN NOT NULL DEFAULT FALSE,
	synopsis             TEXT NOT NULL DEFAULT '',
	genre                TEXT NOT NULL DEFAULT '',
	content_rating       TEXT NOT NULL DEFAULT '',
	tags                 JSONB NOT NULL DEFAULT '[]',
	runtime_minutes      INTEGER NOT NULL DEFAULT 0,
	country              TEXT NOT NULL DEFAULT '',
	language             TEXT NOT NULL DEFAULT '',
	imdb_id              TEXT NOT NULL DEFAULT '',
	tmdb_id              TEXT NOT NULL DEFAULT '',
	wikidata_qid         TEXT NOT NULL DEFAULT '',
	source_ids           JSONB NOT NULL DEFAULT '[]',
	ratings              JSONB NOT NULL DEFAULT '[]',
	confidence_score     DOUBLE PRECISION,
	confidence_breakdown JSONB,
	trust_badge          TEXT NOT NULL DEFAULT '',
	field_tiers          JSONB NOT NULL DEFAULT '{}',
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id         BIGSERIAL PRIMARY KEY,
	subject_id TEXT NOT NULL REFERENCES subjects(id),
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
	summary     JSONB NOT NULL,
	report_path TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_subjects_score ON subjects(confidence_score);
CREATE INDEX IF NOT EXISTS idx_subjects_year ON subjects(year);
CREATE INDEX IF NOT EXISTS idx_signals_subject ON signals(subject_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) ListSubjects(ctx context.Context, filter SubjectFilter) ([]model.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if !filter.Rescore {
		if filter.StaleBefore.IsZero() {
			query += ` AND confidence_score IS NULL`
		} else {
			query += ` AND (confidence_score IS NULL OR updated_at < ` + arg(filter.StaleBefore.UTC()) + `)`
		}
	}
	if filter.Genre != "" {
		query += ` AND genre = ` + arg(filter.Genre)
	}
	if filter.Decade > 0 {
		query += ` AND year >= ` + arg(filter.Decade) + ` AND year < ` + arg(filter.Decade+10)
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subjects")
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *subj)
	}
	return subjects, eris.Wrap(rows.Err(), "postgres: iterate subjects")
}

func (s *PostgresStore) UpsertSubject(ctx context.Context, subject model.Subject) error {
	enc, err := encodeSubject(&subject)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO subjects (`+subjectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, year = EXCLUDED.year, director = EXCLUDED.director,
			lead_actor = EXCLUDED.lead_actor, poster_url = EXCLUDED.poster_url,
			poster_verified = EXCLUDED.poster_verified, synopsis = EXCLUDED.synopsis,
			genre = EXCLUDED.genre, content_rating = EXCLUDED.content_rating,
			tags = EXCLUDED.tags, runtime_minutes = EXCLUDED.runtime_minutes,
			country = EXCLUDED.country, language = EXCLUDED.language,
			imdb_id = EXCLUDED.imdb_id, tmdb_id = EXCLUDED.tmdb_id,
			wikidata_qid = EXCLUDED.wikidata_qid, source_ids = EXCLUDED.source_ids,
			ratings = EXCLUDED.ratings, confidence_score = EXCLUDED.confidence_score,
			confidence_breakdown = EXCLUDED.confidence_breakdown,
			trust_badge = EXCLUDED.trust_badge, field_tiers = EXCLUDED.field_tiers,
			updated_at = EXCLUDED.updated_at`,
		subject.ID, subject.Title, subject.Year, subject.Director, subject.LeadActor,
		subject.PosterURL, subject.PosterVerified, subject.Synopsis, subject.Genre,
		subject.ContentRating, enc.tags, subject.RuntimeMinutes, subject.Country,
		subject.Language, subject.IMDbID, subject.TMDbID, subject.WikidataQID,
		enc.sourceIDs, enc.ratings, subject.ConfidenceScore, enc.breakdown,
		string(subject.TrustBadge), enc.fieldTiers, updatedOrNow(subject.UpdatedAt),
	)
	return eris.Wrapf(err, "postgres: upsert subject %s", subject.ID)
}

func (s *PostgresStore) ApplyUpdate(ctx context.Context, update SubjectUpdate) error {
	breakdownJSON, err := json.Marshal(update.Breakdown)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal breakdown")
	}
	tiersJSON, err := json.Marshal(tiersOrEmpty(update.FieldTiers))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal field tiers")
	}

	set := []string{}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, col+" = "+placeholder(len(args)))
	}
	add("confidence_score", update.Score)
	add("confidence_breakdown", string(breakdownJSON))
	add("trust_badge", string(update.Badge))
	add("field_tiers", string(tiersJSON))
	add("updated_at", updatedOrNow(update.UpdatedAt))
	for _, f := range update.Fields {
		col, ok := classifiableColumns[f.Field]
		if !ok {
			return eris.Errorf("postgres: field %q is not writable", f.Field)
		}
		if f.Value == nil {
			continue
		}
		add(col, *f.Value)
	}
	args = append(args, update.SubjectID)

	tag, err := s.pool.Exec(ctx,
		`UPDATE subjects SET `+strings.Join(set, ", ")+` WHERE id = `+placeholder(len(args)), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update subject %s", update.SubjectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: subject %s not found", update.SubjectID)
	}
	return nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, subjectID string) ([]model.Signal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subject_id, field, value, source_id, weight FROM signals WHERE subject_id = $1 ORDER BY id`,
		subjectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list signals for %s", subjectID)
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		if err := rows.Scan(&sig.SubjectID, &sig.Field, &sig.Value, &sig.SourceID, &sig.Weight); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "postgres: iterate signals")
}

func (s *PostgresStore) AddSignal(ctx context.Context, signal model.Signal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signals (subject_id, field, value, source_id, weight) VALUES ($1, $2, $3, $4, $5)`,
		signal.SubjectID, signal.Field, signal.Value, signal.SourceID, signal.Weight,
	)
	return eris.Wrapf(err, "postgres: insert signal for %s", signal.SubjectID)
}

// signalColumns matches the insert order of the single-row path above.
var signalColumns = []string{"subject_id", "field", "value", "source_id", "weight"}

func (s *PostgresStore) AddSignals(ctx context.Context, signals []model.Signal) error {
	rows := make([][]any, 0, len(signals))
	for _, sig := range signals {
		rows = append(rows, []any{sig.SubjectID, sig.Field, sig.Value, sig.SourceID, sig.Weight})
	}
	_, err := db.CopyFrom(ctx, s.pool, "signals", signalColumns, rows)
	return eris.Wrap(err, "postgres: bulk insert signals")
}

func (s *PostgresStore) SaveRun(ctx context.Context, run RunRecord) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dry_run, summary, report_path) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.DryRun, string(summaryJSON), run.ReportPath,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
