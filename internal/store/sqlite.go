package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reelindex/catalog-trust/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS subjects (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	year                 INTEGER NOT NULL DEFAULT 0,
	director             TEXT NOT NULL DEFAULT '',
	lead_actor           TEXT NOT NULL DEFAULT '',
	poster_url           TEXT NOT NULL DEFAULT '',
	poster_verified      INTEGER NOT NULL DEFAULT 0,
	synopsis             TEXT NOT NULL DEFAULT '',
	genre                TEXT NOT NULL DEFAULT '',
	content_rating       TEXT NOT NULL DEFAULT '',
	tags                 TEXT NOT NULL DEFAULT '[]',
	runtime_minutes      INTEGER NOT NULL DEFAULT 0,
	country              TEXT NOT NULL DEFAULT '',
	language             TEXT NOT NULL DEFAULT '',
	imdb_id              TEXT NOT NULL DEFAULT '',
	tmdb_id              TEXT NOT NULL DEFAULT '',
	wikidata_qid         TEXT NOT NULL DEFAULT '',
	source_ids           TEXT NOT NULL DEFAULT '[]',
	ratings              TEXT NOT NULL DEFAULT '[]',
	confidence_score     REAL,
	confidence_breakdown TEXT,
	trust_badge          TEXT NOT NULL DEFAULT '',
	field_tiers          TEXT NOT NULL DEFAULT '{}',
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id TEXT NOT NULL REFERENCES subjects(id),
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	weight     REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	summary     TEXT NOT NULL,
	report_path TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_subjects_score ON subjects(confidence_score);
CREATE INDEX IF NOT EXISTS idx_subjects_year ON subjects(year);
CREATE INDEX IF NOT EXISTS idx_signals_subject ON signals(subject_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

const subjectColumns = `id, title, year, director, lead_actor, poster_url, poster_verified,
	synopsis, genre, content_rating, tags, runtime_minutes, country, language,
	imdb_id, tmdb_id, wikidata_qid, source_ids, ratings,
	confidence_score, confidence_breakdown, trust_badge, field_tiers, updated_at`

func (s *SQLiteStore) ListSubjects(ctx context.Context, filter SubjectFilter) ([]model.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE 1=1`
	var args []any

	if !filter.Rescore {
		if filter.StaleBefore.IsZero() {
			query += ` AND confidence_score IS NULL`
		} else {
			query += ` AND (confidence_score IS NULL OR updated_at < ?)`
			args = append(args, filter.StaleBefore.UTC())
		}
	}
	if filter.Genre != "" {
		query += ` AND genre = ?`
		args = append(args, filter.Genre)
	}
	if filter.Decade > 0 {
		query += ` AND year >= ? AND year < ?`
		args = append(args, filter.Decade, filter.Decade+10)
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subjects")
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
	return subjects, eris.Wrap(rows.Err(), "sqlite: iterate subjects")
}

func (s *SQLiteStore) UpsertSubject(ctx context.Context, subject model.Subject) error {
	enc, err := encodeSubject(&subject)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO subjects (`+subjectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subject.ID, subject.Title, subject.Year, subject.Director, subject.LeadActor,
		subject.PosterURL, subject.PosterVerified, subject.Synopsis, subject.Genre,
		subject.ContentRating, enc.tags, subject.RuntimeMinutes, subject.Country,
		subject.Language, subject.IMDbID, subject.TMDbID, subject.WikidataQID,
		enc.sourceIDs, enc.ratings, subject.ConfidenceScore, enc.breakdown,
		string(subject.TrustBadge), enc.fieldTiers, updatedOrNow(subject.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: upsert subject %s", subject.ID)
}

func (s *SQLiteStore) ApplyUpdate(ctx context.Context, update SubjectUpdate) error {
	breakdownJSON, err := json.Marshal(update.Breakdown)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal breakdown")
	}
	tiersJSON, err := json.Marshal(tiersOrEmpty(update.FieldTiers))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal field tiers")
	}

	// One UPDATE statement per subject keeps score, breakdown, badge, and
	// field fills a single unit.
	set := []string{
		"confidence_score = ?",
		"confidence_breakdown = ?",
		"trust_badge = ?",
		"field_tiers = ?",
		"updated_at = ?",
	}
	args := []any{
		update.Score, string(breakdownJSON), string(update.Badge),
		string(tiersJSON), updatedOrNow(update.UpdatedAt),
	}
	for _, f := range update.Fields {
		col, ok := classifiableColumns[f.Field]
		if !ok {
			return eris.Errorf("sqlite: field %q is not writable", f.Field)
		}
		if f.Value == nil {
			continue
		}
		set = append(set, col+" = ?")
		args = append(args, *f.Value)
	}
	args = append(args, update.SubjectID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update subject %s", update.SubjectID)
	}
	return checkRowsAffected(res, "subject", update.SubjectID)
}

func (s *SQLiteStore) ListSignals(ctx context.Context, subjectID string) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, field, value, source_id, weight FROM signals WHERE subject_id = ? ORDER BY id`,
		subjectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list signals for %s", subjectID)
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		if err := rows.Scan(&sig.SubjectID, &sig.Field, &sig.Value, &sig.SourceID, &sig.Weight); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal")
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "sqlite: iterate signals")
}

func (s *SQLiteStore) AddSignal(ctx context.Context, signal model.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (subject_id, field, value, source_id, weight) VALUES (?, ?, ?, ?, ?)`,
		signal.SubjectID, signal.Field, signal.Value, signal.SourceID, signal.Weight,
	)
	return eris.Wrapf(err, "sqlite: insert signal for %s", signal.SubjectID)
}

func (s *SQLiteStore) AddSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin signal batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO signals (subject_id, field, value, source_id, weight) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare signal insert")
	}
	defer stmt.Close()

	for _, sig := range signals {
		if _, err := stmt.ExecContext(ctx, sig.SubjectID, sig.Field, sig.Value, sig.SourceID, sig.Weight); err != nil {
			return eris.Wrapf(err, "sqlite: insert signal for %s", sig.SubjectID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit signal batch")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dry_run, summary, report_path) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.DryRun, string(summaryJSON), run.ReportPath,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

// --- helpers shared by both backends ---

type encodedSubject struct {
	tags, sourceIDs, ratings, fieldTiers string
	breakdown                            *string
}

func encodeSubject(subject *model.Subject) (*encodedSubject, error) {
	tags, err := json.Marshal(emptyIfNil(subject.Tags))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal tags")
	}
	sourceIDs, err := json.Marshal(emptyIfNil(subject.SourceIDs))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal source ids")
	}
	ratings, err := json.Marshal(subject.Ratings)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal ratings")
	}
	tiers, err := json.Marshal(tiersOrEmpty(subject.FieldTiers))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal field tiers")
	}

	enc := &encodedSubject{
		tags:       string(tags),
		sourceIDs:  string(sourceIDs),
		ratings:    string(ratings),
		fieldTiers: string(tiers),
	}
	if subject.Breakdown != nil {
		b, err := json.Marshal(subject.Breakdown)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal breakdown")
		}
		bs := string(b)
		enc.breakdown = &bs
	}
	return enc, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubject(row scannable) (*model.Subject, error) {
	var (
		subj          model.Subject
		tagsJSON      string
		sourcesJSON   string
		ratingsJSON   string
		tiersJSON     string
		breakdownJSON sql.NullString
		badge         string
	)
	err := row.Scan(
		&subj.ID, &subj.Title, &subj.Year, &subj.Director, &subj.LeadActor,
		&subj.PosterURL, &subj.PosterVerified, &subj.Synopsis, &subj.Genre,
		&subj.ContentRating, &tagsJSON, &subj.RuntimeMinutes, &subj.Country,
		&subj.Language, &subj.IMDbID, &subj.TMDbID, &subj.WikidataQID,
		&sourcesJSON, &ratingsJSON, &subj.ConfidenceScore, &breakdownJSON,
		&badge, &tiersJSON, &subj.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan subject")
	}

	subj.TrustBadge = model.TrustBadge(badge)
	if err := json.Unmarshal([]byte(tagsJSON), &subj.Tags); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal tags")
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &subj.SourceIDs); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal source ids")
	}
	if ratingsJSON != "" {
		if err := json.Unmarshal([]byte(ratingsJSON), &subj.Ratings); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal ratings")
		}
	}
	if err := json.Unmarshal([]byte(tiersJSON), &subj.FieldTiers); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal field tiers")
	}
	if breakdownJSON.Valid && breakdownJSON.String != "" {
		var b model.ConfidenceBreakdown
		if err := json.Unmarshal([]byte(breakdownJSON.String), &b); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal breakdown")
		}
		subj.Breakdown = &b
	}
	return &subj, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "store: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("store: %s %s not found", kind, id)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func tiersOrEmpty(m map[string]model.ConfidenceTier) map[string]model.ConfidenceTier {
	if m == nil {
		return map[string]model.ConfidenceTier{}
	}
	return m
}

func updatedOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
