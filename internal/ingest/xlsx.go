// Package ingest loads catalog records and classification signals from
// spreadsheet exports. Columns are matched by header name, so exports can
// carry extra columns or reorder them freely.
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/reelindex/catalog-trust/internal/model"
)

// SubjectSheet and SignalSheet are the default sheet names in a catalog export.
const (
	SubjectSheet = "Subjects"
	SignalSheet  = "Signals"
)

// ReadSubjects parses the subjects sheet of an export workbook. The first row
// must be a header; id and title are required per row, everything else is
// optional.
func ReadSubjects(path, sheetName string) ([]model.Subject, error) {
	rows, header, err := readSheet(path, sheetName)
	if err != nil {
		return nil, err
	}

	var subjects []model.Subject
	for i, row := range rows {
		get := cellGetter(header, row)

		subj := model.Subject{
			ID:            get("id"),
			Title:         get("title"),
			Director:      get("director"),
			LeadActor:     get("lead_actor"),
			PosterURL:     get("poster_url"),
			Synopsis:      get("synopsis"),
			Genre:         get("genre"),
			ContentRating: get("content_rating"),
			Country:       get("country"),
			Language:      get("language"),
			IMDbID:        get("imdb_id"),
			TMDbID:        get("tmdb_id"),
			WikidataQID:   get("wikidata_qid"),
			Tags:          splitList(get("tags")),
			SourceIDs:     splitList(get("source_ids")),
		}
		if subj.ID == "" || subj.Title == "" {
			return nil, eris.Errorf("ingest: row %d missing id or title", i+2)
		}
		if v := get("year"); v != "" {
			subj.Year, err = strconv.Atoi(v)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: row %d year", i+2)
			}
		}
		if v := get("runtime_minutes"); v != "" {
			subj.RuntimeMinutes, err = strconv.Atoi(v)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: row %d runtime_minutes", i+2)
			}
		}
		subj.Ratings, err = parseRatings(get("ratings"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d ratings", i+2)
		}

		subjects = append(subjects, subj)
	}
	return subjects, nil
}

// ReadSignals parses the signals sheet. A missing sheet is not an error; an
// export without signals just yields none.
func ReadSignals(path, sheetName string) ([]model.Signal, error) {
	rows, header, err := readSheet(path, sheetName)
	if err != nil {
		if eris.Is(err, errSheetMissing) {
			return nil, nil
		}
		return nil, err
	}

	var signals []model.Signal
	for i, row := range rows {
		get := cellGetter(header, row)

		sig := model.Signal{
			SubjectID: get("subject_id"),
			Field:     get("field"),
			Value:     get("value"),
			SourceID:  get("source_id"),
		}
		if sig.SubjectID == "" || sig.Field == "" || sig.Value == "" {
			return nil, eris.Errorf("ingest: signal row %d missing subject_id, field, or value", i+2)
		}
		if v := get("weight"); v != "" {
			sig.Weight, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: signal row %d weight", i+2)
			}
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

var errSheetMissing = eris.New("ingest: sheet not found")

func readSheet(path, sheetName string) ([][]string, map[string]int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open %s", path)
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, nil, eris.Wrapf(errSheetMissing, "ingest: %q in %s", sheetName, path)
	}
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.Errorf("ingest: sheet %q is empty", sheetName)
	}

	header := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		key := strings.ToLower(strings.TrimSpace(cell.String()))
		if key != "" {
			header[key] = i
		}
	}

	var rows [][]string
	for _, row := range sheet.Rows[1:] {
		cells := make([]string, len(row.Cells))
		blank := true
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.String())
			if cells[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, cells)
	}
	return rows, header, nil
}

func cellGetter(header map[string]int, row []string) func(string) string {
	return func(key string) string {
		idx, ok := header[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}
}

// splitList parses "a; b; c" or "a, b, c" into a trimmed slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRatings parses "imdb:7.8; tmdb:7.5" pairs on the 0-10 scale.
func parseRatings(s string) ([]model.Rating, error) {
	if s == "" {
		return nil, nil
	}
	var ratings []model.Rating
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		source, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, eris.Errorf("ingest: rating %q is not source:value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: rating %q", pair)
		}
		ratings = append(ratings, model.Rating{
			SourceID: strings.TrimSpace(source),
			Value:    v,
		})
	}
	return ratings, nil
}
