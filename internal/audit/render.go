package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/reelindex/catalog-trust/internal/model"
)

// summaryRows returns the run summary as label/count pairs in display order.
func (r *Report) summaryRows() [][2]string {
	s := r.Summary
	return [][2]string{
		{"scored", fmt.Sprintf("%d", s.Scored)},
		{"filled-high", fmt.Sprintf("%d", s.FilledHigh)},
		{"filled-medium", fmt.Sprintf("%d", s.FilledMedium)},
		{"skipped-ambiguous", fmt.Sprintf("%d", s.SkippedAmbiguous)},
		{"skipped-insufficient-evidence", fmt.Sprintf("%d", s.SkippedInsufficient)},
		{"skipped-already-authoritative", fmt.Sprintf("%d", s.SkippedAuthoritative)},
		{"failed-io", fmt.Sprintf("%d", s.FailedIO)},
		{"manual-review", fmt.Sprintf("%d", r.ManualReviewCount())},
	}
}

var caseHeader = []string{"Subject", "Title", "Field", "Reason", "Candidates"}

func (c Case) row() []string {
	return []string{c.SubjectID, c.Title, c.Field, c.Reason, formatCandidates(c.Candidates)}
}

func formatCandidates(candidates []model.Candidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s (%.2f via %s)", c.Value, c.Weight, strings.Join(c.Sources, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Render writes the report to w as terminal tables.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Trust audit %s, generated %s", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if r.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)

	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetStyle(table.StyleRounded)
	st.AppendHeader(table.Row{"Outcome", "Count"})
	for _, row := range r.summaryRows() {
		st.AppendRow(table.Row{row[0], row[1]})
	}
	st.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	st.Render()

	if len(r.Cases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cases for manual review:")
		ct := table.NewWriter()
		ct.SetOutputMirror(w)
		ct.SetStyle(table.StyleRounded)
		header := make(table.Row, len(caseHeader))
		for i, h := range caseHeader {
			header[i] = h
		}
		ct.AppendHeader(header)
		for _, c := range r.Cases {
			row := c.row()
			tr := make(table.Row, len(row))
			for i, cell := range row {
				tr[i] = cell
			}
			ct.AppendRow(tr)
		}
		ct.Render()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Known limitations:")
	for _, l := range r.Limitations {
		fmt.Fprintf(w, "  - %s\n", l)
	}
}

// Markdown writes the report as a markdown document.
func (r *Report) Markdown(w io.Writer) {
	fmt.Fprintf(w, "# Trust audit %s\n\n", r.RunID)
	fmt.Fprintf(w, "Generated %s", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if r.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprint(w, "\n\n## Summary\n\n")

	fmt.Fprintln(w, "| Outcome | Count |")
	fmt.Fprintln(w, "|---|---:|")
	for _, row := range r.summaryRows() {
		fmt.Fprintf(w, "| %s | %s |\n", row[0], row[1])
	}

	if len(r.Cases) > 0 {
		fmt.Fprint(w, "\n## Cases for manual review\n\n")
		fmt.Fprintf(w, "| %s |\n", strings.Join(caseHeader, " | "))
		fmt.Fprintln(w, "|---|---|---|---|---|")
		for _, c := range r.Cases {
			fmt.Fprintf(w, "| %s |\n", strings.Join(c.row(), " | "))
		}
	}

	fmt.Fprint(w, "\n## Known limitations\n\n")
	for _, l := range r.Limitations {
		fmt.Fprintf(w, "- %s\n", l)
	}
}

// WriteCSV writes the review cases as CSV, with the summary as a comment-free
// preamble table of outcome/count rows.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"outcome", "count"}); err != nil {
		return eris.Wrap(err, "audit: write CSV summary header")
	}
	for _, row := range r.summaryRows() {
		if err := cw.Write([]string{row[0], row[1]}); err != nil {
			return eris.Wrap(err, "audit: write CSV summary row")
		}
	}

	if err := cw.Write(caseHeader); err != nil {
		return eris.Wrap(err, "audit: write CSV case header")
	}
	for _, c := range r.Cases {
		if err := cw.Write(c.row()); err != nil {
			return eris.Wrap(err, "audit: write CSV case row")
		}
	}
	return nil
}

// WriteXLSX writes the report as a two-sheet workbook for reviewers who work
// in spreadsheets.
func (r *Report) WriteXLSX(path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "audit: add summary sheet")
	}
	header := summary.AddRow()
	header.AddCell().Value = "Outcome"
	header.AddCell().Value = "Count"
	for _, row := range r.summaryRows() {
		sr := summary.AddRow()
		sr.AddCell().Value = row[0]
		sr.AddCell().Value = row[1]
	}

	cases, err := f.AddSheet("Cases")
	if err != nil {
		return eris.Wrap(err, "audit: add cases sheet")
	}
	ch := cases.AddRow()
	for _, h := range caseHeader {
		ch.AddCell().Value = h
	}
	for _, c := range r.Cases {
		cr := cases.AddRow()
		for _, cell := range c.row() {
			cr.AddCell().Value = cell
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "audit: save %s", path)
	}
	return nil
}
