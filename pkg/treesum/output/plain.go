package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// summaryRow is one line of the scan summary.
type summaryRow struct {
	label string
	count int
}

// summaryRows returns the non-zero counter lines for a report, in the
// order the summary prints them. The total is always last.
func summaryRows(r *Report) []summaryRow {
	rows := []summaryRow{
		{"New", r.Totals.New},
		{"Untouched", r.Totals.Seen},
		{"Touched", r.Totals.Touched},
		{"Changed", r.Totals.Changed},
		{"Errors", r.Totals.Errors},
		{"Renamed", r.Totals.Renamed},
		{"Copied", r.Totals.Copied},
		{"Skipped", r.Totals.Skipped},
		{"Deleted", len(r.Deleted)},
	}

	out := rows[:0]
	for _, row := range rows {
		if row.count != 0 {
			out = append(out, row)
		}
	}
	return append(out, summaryRow{"Total", r.Total})
}

// PlainFormatter formats output as a simple tab-separated listing
// followed by the scan summary. It produces plain text suitable for
// scripting and piping. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	if len(r.Listings) > 0 || len(r.Deleted) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

		if _, err := tw.Write([]byte("STATUS\tPATH\tNOTE\n")); err != nil {
			return err
		}

		for _, l := range r.Listings {
			note := l.OldPath
			if l.Error != "" {
				note = l.Error
			}
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Status, l.Path, note); err != nil {
				return err
			}
		}
		for _, path := range r.Deleted {
			if _, err := fmt.Fprintf(tw, "deleted\t%s\t\n", path); err != nil {
				return err
			}
		}

		if err := tw.Flush(); err != nil {
			return err
		}
		w.WriteByte('\n')
	}

	w.WriteString("File scan summary:\n")
	for _, row := range summaryRows(r) {
		fmt.Fprintf(w, "%11s: %d\n", row.label, row.count)
	}

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
