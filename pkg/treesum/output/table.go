package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// listingRows flattens a report into rows of status, path, origin and
// error columns. Deleted paths are appended as rows of their own.
func listingRows(r *Report) [][]string {
	rows := make([][]string, 0, len(r.Listings)+len(r.Deleted))
	for _, l := range r.Listings {
		rows = append(rows, []string{l.Status, l.Path, l.OldPath, l.Error})
	}
	for _, path := range r.Deleted {
		rows = append(rows, []string{"deleted", path, "", ""})
	}
	return rows
}

// TSVFormatter formats output as tab-separated values.
// It produces a simple table with a header row followed by data rows.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString("STATUS\tPATH\tORIGIN\tERROR\n")

	for _, row := range listingRows(r) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3])
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"STATUS", "PATH", "ORIGIN", "ERROR"}); err != nil {
		return err
	}

	for _, row := range listingRows(r) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
// It produces a table with header, separator, and data rows using | delimiters.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString("| STATUS | PATH | ORIGIN |\n")
	w.WriteString("|--------|------|--------|\n")

	for _, row := range listingRows(r) {
		fmt.Fprintf(w, "| %s | %s | %s |\n",
			escapeMarkdownPipe(row[0]),
			escapeMarkdownPipe(row[1]),
			escapeMarkdownPipe(row[2]))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
