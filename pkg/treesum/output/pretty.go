package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatListings(r))
	w.WriteString(f.formatFooter(r))

	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	rootLabel := LabelStyle.Render("Root:")
	rootValue := ValueStyle.Render(r.Root)
	lines = append(lines, fmt.Sprintf("%s %s", rootLabel, rootValue))

	var infoParts []string

	manifestLabel := LabelStyle.Render("Manifest:")
	manifestValue := ValueStyle.Render(r.Manifest)
	infoParts = append(infoParts, fmt.Sprintf("%s %s", manifestLabel, manifestValue))

	if r.Algorithm != "" {
		algoLabel := LabelStyle.Render("Digest:")
		algoValue := ValueStyle.Render(r.Algorithm)
		infoParts = append(infoParts, fmt.Sprintf("%s %s", algoLabel, algoValue))
	}

	scannedLabel := LabelStyle.Render("Scanned:")
	scannedValue := ValueStyle.Render(fmt.Sprintf("%d files, %s read in %s",
		r.Stats.Files+r.Stats.Links,
		humanize.IBytes(uint64(r.Stats.BytesRead)),
		formatDuration(r.Stats.Duration)))
	infoParts = append(infoParts, fmt.Sprintf("%s %s", scannedLabel, scannedValue))

	lines = append(lines, strings.Join(infoParts, "  "))

	content := strings.Join(lines, "\n")
	return HeaderBox.Render(content)
}

// formatListings builds the classified file table.
func (f *PrettyFormatter) formatListings(r *Report) string {
	if len(r.Listings) == 0 && len(r.Deleted) == 0 {
		return MutedStyle.Render("  No differences against the manifest\n")
	}

	var sb strings.Builder

	statusHeader := TableHeaderStyle.Render("STATUS")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s    %s\n", statusHeader, pathHeader))

	for _, l := range r.Listings {
		statusStr := statusStyle(l.Status).Render(padLeft(l.Status, 9))
		pathStr := PathStyle.Render(l.Path)
		sb.WriteString(fmt.Sprintf("  %s  %s\n", statusStr, pathStr))

		if l.OldPath != "" {
			origin := MutedStyle.Render("<-- " + l.OldPath)
			sb.WriteString(fmt.Sprintf("  %s  %s\n", strings.Repeat(" ", 9), origin))
		}
		if l.Error != "" {
			msg := ErrorStyle.Render(l.Error)
			sb.WriteString(fmt.Sprintf("  %s  %s\n", strings.Repeat(" ", 9), msg))
		}
	}

	for _, path := range r.Deleted {
		statusStr := statusStyle("deleted").Render(padLeft("deleted", 9))
		sb.WriteString(fmt.Sprintf("  %s  %s\n", statusStr, PathStyle.Render(path)))
	}

	return sb.String()
}

// formatFooter builds the footer box with the scan summary.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	var parts []string

	for _, row := range summaryRows(r) {
		label := LabelStyle.Render(row.label + ":")
		value := ValueStyle.Render(fmt.Sprintf("%d", row.count))
		parts = append(parts, fmt.Sprintf("%s %s", label, value))
	}

	if r.Clean {
		parts = append(parts, SuccessStyle.Render("clean"))
	} else {
		parts = append(parts, WarningStyle.Render("differences found"))
	}

	if r.Written {
		parts = append(parts, MutedStyle.Render("manifest updated"))
	}

	content := strings.Join(parts, "  ")
	return FooterBox.Render(content)
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
