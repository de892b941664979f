package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Listings []Listing    `json:"listings"`
	Deleted  []string     `json:"deleted,omitempty"`
	Totals   types.Totals `json:"totals"`
	Stats    jsonStats    `json:"stats"`
	Meta     jsonMeta     `json:"meta"`
}

// jsonStats represents traversal statistics in JSON output.
type jsonStats struct {
	Dirs      int    `json:"dirs"`
	Files     int    `json:"files"`
	Links     int    `json:"links"`
	Specials  int    `json:"specials"`
	Errors    int    `json:"errors"`
	BytesRead int64  `json:"bytes_read"`
	Duration  string `json:"duration"`
}

// jsonMeta represents run metadata in JSON output.
type jsonMeta struct {
	RunID     string `json:"run_id"`
	Root      string `json:"root"`
	Manifest  string `json:"manifest"`
	Algorithm string `json:"algorithm"`
	Total     int    `json:"total"`
	Deleted   int    `json:"deleted"`
	Clean     bool   `json:"clean"`
	Written   bool   `json:"written"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with listings, totals, stats,
// and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts Report to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Report) jsonOutput {
	return jsonOutput{
		Listings: r.Listings,
		Deleted:  r.Deleted,
		Totals:   r.Totals,
		Stats: jsonStats{
			Dirs:      r.Stats.Dirs,
			Files:     r.Stats.Files,
			Links:     r.Stats.Links,
			Specials:  r.Stats.Specials,
			Errors:    r.Stats.Errors,
			BytesRead: r.Stats.BytesRead,
			Duration:  formatDurationString(r.Stats.Duration),
		},
		Meta: jsonMeta{
			RunID:     r.RunID,
			Root:      r.Root,
			Manifest:  r.Manifest,
			Algorithm: r.Algorithm,
			Total:     r.Total,
			Deleted:   len(r.Deleted),
			Clean:     r.Clean,
			Written:   r.Written,
		},
	}
}

// formatDurationString formats a duration as a string for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object
// per line). Each listing is written as a compact JSON object on its
// own line, followed by one object per deleted path. This format is
// suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, l := range r.Listings {
		data, err := json.Marshal(l)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}

	for _, path := range r.Deleted {
		data, err := json.Marshal(Listing{Path: path, Status: "deleted"})
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}

	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
