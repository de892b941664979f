package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Listings []Listing    `yaml:"listings"`
	Deleted  []string     `yaml:"deleted,omitempty"`
	Totals   types.Totals `yaml:"totals"`
	Stats    yamlStats    `yaml:"stats"`
	Meta     yamlMeta     `yaml:"meta"`
}

// yamlStats represents traversal statistics in YAML output.
type yamlStats struct {
	Dirs      int    `yaml:"dirs"`
	Files     int    `yaml:"files"`
	Links     int    `yaml:"links"`
	Specials  int    `yaml:"specials"`
	Errors    int    `yaml:"errors"`
	BytesRead int64  `yaml:"bytes_read"`
	Duration  string `yaml:"duration"`
}

// yamlMeta represents run metadata in YAML output.
type yamlMeta struct {
	RunID     string `yaml:"run_id"`
	Root      string `yaml:"root"`
	Manifest  string `yaml:"manifest"`
	Algorithm string `yaml:"algorithm"`
	Total     int    `yaml:"total"`
	Deleted   int    `yaml:"deleted"`
	Clean     bool   `yaml:"clean"`
	Written   bool   `yaml:"written"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	output := f.buildOutput(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Report to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Report) yamlOutput {
	return yamlOutput{
		Listings: r.Listings,
		Deleted:  r.Deleted,
		Totals:   r.Totals,
		Stats: yamlStats{
			Dirs:      r.Stats.Dirs,
			Files:     r.Stats.Files,
			Links:     r.Stats.Links,
			Specials:  r.Stats.Specials,
			Errors:    r.Stats.Errors,
			BytesRead: r.Stats.BytesRead,
			Duration:  formatDurationString(r.Stats.Duration),
		},
		Meta: yamlMeta{
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

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
