// Package output provides formatters for displaying reconciliation
// reports in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// Listing is one classified file in a report.
type Listing struct {
	// Path is the root-relative path of the file.
	Path string `json:"path" yaml:"path"`

	// Status is the classification outcome (new, untouched, changed...).
	Status string `json:"status" yaml:"status"`

	// OldPath is the origin path for renamed and copied files.
	OldPath string `json:"old_path,omitempty" yaml:"old_path,omitempty"`

	// Error is the failure message for error records.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScanStats contains statistics about a reconciliation run.
type ScanStats struct {
	// Dirs is the number of directories traversed.
	Dirs int `json:"dirs" yaml:"dirs"`

	// Files is the number of regular files visited.
	Files int `json:"files" yaml:"files"`

	// Links is the number of symbolic links recorded.
	Links int `json:"links" yaml:"links"`

	// Specials is the number of special files skipped.
	Specials int `json:"specials" yaml:"specials"`

	// Errors is the number of unreadable paths skipped by the walk.
	Errors int `json:"errors" yaml:"errors"`

	// BytesRead is the number of file bytes digested.
	BytesRead int64 `json:"bytes_read" yaml:"bytes_read"`

	// Duration is the total time taken by the run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report contains the complete output data for formatting. It includes
// the classified files, the deleted set, the scan counters, and
// metadata about the run.
type Report struct {
	// RunID uniquely identifies this reconciliation run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Root is the directory that was scanned.
	Root string `json:"root" yaml:"root"`

	// Manifest is the manifest file the tree was reconciled against.
	Manifest string `json:"manifest" yaml:"manifest"`

	// Algorithm is the digest algorithm name.
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Listings contains the files selected for display, in scan order.
	Listings []Listing `json:"listings" yaml:"listings"`

	// Deleted contains manifest paths no longer present on disk.
	Deleted []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`

	// Totals contains the classification counters.
	Totals types.Totals `json:"totals" yaml:"totals"`

	// Total is the number of records tracked after the run.
	Total int `json:"total" yaml:"total"`

	// Stats contains traversal statistics.
	Stats ScanStats `json:"stats" yaml:"stats"`

	// Clean reports whether every file matched the manifest.
	Clean bool `json:"clean" yaml:"clean"`

	// Written reports whether the manifest was rewritten by this run.
	Written bool `json:"written" yaml:"written"`
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
