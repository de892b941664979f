// Package types provides the core data types for treesum manifest
// reconciliation. It defines the per-file status lifecycle, the file
// record shared between the path and digest indexes, and the counter
// set accumulated over a scan.
package types

import (
	"fmt"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
)

// Status describes what a reconciliation run has learned about a file
// since the manifest was loaded.
type Status int

// Status lifecycle values. Every record loaded from a manifest starts
// as StatusUnseen; a scan moves it through at most one transition.
const (
	// StatusUnseen marks a manifest record not yet visited by the scan.
	// Records still unseen when the scan ends are reported as deleted.
	StatusUnseen Status = iota

	// StatusSeen marks a file whose modification time and size matched
	// the stored values, so its content was not re-digested.
	StatusSeen

	// StatusNew marks a file with no manifest record and no digest match.
	StatusNew

	// StatusTouched marks a file whose metadata changed but whose
	// content (digest or symlink target) is unchanged.
	StatusTouched

	// StatusChanged marks a file whose content differs from the manifest.
	StatusChanged

	// StatusError marks a file that could not be read or resolved.
	StatusError

	// StatusCopied marks a new file whose content matches a manifest
	// record whose own path is still present on disk.
	StatusCopied

	// StatusRenamed marks a new file whose content matches a manifest
	// record whose own path is gone from disk.
	StatusRenamed

	// StatusOldPath marks the abandoned origin of a rename. The record
	// is kept for reporting but dropped on write-back.
	StatusOldPath

	// StatusSkipped marks a record excluded from this run by a restrict
	// pattern or an excluded subtree. Skipped records keep their stored
	// data and survive write-back unchanged.
	StatusSkipped
)

// statusNames holds the canonical lowercase names, indexed by Status.
var statusNames = [...]string{
	"unseen",
	"seen",
	"new",
	"touched",
	"changed",
	"error",
	"copied",
	"renamed",
	"oldpath",
	"skipped",
}

// String returns the lowercase status name used in reports and logs.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Unchanged reports whether the status means the file matched the
// manifest or was deliberately left out of the comparison. A scan is
// clean when every record is unchanged.
func (s Status) Unchanged() bool {
	return s == StatusSeen || s == StatusTouched || s == StatusSkipped
}

// FileRecord is the reconciliation state for a single path. Records are
// allocated once and shared by pointer between the file index and the
// digest index, so a mutation through either view is seen by both.
type FileRecord struct {
	// Status is the current lifecycle state.
	Status Status

	// MTime is the modification time in unix seconds.
	MTime int64

	// Size is the file size in bytes. For symlinks it is the length of
	// the target path, as reported by lstat.
	Size int64

	// Digest is the content digest, nil for symlink records. Its length
	// always matches the manifest algorithm.
	Digest digest.Digest

	// LinkTarget is the symlink target, empty for regular files. A
	// record can carry a stale target across a status change; the
	// manifest writer prefers the target when both fields are set.
	LinkTarget string

	// OldPath is the origin path for copied and renamed files.
	OldPath string

	// Err is the failure message for error records.
	Err string
}

// Symlink reports whether the record describes a symbolic link.
func (r *FileRecord) Symlink() bool {
	return r.LinkTarget != ""
}

// Totals counts classification outcomes over one scan. Deleted files
// are not counted directly: records still unseen when the scan ends
// form the deleted set, so the count is derived from the index size at
// report time.
type Totals struct {
	// Seen counts metadata-matched files.
	Seen int `json:"seen" yaml:"seen"`

	// New counts files absent from the manifest with no digest match.
	New int `json:"new" yaml:"new"`

	// Touched counts files with changed metadata but matching content.
	Touched int `json:"touched" yaml:"touched"`

	// Changed counts files whose content differs from the manifest.
	Changed int `json:"changed" yaml:"changed"`

	// Errors counts files that could not be read or resolved.
	Errors int `json:"errors" yaml:"errors"`

	// Copied counts new files matching a still-present record's digest.
	Copied int `json:"copied" yaml:"copied"`

	// Renamed counts new files matching a vanished record's digest.
	Renamed int `json:"renamed" yaml:"renamed"`

	// OldPath counts records flipped to the abandoned side of a rename.
	OldPath int `json:"oldpath" yaml:"oldpath"`

	// Skipped counts records excluded from this run.
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Add increments the counter for one classification outcome. Unseen is
// not counted: it is the initial state, not an outcome.
func (t *Totals) Add(s Status) {
	switch s {
	case StatusSeen:
		t.Seen++
	case StatusNew:
		t.New++
	case StatusTouched:
		t.Touched++
	case StatusChanged:
		t.Changed++
	case StatusError:
		t.Errors++
	case StatusCopied:
		t.Copied++
	case StatusRenamed:
		t.Renamed++
	case StatusOldPath:
		t.OldPath++
	case StatusSkipped:
		t.Skipped++
	}
}

// Counted returns the number of records accounted for by the scan.
// Subtracting it from the index size yields the deleted count.
func (t Totals) Counted() int {
	return t.Seen + t.New + t.Touched + t.Changed + t.Errors +
		t.Copied + t.Renamed + t.OldPath + t.Skipped
}
