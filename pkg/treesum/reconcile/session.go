// Package reconcile classifies scanned directory entries against a
// loaded manifest. A Session owns the path index, a digest index
// derived from it, and the outcome counters for one run. Feeding every
// entry of a walk through Classify moves each manifest record out of
// its unseen state; whatever is still unseen afterwards is deleted.
//
// Rename and copy detection works on content: a file with no record is
// matched against the stored digests, and the fate of the matching
// records' own paths decides between new, renamed and copied.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/logging"
	"github.com/jamesainslie/treesum/pkg/treesum/manifest"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

var logger = logging.Get("reconcile")

// ErrLogic flags conditions the scan machinery should make impossible,
// like classifying the same path twice in one run.
var ErrLogic = errors.New("internal logic error")

// Options configures a reconciliation session.
type Options struct {
	// FullCheck forces a content compare even when stored metadata
	// matches the entry.
	FullCheck bool

	// ModifyWindow is the tolerated modification time difference in
	// seconds for the metadata fast path. Zero demands exact equality.
	ModifyWindow int64

	// Restrict, when non-empty, is a glob pattern (with ** support)
	// limiting classification to matching paths. Known records outside
	// the pattern are skipped, unknown paths are ignored.
	Restrict string
}

// Entry is one scanned directory entry, described by lstat.
type Entry struct {
	// Path is the root-relative slash path.
	Path string

	// MTime is the modification time in unix seconds.
	MTime int64

	// Size is the size in bytes; for symlinks the target length.
	Size int64

	// Symlink marks a symbolic link.
	Symlink bool
}

// Result is the outcome of classifying one entry.
type Result struct {
	// Path is the classified path.
	Path string

	// Status is the state the record ended up in.
	Status types.Status

	// OldPath is the matched origin for renamed and copied files.
	OldPath string

	// Err is set when the entry could not be read or the classification
	// hit an internal inconsistency.
	Err error
}

// Session carries the state of one reconciliation run.
type Session struct {
	files     *index.FileIndex
	digests   *index.DigestIndex
	algo      digest.Algorithm
	fs        Filesystem
	opts      Options
	totals    types.Totals
	bytesRead int64
}

// NewSession builds a session over a loaded manifest. The digest index
// is derived here, in path order, from every record that carries a
// digest. The manifest must have a concrete algorithm.
func NewSession(m *manifest.Manifest, fs Filesystem, opts Options) (*Session, error) {
	if m.Algorithm == digest.None {
		return nil, errors.New("manifest has no digest algorithm")
	}
	if opts.Restrict != "" && !doublestar.ValidatePattern(opts.Restrict) {
		return nil, fmt.Errorf("invalid restrict pattern %q", opts.Restrict)
	}

	s := &Session{
		files:   m.Files,
		digests: index.NewDigestIndex(),
		algo:    m.Algorithm,
		fs:      fs,
		opts:    opts,
	}
	m.Files.Walk(func(path string, rec *types.FileRecord) bool {
		if len(rec.Digest) > 0 {
			s.digests.Add(rec.Digest, path)
		}
		return true
	})
	return s, nil
}

// Files returns the session's path index.
func (s *Session) Files() *index.FileIndex { return s.files }

// Algorithm returns the content digest algorithm in use.
func (s *Session) Algorithm() digest.Algorithm { return s.algo }

// Totals returns the outcome counters accumulated so far.
func (s *Session) Totals() types.Totals { return s.totals }

// BytesRead returns the number of file bytes digested so far.
func (s *Session) BytesRead() int64 { return s.bytesRead }

// SkipSubtree marks every still-unseen record under the prefix as
// skipped. The walker calls this when it prunes a subtree, so the
// records below it are not misreported as deleted.
func (s *Session) SkipSubtree(prefix string) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	s.files.WalkFrom(prefix, func(path string, rec *types.FileRecord) bool {
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		if rec.Status == types.StatusUnseen {
			rec.Status = types.StatusSkipped
			s.totals.Add(types.StatusSkipped)
		}
		return true
	})
}

// Deleted returns the paths of records the scan never matched, in path
// order.
func (s *Session) Deleted() []string {
	var out []string
	s.files.Walk(func(path string, rec *types.FileRecord) bool {
		if rec.Status == types.StatusUnseen {
			out = append(out, path)
		}
		return true
	})
	return out
}

// DeletedCount returns the number of deleted records without building
// the list.
func (s *Session) DeletedCount() int {
	return s.files.Len() - s.totals.Counted()
}

// ByStatus returns the paths currently in the given state, in path
// order.
func (s *Session) ByStatus(st types.Status) []string {
	var out []string
	s.files.Walk(func(path string, rec *types.FileRecord) bool {
		if rec.Status == st {
			out = append(out, path)
		}
		return true
	})
	return out
}

// Clean reports whether the scan found nothing to update: every record
// was seen, touched or deliberately skipped, and nothing showed up or
// went missing.
func (s *Session) Clean() bool {
	return s.totals.Seen+s.totals.Touched+s.totals.Skipped == s.files.Len()
}
