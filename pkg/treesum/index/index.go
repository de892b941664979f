// Package index provides the two ordered views over reconciliation
// records: a path-keyed file index and a digest-keyed index used for
// rename and copy detection. Both are thin shells over the red-black
// tree. Records are shared by pointer between the views, so a status
// change made through one view is immediately visible through the
// other.
package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/rbtree"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// ErrDuplicatePath indicates an attempt to index a path twice.
var ErrDuplicatePath = errors.New("duplicate path")

// FileIndex maps file paths to their records in byte-lexicographic
// path order. Records are inserted during manifest load and during the
// scan, and never removed while a run is in progress.
type FileIndex struct {
	tree *rbtree.Tree[string, *types.FileRecord]
}

// NewFileIndex returns an empty file index.
func NewFileIndex() *FileIndex {
	return &FileIndex{tree: rbtree.New[string, *types.FileRecord](strings.Compare)}
}

// Insert adds a record under path. Inserting a path that is already
// present returns ErrDuplicatePath and leaves the index unchanged.
func (ix *FileIndex) Insert(path string, rec *types.FileRecord) error {
	if ix.tree.Find(path).Valid() {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, path)
	}
	ix.tree.Insert(path, rec)
	return nil
}

// Find returns the record for path, or nil when the path is unknown.
func (ix *FileIndex) Find(path string) *types.FileRecord {
	if c := ix.tree.Find(path); c.Valid() {
		return c.Value()
	}
	return nil
}

// Len returns the number of indexed paths.
func (ix *FileIndex) Len() int {
	return ix.tree.Len()
}

// Empty reports whether the index holds no records.
func (ix *FileIndex) Empty() bool {
	return ix.tree.Empty()
}

// Walk visits every record in strict path order. The visit function
// returns false to stop early.
func (ix *FileIndex) Walk(visit func(path string, rec *types.FileRecord) bool) {
	for c := ix.tree.Begin(); c.Valid(); c = c.Next() {
		if !visit(c.Key(), c.Value()) {
			return
		}
	}
}

// WalkFrom visits records whose path sorts at or after start, in path
// order. The visit function returns false to stop early.
func (ix *FileIndex) WalkFrom(start string, visit func(path string, rec *types.FileRecord) bool) {
	for c := ix.tree.LowerBound(start); c.Valid(); c = c.Next() {
		if !visit(c.Key(), c.Value()) {
			return
		}
	}
}

// DigestIndex maps content digests to the paths that carried them when
// the manifest was loaded. Duplicate digests are allowed and keep
// insertion order, which for a freshly loaded manifest is path order.
// Symlink records carry no digest and are never indexed here.
type DigestIndex struct {
	tree *rbtree.Tree[digest.Digest, string]
}

// NewDigestIndex returns an empty digest index.
func NewDigestIndex() *DigestIndex {
	return &DigestIndex{tree: rbtree.New[digest.Digest, string](digest.Digest.Compare)}
}

// Add indexes path under dg. Duplicates are expected: several paths
// may share one digest.
func (ix *DigestIndex) Add(dg digest.Digest, path string) {
	ix.tree.Insert(dg, path)
}

// Len returns the number of indexed digests, counting duplicates.
func (ix *DigestIndex) Len() int {
	return ix.tree.Len()
}

// Cursor iterates one digest run. It turns invalid past the run's last
// element, so callers never compare digests themselves.
type Cursor struct {
	c  rbtree.Cursor[digest.Digest, string]
	dg digest.Digest
}

// First returns a cursor at the first path recorded under dg, in
// insertion order. The cursor is invalid when the digest is unknown.
func (ix *DigestIndex) First(dg digest.Digest) Cursor {
	return Cursor{c: ix.tree.Find(dg), dg: dg}
}

// Valid reports whether the cursor still points inside its run.
func (c Cursor) Valid() bool {
	return c.c.Valid() && c.c.Key().Equal(c.dg)
}

// Path returns the path at the cursor. The cursor must be valid.
func (c Cursor) Path() string {
	return c.c.Value()
}

// Next advances within the run.
func (c Cursor) Next() Cursor {
	return Cursor{c: c.c.Next(), dg: c.dg}
}
