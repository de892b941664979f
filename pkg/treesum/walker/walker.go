// Package walker traverses the scan root and feeds directory entries
// to the reconciliation session in deterministic per-directory order.
// Traversal uses fastwalk pinned to a single worker with lexical
// sorting: classification mutates shared indexes, so entries are
// delivered sequentially.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/treesum/pkg/treesum/logging"
	"github.com/jamesainslie/treesum/pkg/treesum/reconcile"
)

var logger = logging.Get("walker")

// Options configures a walk.
type Options struct {
	// Root is the directory to scan. Empty means the current directory.
	Root string

	// Follow resolves symbolic links: links to directories are
	// traversed, links to regular files are scanned as files.
	Follow bool

	// ExcludeMarker is a file name whose presence in a directory
	// excludes that directory's whole subtree from the scan.
	ExcludeMarker string

	// SkipPaths lists root-relative paths to pass over silently, used
	// for the manifest file itself.
	SkipPaths []string
}

// Stats counts what a walk encountered.
type Stats struct {
	// Dirs is the number of directories entered.
	Dirs int
	// Files is the number of regular files delivered.
	Files int
	// Links is the number of symbolic links delivered.
	Links int
	// Specials is the number of special files passed over.
	Specials int
	// Errors is the number of unreadable paths passed over.
	Errors int
}

// Walk scans the tree under opts.Root and calls visit for every
// regular file and symbolic link, with root-relative slash paths.
// When a subtree is pruned by the exclude marker, skip is called with
// the subtree prefix so its records can be parked. Cancelling ctx
// stops the traversal and returns the context error.
func Walk(ctx context.Context, opts Options, visit func(reconcile.Entry), skip func(prefix string)) (Stats, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, err
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("root %s: %w", root, os.ErrInvalid)
	}

	skipSet := make(map[string]bool, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skipSet[p] = true
	}

	w := &walker{ctx: ctx, opts: opts, root: root, skipSet: skipSet, visit: visit, skip: skip}

	conf := fastwalk.Config{
		Follow: opts.Follow,
		Sort:   fastwalk.SortLexical,
		// One worker: the visit callback mutates session state.
		NumWorkers: 1,
	}
	if err := fastwalk.Walk(&conf, root, w.callback); err != nil {
		return w.stats, err
	}
	if err := ctx.Err(); err != nil {
		return w.stats, err
	}
	return w.stats, nil
}

type walker struct {
	ctx     context.Context
	opts    Options
	root    string
	skipSet map[string]bool
	visit   func(reconcile.Entry)
	skip    func(string)
	stats   Stats
}

func (w *walker) callback(path string, d fs.DirEntry, err error) error {
	if w.ctx.Err() != nil {
		return filepath.SkipAll
	}
	rel := w.rel(path)
	if err != nil {
		logger.Warn("cannot read path", "path", rel, "error", err)
		w.stats.Errors++
		return nil
	}

	if d.IsDir() {
		return w.enterDir(path, rel)
	}

	t := d.Type()
	switch {
	case t&fs.ModeSymlink != 0:
		if w.opts.Follow {
			return w.resolveLink(path, rel)
		}
		info, ierr := d.Info()
		if ierr != nil {
			logger.Warn("cannot stat link", "path", rel, "error", ierr)
			w.stats.Errors++
			return nil
		}
		w.stats.Links++
		w.visit(reconcile.Entry{
			Path:    rel,
			MTime:   info.ModTime().Unix(),
			Size:    info.Size(),
			Symlink: true,
		})
	case t.IsRegular():
		if w.skipSet[rel] {
			logger.Debug("skipping manifest file", "path", rel)
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			logger.Warn("cannot stat file", "path", rel, "error", ierr)
			w.stats.Errors++
			return nil
		}
		w.stats.Files++
		w.visit(reconcile.Entry{
			Path:  rel,
			MTime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
	default:
		logger.Info("skipping special file", "path", rel, "mode", t.String())
		w.stats.Specials++
	}
	return nil
}

// enterDir checks a directory for the exclude marker before the walk
// descends into it.
func (w *walker) enterDir(path, rel string) error {
	w.stats.Dirs++
	if w.opts.ExcludeMarker == "" {
		return nil
	}
	if _, err := os.Lstat(filepath.Join(path, w.opts.ExcludeMarker)); err != nil {
		return nil
	}
	logger.Info("subtree excluded by marker", "dir", rel, "marker", w.opts.ExcludeMarker)
	if w.skip != nil {
		if rel == "." {
			w.skip("")
		} else {
			w.skip(rel)
		}
	}
	return fastwalk.SkipDir
}

// resolveLink handles a symbolic link in follow mode by statting
// through it. Directory links are left to the traversal, which follows
// them with its own cycle detection.
func (w *walker) resolveLink(path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("cannot resolve link", "path", rel, "error", err)
		w.stats.Errors++
		return nil
	}
	switch {
	case info.IsDir():
		// Covered by the walk itself.
	case info.Mode().IsRegular():
		if w.skipSet[rel] {
			logger.Debug("skipping manifest file", "path", rel)
			return nil
		}
		w.stats.Files++
		w.visit(reconcile.Entry{
			Path:  rel,
			MTime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
	default:
		logger.Info("skipping special file", "path", rel, "mode", info.Mode().String())
		w.stats.Specials++
	}
	return nil
}

func (w *walker) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
