package manifest

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// headerTimeFormat is the timestamp layout in the header comment.
const headerTimeFormat = "2006-01-02 15:04:05 MST"

// WriteOptions configures Write and WriteFile.
type WriteOptions struct {
	// Program is the name recorded in the header comment. Empty means
	// "treesum".
	Program string

	// Now supplies the header timestamp. Nil means time.Now.
	Now func() time.Time

	// ExcludeMarker, when non-empty, is persisted as an option line.
	ExcludeMarker string
}

// WriteResult reports what a write produced.
type WriteResult struct {
	// Entries is the number of records written.
	Entries int
	// Bytes is the total byte count including the trailer.
	Bytes int64
}

// Write serializes the index to w in manifest format. Records that are
// unseen, erroneous or superseded old paths are dropped; everything
// else is written in path order, followed by the crc trailer.
func Write(w io.Writer, files *index.FileIndex, opts WriteOptions) (WriteResult, error) {
	prog := opts.Program
	if prog == "" {
		prog = "treesum"
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	cw := &checksumWriter{w: w}
	fmt.Fprintf(cw, "# %s last update: %s\n", prog, now().Format(headerTimeFormat))
	if opts.ExcludeMarker != "" {
		fmt.Fprintf(cw, "#: option --exclude-marker=%s\n", opts.ExcludeMarker)
	}

	entries := 0
	files.Walk(func(path string, rec *types.FileRecord) bool {
		switch rec.Status {
		case types.StatusUnseen, types.StatusError, types.StatusOldPath:
			return true
		}
		switch {
		case rec.Symlink():
			writeSymlink(cw, path, rec)
		case len(rec.Digest) > 0:
			writeDigest(cw, path, rec)
		default:
			// Neither digest nor target: nothing to round-trip.
			return true
		}
		entries++
		return cw.err == nil
	})
	if cw.err != nil {
		return WriteResult{}, fmt.Errorf("writing manifest: %w", cw.err)
	}

	// The trailer asserts the checksum of everything above it.
	fmt.Fprintf(cw, "#: crc 0x%08x eof\n", cw.crc)
	if cw.err != nil {
		return WriteResult{}, fmt.Errorf("writing manifest: %w", cw.err)
	}
	return WriteResult{Entries: entries, Bytes: cw.n}, nil
}

func writeSymlink(w io.Writer, path string, rec *types.FileRecord) {
	if NeedsEscape(rec.LinkTarget) {
		fmt.Fprintf(w, "#: mtime %d size %d target\\ %s\n",
			rec.MTime, rec.Size, Escape(rec.LinkTarget))
	} else {
		fmt.Fprintf(w, "#: mtime %d size %d target %s\n",
			rec.MTime, rec.Size, rec.LinkTarget)
	}
	if NeedsEscape(path) {
		fmt.Fprintf(w, "#: symlink\\ %s\n", Escape(path))
	} else {
		fmt.Fprintf(w, "#: symlink %s\n", path)
	}
}

func writeDigest(w io.Writer, path string, rec *types.FileRecord) {
	fmt.Fprintf(w, "#: mtime %d size %d\n", rec.MTime, rec.Size)
	if NeedsEscape(path) {
		fmt.Fprintf(w, "\\%s  %s\n", rec.Digest.Hex(), Escape(path))
	} else {
		fmt.Fprintf(w, "%s  %s\n", rec.Digest.Hex(), path)
	}
}

// WriteFile writes the manifest atomically: content goes to a temp
// file next to the target which is then renamed over it.
func WriteFile(path string, files *index.FileIndex, opts WriteOptions) (WriteResult, error) {
	var buf bytes.Buffer
	res, err := Write(&buf, files, opts)
	if err != nil {
		return WriteResult{}, err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return WriteResult{}, fmt.Errorf("failed to rename temp manifest: %w", err)
	}
	return res, nil
}

// checksumWriter counts bytes and folds them into a running CRC-32 as
// they pass through. The first write error sticks.
type checksumWriter struct {
	w   io.Writer
	crc uint32
	n   int64
	err error
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.crc = crc32.Update(cw.crc, crc32.IEEETable, p[:n])
	cw.n += int64(n)
	cw.err = err
	return n, err
}
