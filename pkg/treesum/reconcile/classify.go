package reconcile

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// Classify reconciles one scanned entry against the manifest and
// returns the resulting state. Entries outside the restrict pattern
// are skipped; everything else runs the metadata fast path first and
// digests only when it fails.
func (s *Session) Classify(e Entry) Result {
	if s.opts.Restrict != "" {
		matched, _ := doublestar.Match(s.opts.Restrict, e.Path)
		if !matched {
			return s.skip(e.Path)
		}
	}
	if e.Symlink {
		return s.classifyLink(e)
	}
	return s.classifyFile(e)
}

// skip handles an entry outside the restrict pattern. A known record
// is parked as skipped so it survives write-back; an unknown path
// leaves no trace.
func (s *Session) skip(path string) Result {
	if rec := s.files.Find(path); rec != nil && rec.Status == types.StatusUnseen {
		rec.Status = types.StatusSkipped
		s.totals.Add(types.StatusSkipped)
	}
	return Result{Path: path, Status: types.StatusSkipped}
}

func (s *Session) classifyFile(e Entry) Result {
	rec := s.files.Find(e.Path)
	if rec == nil {
		return s.classifyNewFile(e)
	}
	if rec.Status != types.StatusUnseen {
		return s.logicError(e.Path, rec.Status)
	}

	if s.metadataMatch(rec, e) {
		rec.Status = types.StatusSeen
		s.totals.Add(types.StatusSeen)
		return Result{Path: e.Path, Status: types.StatusSeen}
	}

	dg, err := s.hash(e)
	if err != nil {
		return s.recordError(rec, e, err)
	}
	if rec.Digest.Equal(dg) {
		rec.Status = types.StatusTouched
		rec.MTime, rec.Size = e.MTime, e.Size
		s.totals.Add(types.StatusTouched)
		return Result{Path: e.Path, Status: types.StatusTouched}
	}

	rec.Status = types.StatusChanged
	rec.MTime, rec.Size = e.MTime, e.Size
	rec.Digest = dg
	// A record loaded as a symlink may turn out to be a regular file.
	rec.LinkTarget = ""
	s.totals.Add(types.StatusChanged)
	return Result{Path: e.Path, Status: types.StatusChanged}
}

// classifyNewFile digests a file with no record and decides between
// new, renamed and copied by walking the stored records with the same
// digest. Vanished candidates are flipped to oldpath along the way.
func (s *Session) classifyNewFile(e Entry) Result {
	rec := &types.FileRecord{MTime: e.MTime, Size: e.Size}

	dg, err := s.hash(e)
	if err != nil {
		rec.Status = types.StatusError
		rec.Err = err.Error()
		s.insert(e.Path, rec)
		s.totals.Add(types.StatusError)
		return Result{Path: e.Path, Status: types.StatusError, Err: err}
	}
	rec.Status = types.StatusNew
	rec.Digest = dg

	var (
		origin string
		found  bool
		copied bool
	)
	for c := s.digests.First(dg); c.Valid(); c = c.Next() {
		cand := c.Path()
		if !found {
			// The first candidate of the run is the rename origin
			// unless a live candidate overrides it below.
			origin = cand
			found = true
		}
		crec := s.files.Find(cand)
		if crec == nil {
			logger.Error("cannot find entry for matching file", "path", cand)
			continue
		}
		if s.fs.Exists(cand) {
			copied = true
			origin = cand
			continue
		}
		switch crec.Status {
		case types.StatusUnseen:
			crec.Status = types.StatusOldPath
			s.totals.Add(types.StatusOldPath)
		case types.StatusOldPath:
			// Already claimed by an earlier rename in this run.
		default:
			logger.Warn("renamed original file still existed when scanning",
				"path", cand)
		}
	}
	if found {
		if copied {
			rec.Status = types.StatusCopied
		} else {
			rec.Status = types.StatusRenamed
		}
		rec.OldPath = origin
	}

	s.insert(e.Path, rec)
	s.totals.Add(rec.Status)
	return Result{Path: e.Path, Status: rec.Status, OldPath: rec.OldPath}
}

func (s *Session) classifyLink(e Entry) Result {
	rec := s.files.Find(e.Path)
	if rec == nil {
		return s.classifyNewLink(e)
	}
	if rec.Status != types.StatusUnseen {
		return s.logicError(e.Path, rec.Status)
	}

	if s.metadataMatch(rec, e) {
		rec.Status = types.StatusSeen
		s.totals.Add(types.StatusSeen)
		return Result{Path: e.Path, Status: types.StatusSeen}
	}

	target, err := s.fs.ReadLink(e.Path)
	if err != nil {
		return s.recordError(rec, e, err)
	}
	if rec.LinkTarget == target {
		rec.Status = types.StatusTouched
		rec.MTime, rec.Size = e.MTime, e.Size
		s.totals.Add(types.StatusTouched)
		return Result{Path: e.Path, Status: types.StatusTouched}
	}

	rec.Status = types.StatusChanged
	rec.MTime, rec.Size = e.MTime, e.Size
	rec.LinkTarget = target
	// The record may have described a regular file before.
	rec.Digest = nil
	s.totals.Add(types.StatusChanged)
	return Result{Path: e.Path, Status: types.StatusChanged}
}

// classifyNewLink records a link with no manifest record. Links carry
// no digest, so there is no rename detection for them.
func (s *Session) classifyNewLink(e Entry) Result {
	rec := &types.FileRecord{MTime: e.MTime, Size: e.Size}

	target, err := s.fs.ReadLink(e.Path)
	if err != nil {
		rec.Status = types.StatusError
		rec.Err = err.Error()
		s.insert(e.Path, rec)
		s.totals.Add(types.StatusError)
		return Result{Path: e.Path, Status: types.StatusError, Err: err}
	}

	rec.Status = types.StatusNew
	rec.LinkTarget = target
	s.insert(e.Path, rec)
	s.totals.Add(types.StatusNew)
	return Result{Path: e.Path, Status: types.StatusNew}
}

// metadataMatch is the fast path: size equal and modification time
// within the tolerance window. A full check disables it.
func (s *Session) metadataMatch(rec *types.FileRecord, e Entry) bool {
	if s.opts.FullCheck || rec.Size != e.Size {
		return false
	}
	delta := rec.MTime - e.MTime
	if delta < 0 {
		delta = -delta
	}
	return delta <= s.opts.ModifyWindow
}

// hash digests the entry content and cross-checks the byte count
// against the scanned size, catching files that changed mid-scan.
func (s *Session) hash(e Entry) (digest.Digest, error) {
	d, n, err := s.fs.HashFile(e.Path, s.algo)
	if err != nil {
		return nil, err
	}
	s.bytesRead += n
	if n != e.Size {
		return nil, fmt.Errorf("file changed while hashing: read %d bytes, scanned size %d", n, e.Size)
	}
	return d, nil
}

func (s *Session) recordError(rec *types.FileRecord, e Entry, err error) Result {
	rec.Status = types.StatusError
	rec.MTime, rec.Size = e.MTime, e.Size
	rec.Err = err.Error()
	s.totals.Add(types.StatusError)
	return Result{Path: e.Path, Status: types.StatusError, Err: err}
}

func (s *Session) logicError(path string, st types.Status) Result {
	err := fmt.Errorf("%w: %q classified twice in one run", ErrLogic, path)
	logger.Error("path classified twice in one run", "path", path, "status", st)
	return Result{Path: path, Status: st, Err: err}
}

func (s *Session) insert(path string, rec *types.FileRecord) {
	// Find returned nil for this path just before, so the insert can
	// only fail if the index is corrupted.
	if err := s.files.Insert(path, rec); err != nil {
		logger.Error("cannot index record", "path", path, "error", err)
	}
}
