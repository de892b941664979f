package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RotationConfig controls when the log file is rotated and how many
// rotated files are kept around.
type RotationConfig struct {
	// MaxSize is the size in bytes past which the file is rotated.
	// Zero falls back to the default of 10 MiB.
	MaxSize int64

	// MaxAge is the number of days after which rotated files are
	// removed. Zero keeps them indefinitely.
	MaxAge int

	// MaxBackups is the number of rotated files to keep. Zero keeps
	// all of them, subject to MaxAge.
	MaxBackups int

	// Daily rotates whenever a write lands on a later calendar day
	// than the last rotation.
	Daily bool
}

// DefaultRotationConfig returns the rotation settings used when the
// configuration does not specify any.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
	}
}

// RotatingWriter is an io.WriteCloser that appends to a log file and
// rotates it by size and, optionally, by calendar day. Writes take an
// advisory lock on the file so overlapping runs, such as a manual scan
// during a cron verification, append whole records.
type RotatingWriter struct {
	path       string
	cfg        RotationConfig
	mu         sync.Mutex
	file       *os.File
	size       int64
	lastRotate time.Time
}

// NewRotatingWriter opens path for appending, creating missing parent
// directories, and prunes rotated files left behind by earlier runs.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()

	return w, nil
}

// Write appends p to the log file, rotating first when the write would
// push the file past its size limit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.due(int64(len(p))) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := unix.Flock(int(w.file.Fd()), unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	defer func() {
		_ = unix.Flock(int(w.file.Fd()), unix.LOCK_UN)
	}()

	n, err := w.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	w.size += int64(n)

	return n, nil
}

// Close flushes and closes the log file. The writer must not be used
// afterwards.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// open opens or creates the log file and picks up its current size and
// modification time, so rotation rules carry across runs.
func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	w.lastRotate = info.ModTime()

	return nil
}

// due reports whether a write of n bytes should trigger a rotation.
func (w *RotatingWriter) due(n int64) bool {
	if w.size+n > w.cfg.MaxSize {
		return true
	}
	if w.cfg.Daily {
		now := time.Now()
		if now.YearDay() != w.lastRotate.YearDay() || now.Year() != w.lastRotate.Year() {
			return true
		}
	}
	return false
}

// rotate renames the current file to a timestamped sibling and starts
// a fresh one.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		w.file = nil
	}

	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)
	rotated := fmt.Sprintf("%s.%s%s", stem, time.Now().Format("2006-01-02-150405"), ext)

	// A missing current file is not an error: rotation still begins a
	// fresh one.
	if _, err := os.Stat(w.path); err == nil {
		if err := os.Rename(w.path, rotated); err != nil {
			return fmt.Errorf("renaming log file: %w", err)
		}
	}

	if err := w.open(); err != nil {
		return err
	}
	w.lastRotate = time.Now()
	w.prune()

	return nil
}

// prune removes rotated files beyond MaxBackups or older than MaxAge.
// Failures here never block logging.
func (w *RotatingWriter) prune() {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type rotated struct {
		path string
		mod  time.Time
	}
	var old []rotated
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base {
			continue
		}
		// Rotated siblings look like stem.2006-01-02-150405.ext.
		if !strings.HasPrefix(name, stem+".") || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		old = append(old, rotated{path: filepath.Join(dir, name), mod: info.ModTime()})
	}

	sort.Slice(old, func(i, j int) bool { return old[i].mod.After(old[j].mod) })

	var cutoff time.Time
	if w.cfg.MaxAge > 0 {
		cutoff = time.Now().AddDate(0, 0, -w.cfg.MaxAge)
	}
	for i, r := range old {
		if w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups {
			_ = os.Remove(r.path)
			continue
		}
		if !cutoff.IsZero() && r.mod.Before(cutoff) {
			_ = os.Remove(r.path)
		}
	}
}
