package reconcile

import (
	"os"
	"path/filepath"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
)

// Filesystem is what a session needs from the world outside the index:
// hashing file content, resolving symlink targets and probing whether
// rename candidates still exist. Paths are root-relative slash paths,
// the same form the index is keyed by.
type Filesystem interface {
	// HashFile digests the file content and reports the byte count read.
	HashFile(path string, algo digest.Algorithm) (digest.Digest, int64, error)

	// ReadLink returns the target of a symbolic link.
	ReadLink(path string) (string, error)

	// Exists reports whether the path resolves to anything on disk.
	Exists(path string) bool
}

// OSFilesystem implements Filesystem against a directory tree rooted
// at Root. An empty Root means the current directory.
type OSFilesystem struct {
	// Root is the scan root all paths are resolved against.
	Root string
}

func (fs OSFilesystem) abs(path string) string {
	return filepath.Join(fs.Root, filepath.FromSlash(path))
}

// HashFile digests the file content with the session algorithm.
func (fs OSFilesystem) HashFile(path string, algo digest.Algorithm) (digest.Digest, int64, error) {
	return digest.File(fs.abs(path), algo)
}

// ReadLink returns the symlink target.
func (fs OSFilesystem) ReadLink(path string) (string, error) {
	return os.Readlink(fs.abs(path))
}

// Exists reports whether the path resolves on disk. Symlinks are
// followed, so a dangling link counts as absent.
func (fs OSFilesystem) Exists(path string) bool {
	_, err := os.Stat(fs.abs(path))
	return err == nil
}
